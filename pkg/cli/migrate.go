package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
	"github.com/secmon-lab/riskscale/pkg/repository/firestore"
	"github.com/secmon-lab/riskscale/pkg/repository/sqlite"
	"github.com/secmon-lab/riskscale/pkg/utils/logging"
	"github.com/secmon-lab/riskscale/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := repoCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the sqlite schema or Firestore indexes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendSQLite:
				return migrateSQLite(ctx, repoCfg.SQLitePath(), dryRun)
			case config.BackendFirestore:
				if repoCfg.ProjectID() == "" {
					return goerr.Wrap(config.ErrInvalidConfig, "firestore-project-id is required for firestore migration")
				}
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), repoCfg.CollectionPrefix(), dryRun)
			case config.BackendMemory:
				logger.Info("Memory backend has nothing to migrate")
				return nil
			default:
				return goerr.Wrap(config.ErrInvalidConfig, "invalid repository backend", goerr.V("backend", repoCfg.Backend()))
			}
		},
	}
}

func migrateSQLite(ctx context.Context, path string, dryRun bool) error {
	logger := logging.Default()
	if dryRun {
		logger.Info("Dry run mode - sqlite schema would be created", "path", path)
		return nil
	}

	repo, err := sqlite.New(ctx, path)
	if err != nil {
		return goerr.Wrap(err, "failed to apply sqlite schema", goerr.V("path", path))
	}
	if err := repo.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}

	logger.Info("SQLite schema applied successfully", "path", path)
	return nil
}

func migrateFirestore(ctx context.Context, projectID, databaseID, prefix string, dryRun bool) error {
	logger := logging.Default()
	indexConfig := getIndexConfig(prefix)

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer safe.Close(ctx, client)

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.ConfigurationsCollectionName(prefix),
				Indexes: []fireconf.Index{
					// List and GetActive: organization_id ASC, created_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
