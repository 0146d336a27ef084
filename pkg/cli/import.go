package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/usecase"
	"github.com/secmon-lab/riskscale/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdImport() *cli.Command {
	var filePath string
	var orgID string
	var activate bool
	var repoCfg config.Repository
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Risk configuration TOML file to import",
			Required:    true,
			Sources:     cli.EnvVars("RISKSCALE_CONFIG_FILE"),
			Destination: &filePath,
		},
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Organization ID receiving the configuration",
			Required:    true,
			Sources:     cli.EnvVars("RISKSCALE_ORGANIZATION_ID"),
			Destination: &orgID,
		},
		&cli.BoolFlag{
			Name:        "activate",
			Usage:       "Make the imported configuration the active one",
			Destination: &activate,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Create a risk configuration for an organization from a TOML file",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			file, err := config.LoadRiskConfigFile(filePath)
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			var ucOpts []usecase.Option
			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack notification")
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithChangeNotifier(notifier))
			}
			uc := usecase.New(repo, ucOpts...)
			defer uc.RiskConfiguration.WaitNotifications()

			w := outputWriter(c)
			org := types.OrganizationID(orgID)

			created, err := uc.RiskConfiguration.CreateConfiguration(ctx, org, file.ToInput())
			if err != nil {
				var ve *model.ValidationError
				if errors.As(err, &ve) {
					for _, msg := range ve.Errors {
						errorColor.Fprintf(w, "  ERROR   %s\n", msg)
					}
				}
				return goerr.Wrap(err, "failed to import risk configuration", goerr.V(config.ConfigPathKey, filePath))
			}

			if activate {
				if _, err := uc.RiskConfiguration.ActivateConfiguration(ctx, org, created.ID); err != nil {
					return goerr.Wrap(err, "failed to activate imported configuration")
				}
			}

			for _, note := range created.Advisories() {
				advisoryColor.Fprintf(w, "  WARNING %s\n", note)
			}
			okColor.Fprintf(w, "Imported %q as %s\n", created.Name, created.ID)
			fmt.Fprintf(w, "organization=%s active=%t\n", org, activate || created.Active)
			return nil
		},
	}
}
