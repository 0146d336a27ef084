package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/usecase"
	"github.com/secmon-lab/riskscale/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var filePath string
	var orgID string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Risk configuration TOML file to validate",
			Sources:     cli.EnvVars("RISKSCALE_CONFIG_FILE"),
			Destination: &filePath,
		},
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Organization ID. If specified, stored configurations are validated too",
			Sources:     cli.EnvVars("RISKSCALE_ORGANIZATION_ID"),
			Destination: &orgID,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a risk configuration file and optionally the stored configurations",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if filePath == "" && orgID == "" {
				return goerr.Wrap(config.ErrInvalidConfig, "either --file or --org is required")
			}
			w := outputWriter(c)
			valid := true

			if filePath != "" {
				file, err := config.LoadRiskConfigFile(filePath)
				if err != nil {
					return err
				}

				uc := usecase.NewRiskConfigurationUseCase(nil, nil)
				result := uc.ValidateConfiguration(file.ToInput())
				fmt.Fprintf(w, "%s\n", filePath)
				printValidationResult(w, result)
				valid = valid && result.Valid()
			}

			if orgID != "" {
				repo, err := repoCfg.Configure(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to initialize repository")
				}
				defer safe.Close(ctx, repo)

				uc := usecase.New(repo)
				result, err := uc.RiskConfiguration.ValidateStored(ctx, types.OrganizationID(orgID))
				if err != nil {
					return goerr.Wrap(err, "failed to validate stored configurations")
				}
				fmt.Fprintf(w, "organization %s\n", orgID)
				printValidationResult(w, result)
				valid = valid && result.Valid()
			}

			if !valid {
				return goerr.Wrap(config.ErrInvalidConfig, "risk configuration validation failed")
			}
			return nil
		},
	}
}

var (
	errorColor    = color.New(color.FgRed, color.Bold)
	advisoryColor = color.New(color.FgYellow)
	okColor       = color.New(color.FgGreen)
)

func printValidationResult(w io.Writer, result *usecase.ValidationResult) {
	if len(result.Issues) == 0 {
		okColor.Fprintln(w, "  OK")
		return
	}

	for _, issue := range result.Issues {
		prefix := ""
		if issue.Name != "" {
			prefix = issue.Name + ": "
		}

		switch issue.Severity {
		case usecase.IssueSeverityError:
			errorColor.Fprintf(w, "  ERROR   %s%s\n", prefix, issue.Message)
		default:
			advisoryColor.Fprintf(w, "  WARNING %s%s\n", prefix, issue.Message)
		}
	}

	if result.Valid() {
		okColor.Fprintln(w, "  OK (with warnings)")
	}
}

func outputWriter(c *cli.Command) io.Writer {
	if root := c.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
