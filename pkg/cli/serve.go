package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
	httpctrl "github.com/secmon-lab/riskscale/pkg/controller/http"
	"github.com/secmon-lab/riskscale/pkg/usecase"
	"github.com/secmon-lab/riskscale/pkg/utils/logging"
	"github.com/secmon-lab/riskscale/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var apiToken string
	var repoCfg config.Repository
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RISKSCALE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required for configuration changes. Changes are not restricted when empty",
			Category:    "Authentication",
			Sources:     cli.EnvVars("RISKSCALE_API_TOKEN"),
			Destination: &apiToken,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
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
				logging.Default().Info("Slack change notification enabled", "slack", slackCfg)
			} else {
				logging.Default().Info("Slack not configured, change notification disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			var httpOpts []httpctrl.Options
			if apiToken != "" {
				httpOpts = append(httpOpts, httpctrl.WithAuthorizer(httpctrl.NewTokenAuthorizer(apiToken)))
			} else {
				logging.Default().Warn("API token not configured, configuration changes are not restricted")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// Flush pending change notifications before the repository closes
				uc.RiskConfiguration.WaitNotifications()

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
