package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"
	"github.com/secmon-lab/riskscale/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds the change notification settings
type Slack struct {
	BotToken  string `masq:"secret"`
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for change notifications)",
			Category:    "Slack",
			Destination: &x.BotToken,
			Sources:     cli.EnvVars("RISKSCALE_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-notify-channel",
			Usage:       "Slack channel ID receiving risk configuration change notifications",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("RISKSCALE_SLACK_NOTIFY_CHANNEL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.BotToken)),
		slog.String("channel", x.channelID),
	)
}

// IsConfigured returns true when notifications can be sent
func (x *Slack) IsConfigured() bool {
	return x.BotToken != "" && x.channelID != ""
}

// Configure returns the change notifier, or nil when Slack is not configured.
func (x *Slack) Configure() (interfaces.ChangeNotifier, error) {
	if x.BotToken == "" && x.channelID == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrInvalidConfig, "both slack-bot-token and slack-notify-channel are required for notifications")
	}

	svc, err := slack.New(x.BotToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return slack.NewNotifier(svc, x.channelID), nil
}
