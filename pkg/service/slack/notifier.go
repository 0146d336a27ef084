package slack

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxHeaderLength is the Slack limit for plain text in a header block
const maxHeaderLength = 150

// Notifier posts risk configuration changes to a single channel
type Notifier struct {
	svc       Service
	channelID string
}

var _ interfaces.ChangeNotifier = &Notifier{}

// NewNotifier creates a Notifier posting to channelID through svc
func NewNotifier(svc Service, channelID string) *Notifier {
	return &Notifier{svc: svc, channelID: channelID}
}

func (n *Notifier) NotifyConfigurationChange(ctx context.Context, change *model.ConfigurationChange) error {
	blocks, text := BuildChangeMessage(change)
	if _, err := n.svc.PostMessage(ctx, n.channelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to notify configuration change",
			goerr.V(model.OrganizationIDKey, change.OrganizationID),
			goerr.V(model.ConfigurationIDKey, change.ConfigurationID))
	}
	return nil
}

// BuildChangeMessage renders the Block Kit blocks and fallback text for a change
func BuildChangeMessage(change *model.ConfigurationChange) ([]slack.Block, string) {
	text := fmt.Sprintf("Risk configuration %q was %s in %s", change.Name, change.Action, change.OrganizationID)

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(
		slack.PlainTextType,
		truncate(fmt.Sprintf("Risk configuration %s", change.Action), maxHeaderLength),
		false, false,
	))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Name*\n"+change.Name, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Organization*\n"+change.OrganizationID.String(), false, false),
	}
	if change.Action != model.ChangeActionDeleted {
		fields = append(fields,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Scale*\n%d x %d", change.ImpactScaleMax, change.ProbabilityScaleMax), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Method*\n%s", change.Method), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Version*\n%d", change.Version), false, false),
		)
	}
	section := slack.NewSectionBlock(nil, fields, nil)

	footer := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("`%s` at %s", change.ConfigurationID, change.OccurredAt.Format("2006-01-02 15:04:05 MST")),
			false, false),
	)

	return []slack.Block{header, section, footer}, text
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
