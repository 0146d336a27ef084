package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/service/slack"
	slackapi "github.com/slack-go/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

type recordedPost struct {
	channel string
	text    string
	blocks  string
}

func newSlackAPI(t *testing.T) (*httptest.Server, func() []recordedPost) {
	t.Helper()

	var mu sync.Mutex
	var posts []recordedPost

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mu.Lock()
		posts = append(posts, recordedPost{
			channel: r.FormValue("channel"),
			text:    r.FormValue("text"),
			blocks:  r.FormValue("blocks"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": r.FormValue("channel"),
			"ts":      "1700000000.000100",
		})
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedPost {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPost(nil), posts...)
	}
}

func TestPostMessage(t *testing.T) {
	srv, posts := newSlackAPI(t)

	svc, err := slack.New("test-token", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, "hello", false, false), nil, nil),
	}
	ts, err := svc.PostMessage(context.Background(), "C123", blocks, "hello")
	gt.NoError(t, err).Required()
	gt.Value(t, ts).Equal("1700000000.000100")

	recorded := posts()
	gt.Array(t, recorded).Length(1).Required()
	gt.Value(t, recorded[0].channel).Equal("C123")
	gt.Value(t, recorded[0].text).Equal("hello")
	gt.String(t, recorded[0].blocks).Contains("hello")
}

func TestNotifier(t *testing.T) {
	srv, posts := newSlackAPI(t)

	svc, err := slack.New("test-token", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()
	notifier := slack.NewNotifier(svc, "C-RISK")

	change := &model.ConfigurationChange{
		Action:              model.ChangeActionUpdated,
		OrganizationID:      types.OrganizationID("acme"),
		ConfigurationID:     types.ConfigurationID("4f1c1a3e-8a3b-4a77-9a0e-2a3f6f1e9b10"),
		Name:                "Default",
		Version:             3,
		Method:              types.CalculationMethodAvg,
		ImpactScaleMax:      5,
		ProbabilityScaleMax: 4,
		OccurredAt:          time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	gt.NoError(t, notifier.NotifyConfigurationChange(context.Background(), change)).Required()

	recorded := posts()
	gt.Array(t, recorded).Length(1).Required()
	gt.Value(t, recorded[0].channel).Equal("C-RISK")
	gt.String(t, recorded[0].text).Contains(`"Default" was updated in acme`)
	gt.String(t, recorded[0].blocks).Contains("5 x 4")
}

func TestBuildChangeMessage(t *testing.T) {
	t.Run("deleted change omits scale details", func(t *testing.T) {
		blocks, text := slack.BuildChangeMessage(&model.ConfigurationChange{
			Action:         model.ChangeActionDeleted,
			OrganizationID: types.OrganizationID("acme"),
			Name:           "Legacy",
			ImpactScaleMax: 5,
		})
		gt.Array(t, blocks).Length(3)
		gt.String(t, text).Contains("deleted")

		section, ok := blocks[1].(*slackapi.SectionBlock)
		gt.Bool(t, ok).True()
		gt.Array(t, section.Fields).Length(2)
	})

	t.Run("truncate keeps at most n runes", func(t *testing.T) {
		gt.Value(t, slack.Truncate("リスク設定", 3)).Equal("リスク")
		gt.Value(t, slack.Truncate("short", 10)).Equal("short")
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	if token == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN is not set")
	}
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if channelID == "" {
		t.Skip("TEST_SLACK_CHANNEL_ID is not set")
	}

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	change := &model.ConfigurationChange{
		Action:         model.ChangeActionCreated,
		OrganizationID: types.OrganizationID("integration-test"),
		Name:           "Integration test",
		Version:        1,
		Method:         types.CalculationMethodMax,
		OccurredAt:     time.Now().UTC(),
	}
	gt.NoError(t, slack.NewNotifier(svc, channelID).NotifyConfigurationChange(context.Background(), change)).Required()
}
