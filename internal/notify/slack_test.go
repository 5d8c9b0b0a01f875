package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

type slackCall struct {
	channel string
	text    string
}

func newMockSlackAPI(t *testing.T, ok bool) (*slack.Client, func() []slackCall) {
	t.Helper()

	var mu sync.Mutex
	var calls []slackCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/")
		switch path {
		case "chat.postMessage":
			_ = r.ParseForm()
			mu.Lock()
			calls = append(calls, slackCall{channel: r.Form.Get("channel"), text: r.Form.Get("text")})
			mu.Unlock()
			if !ok {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C_REVIEW", "ts": "1.23"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	t.Cleanup(server.Close)

	return slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/")), func() []slackCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]slackCall(nil), calls...)
	}
}

func reviewDecision() decision.Decision {
	return decision.Decision{
		ID:         "0192a0b0-0000-7000-8000-000000000001",
		Kind:       decision.KindTimeEstimation,
		CreatedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Input:      estimate.Snapshot{Volume: 95, TeamSize: 1, Distance: 12.5},
		Output:     &decision.Output{Value: 14.25, Confidence: 0.55},
		Confidence: 0.55,
		Status:     decision.StatusPending,
	}
}

func TestSlackNotifier_PostsReviewRequest(t *testing.T) {
	api, calls := newMockSlackAPI(t, true)
	n := NewSlackNotifier(api, "C_REVIEW", nil)

	d := reviewDecision()
	err := n.Handle(context.Background(), events.Event{
		Kind:       events.KindReviewRequired,
		DecisionID: d.ID,
		Payload:    events.DecisionIssued{Decision: d},
	})
	require.NoError(t, err)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "C_REVIEW", got[0].channel)
	assert.Contains(t, got[0].text, d.ID)
	assert.Contains(t, got[0].text, "14.25 h")
	assert.Contains(t, got[0].text, "confidence 55%")
}

func TestSlackNotifier_IgnoresOtherKinds(t *testing.T) {
	api, calls := newMockSlackAPI(t, true)
	n := NewSlackNotifier(api, "C_REVIEW", nil)

	err := n.Handle(context.Background(), events.Event{
		Kind:    events.KindDecision,
		Payload: events.DecisionIssued{Decision: reviewDecision()},
	})
	require.NoError(t, err)
	assert.Empty(t, calls())
}

func TestSlackNotifier_APIErrorReturned(t *testing.T) {
	api, _ := newMockSlackAPI(t, false)
	n := NewSlackNotifier(api, "C_MISSING", nil)

	d := reviewDecision()
	err := n.Handle(context.Background(), events.Event{
		Kind:       events.KindReviewRequired,
		DecisionID: d.ID,
		Payload:    events.DecisionIssued{Decision: d},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackNotifier_UnexpectedPayload(t *testing.T) {
	api, _ := newMockSlackAPI(t, true)
	n := NewSlackNotifier(api, "C_REVIEW", nil)

	err := n.Handle(context.Background(), events.Event{Kind: events.KindReviewRequired, Payload: "nope"})
	assert.Error(t, err)
}

func TestSlackNotifier_AttachedToBus(t *testing.T) {
	api, calls := newMockSlackAPI(t, true)
	n := NewSlackNotifier(api, "C_REVIEW", nil)

	bus := events.NewBus()
	_, err := n.Attach(bus)
	require.NoError(t, err)

	d := reviewDecision()
	bus.Publish(events.KindDecision, d.ID, events.DecisionIssued{Decision: d})
	bus.Publish(events.KindReviewRequired, d.ID, events.DecisionIssued{Decision: d})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	assert.Len(t, calls(), 1)
}

func TestReviewMessage_MLModel(t *testing.T) {
	d := reviewDecision()
	d.Output.MLEnhanced = true
	d.ModelVersion = "anthropic/claude-sonnet-4-5"

	msg := ReviewMessage(events.DecisionIssued{Decision: d})
	assert.Contains(t, msg, "Model: anthropic/claude-sonnet-4-5")
	assert.Contains(t, msg, "team of 1")
}
