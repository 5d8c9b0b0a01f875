package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

// SlackNotifier posts decisions that need human review to a channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a notifier posting to channel through api.
func NewSlackNotifier(api *slack.Client, channel string, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{api: api, channel: channel, logger: logger}
}

// Attach subscribes the notifier to reviewRequired events.
func (n *SlackNotifier) Attach(bus *events.Bus) (func(), error) {
	return bus.Subscribe("slack-review", n.Handle, events.KindReviewRequired)
}

// Handle posts one review request. Other kinds are ignored.
func (n *SlackNotifier) Handle(ctx context.Context, e events.Event) error {
	if e.Kind != events.KindReviewRequired {
		return nil
	}
	issued, ok := e.Payload.(events.DecisionIssued)
	if !ok {
		return fmt.Errorf("slack notify: unexpected payload %T", e.Payload)
	}

	text := ReviewMessage(issued)
	if _, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack notify %s: %w", e.DecisionID, err)
	}
	n.logger.Debug("review request posted", "id", e.DecisionID, "channel", n.channel)
	return nil
}

// ReviewMessage renders the Slack text for a decision awaiting review.
func ReviewMessage(issued events.DecisionIssued) string {
	d := issued.Decision
	var b strings.Builder
	fmt.Fprintf(&b, ":warning: *Time estimate needs review* `%s`\n", d.ID)
	fmt.Fprintf(&b, "Estimate: *%.2f h* (confidence %.0f%%, %s)\n", d.Value(), d.Confidence*100, d.Status)
	fmt.Fprintf(&b, "Volume %.1f m³, distance %.1f km, team of %d",
		d.Input.Volume, d.Input.Distance, d.Input.TeamSize)
	if d.Output != nil && d.Output.MLEnhanced {
		fmt.Fprintf(&b, "\nModel: %s", d.ModelVersion)
	}
	return b.String()
}
