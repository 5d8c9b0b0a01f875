package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

type published struct {
	channel string
	message []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	data, _ := message.([]byte)
	p.msgs = append(p.msgs, published{channel: channel, message: data})
	return redis.NewIntResult(1, nil)
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func TestRedisForwarder_ChannelNames(t *testing.T) {
	f := NewRedisForwarder(&fakePublisher{}, "", nil)
	assert.Equal(t, "estimator:decision", f.Channel(events.KindDecision))

	f = NewRedisForwarder(&fakePublisher{}, "nordflytt", nil)
	assert.Equal(t, "nordflytt:reviewRequired", f.Channel(events.KindReviewRequired))
}

func TestRedisForwarder_PublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	f := NewRedisForwarder(pub, "estimator", nil)

	d := reviewDecision()
	err := f.Handle(context.Background(), events.Event{
		Kind:       events.KindDecision,
		Seq:        7,
		At:         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		DecisionID: d.ID,
		Payload:    events.DecisionIssued{Decision: d},
	})
	require.NoError(t, err)

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "estimator:decision", msgs[0].channel)

	var doc struct {
		Kind       string `json:"kind"`
		Seq        int64  `json:"seq"`
		DecisionID string `json:"decisionId"`
		Payload    struct {
			Decision struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"decision"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].message, &doc))
	assert.Equal(t, "decision", doc.Kind)
	assert.Equal(t, int64(7), doc.Seq)
	assert.Equal(t, d.ID, doc.DecisionID)
	assert.Equal(t, d.ID, doc.Payload.Decision.ID)
	assert.Equal(t, "pending", doc.Payload.Decision.Status)
}

func TestRedisForwarder_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	f := NewRedisForwarder(pub, "estimator", nil)

	err := f.Handle(context.Background(), events.Event{Kind: events.KindError})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimator:error")
}

func TestRedisForwarder_AttachedReceivesEveryKind(t *testing.T) {
	pub := &fakePublisher{}
	f := NewRedisForwarder(pub, "estimator", nil)

	bus := events.NewBus()
	_, err := f.Attach(bus)
	require.NoError(t, err)

	for _, k := range events.AllKinds() {
		bus.Publish(k, "", nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	msgs := pub.all()
	require.Len(t, msgs, len(events.AllKinds()))
	for i, k := range events.AllKinds() {
		assert.Equal(t, f.Channel(k), msgs[i].channel)
	}
}
