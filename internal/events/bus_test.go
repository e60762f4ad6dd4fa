package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/events"
)

type captureNotifier struct {
	seen []events.Event
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, event events.Event) error {
	n.seen = append(n.seen, event)
	return n.err
}

func TestBusEmitFansOutToAllNotifiers(t *testing.T) {
	first := &captureNotifier{}
	second := &captureNotifier{}
	bus := &events.Bus{Notifiers: []events.Notifier{first, second}}

	ev, err := bus.Emit(context.Background(), events.TopicPaymentSucceeded, "pi_123", map[string]string{"paymentIntent": "pi_123"})
	require.NoError(t, err)

	require.Len(t, first.seen, 1)
	require.Len(t, second.seen, 1)
	assert.Equal(t, ev.ID, first.seen[0].ID)
	assert.Equal(t, events.TopicPaymentSucceeded, ev.Topic)
	assert.Equal(t, "pi_123", ev.AggregateID)
	assert.False(t, ev.OccurredAt.IsZero())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "pi_123", payload["paymentIntent"])
}

func TestBusEmitContinuesPastFailingNotifier(t *testing.T) {
	failing := &captureNotifier{err: errors.New("boom")}
	healthy := &captureNotifier{}
	bus := &events.Bus{Notifiers: []events.Notifier{failing, healthy}}

	_, err := bus.Emit(context.Background(), events.TopicPaymentFailed, "pi_456", nil)
	require.Error(t, err)
	assert.Len(t, healthy.seen, 1)
}

func TestBusEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &events.Bus{}
	_, err := bus.Emit(context.Background(), "", "pi_1", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicSessionExpired, "  ", nil)
	require.Error(t, err)
}

func TestBusEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	bus := &events.Bus{}
	ev, err := bus.Emit(context.Background(), events.TopicSessionCompleted, "cs_1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(ev.Payload))
}
