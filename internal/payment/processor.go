package payment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/events"
	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/orders"
)

// Processor dispatches verified webhook events to their handlers. Order
// recording must succeed before the delivery is acknowledged; event emission
// and logging are best-effort side effects.
type Processor struct {
	Orders orders.Recorder
	Events *events.Bus
	Log    zerolog.Logger
}

// Process handles one verified event. A non-nil return means the delivery
// must be retried by the provider; everything handled or deliberately ignored
// returns nil.
func (p *Processor) Process(ctx context.Context, event VerifiedEvent) error {
	switch event.Kind {
	case EventSessionCompleted:
		return p.handleSessionCompleted(ctx, event)
	case EventPaymentSucceeded:
		p.emit(ctx, events.TopicPaymentSucceeded, event.PaymentIntentID, map[string]string{
			"paymentIntent": event.PaymentIntentID,
		})
		p.Log.Info().
			Str("event_id", event.ID).
			Str("payment_intent", event.PaymentIntentID).
			Msg("payment succeeded")
		return nil
	case EventPaymentFailed:
		p.emit(ctx, events.TopicPaymentFailed, event.PaymentIntentID, map[string]string{
			"paymentIntent": event.PaymentIntentID,
			"reason":        event.FailureReason,
		})
		p.Log.Warn().
			Str("event_id", event.ID).
			Str("payment_intent", event.PaymentIntentID).
			Str("reason", event.FailureReason).
			Msg("payment failed")
		return nil
	case EventSessionExpired:
		sessionID := ""
		if event.Session != nil {
			sessionID = event.Session.SessionID
		}
		p.emit(ctx, events.TopicSessionExpired, sessionID, map[string]string{
			"sessionId": sessionID,
		})
		p.Log.Info().
			Str("event_id", event.ID).
			Str("session_id", sessionID).
			Msg("checkout session expired")
		return nil
	default:
		p.Log.Debug().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("unhandled webhook event")
		return nil
	}
}

func (p *Processor) handleSessionCompleted(ctx context.Context, event VerifiedEvent) error {
	sess := event.Session
	if sess == nil {
		p.Log.Error().Str("event_id", event.ID).Msg("completed event missing session payload")
		return nil
	}
	rec := orders.Record{
		SessionID:       sess.SessionID,
		PaymentIntentID: sess.PaymentIntentID,
		PaymentStatus:   string(sess.PaymentStatus),
		CustomerEmail:   sess.CustomerEmail,
		AmountTotal:     sess.AmountTotal,
		Currency:        sess.Currency,
		UserID:          sess.UserID,
		Metadata:        sess.Metadata,
	}
	if err := p.Orders.Record(ctx, rec); err != nil {
		p.Log.Error().Err(err).
			Str("event_id", event.ID).
			Str("session_id", sess.SessionID).
			Msg("record order")
		return err
	}
	p.emit(ctx, events.TopicSessionCompleted, sess.SessionID, map[string]any{
		"sessionId":     sess.SessionID,
		"paymentIntent": sess.PaymentIntentID,
		"paymentStatus": string(sess.PaymentStatus),
		"amountTotal":   sess.AmountTotal,
		"currency":      sess.Currency,
	})
	p.Log.Info().
		Str("event_id", event.ID).
		Str("session_id", sess.SessionID).
		Str("payment_status", string(sess.PaymentStatus)).
		Int64("amount_total", sess.AmountTotal).
		Msg("checkout session completed")
	return nil
}

func (p *Processor) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if p.Events == nil || aggregateID == "" {
		return
	}
	if _, err := p.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		p.Log.Warn().Err(err).Str("topic", topic).Msg("emit domain event")
	}
}
