package orders

import (
	"context"
	"time"
)

// Record is the durable projection of a completed checkout session. One
// record exists per session id regardless of how many times the provider
// delivers the completion notification.
type Record struct {
	SessionID       string            `bson:"session_id" json:"sessionId"`
	PaymentIntentID string            `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	PaymentStatus   string            `bson:"payment_status" json:"paymentStatus"`
	CustomerEmail   string            `bson:"customer_email,omitempty" json:"customerEmail,omitempty"`
	AmountTotal     int64             `bson:"amount_total" json:"amountTotal"`
	Currency        string            `bson:"currency" json:"currency"`
	UserID          string            `bson:"user_id,omitempty" json:"userId,omitempty"`
	Metadata        map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt       time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updated_at" json:"updatedAt"`
}

// Recorder persists order records keyed by session id. Record must be safe to
// call more than once with the same session id: redelivered notifications
// converge on a single record.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	BySessionID(ctx context.Context, sessionID string) (Record, error)
}
