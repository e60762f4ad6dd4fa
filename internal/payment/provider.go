package payment

import (
	"context"
	"net/http"
	"strings"
)

// Status is the internal projection of a provider payment status.
type Status string

const (
	StatusUnpaid            Status = "unpaid"
	StatusPaid              Status = "paid"
	StatusNoPaymentRequired Status = "no_payment_required"
)

// StatusFromProvider maps a provider status string onto the internal enum.
// Unknown strings map to unpaid: absence of explicit "paid" evidence means
// not paid.
func StatusFromProvider(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid":
		return StatusPaid
	case "no_payment_required":
		return StatusNoPaymentRequired
	default:
		return StatusUnpaid
	}
}

// LineItem is a single provider charge line in minor units.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest captures everything required to open a checkout session with
// a provider.
type SessionRequest struct {
	LineItems        []LineItem
	Currency         string
	CustomerEmail    string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	Metadata         map[string]string
	IdempotencyKey   string
}

// Session is the minimal result of session creation. Nothing beyond the id
// and redirect URL leaks into the caller contract.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the read-only projection returned by verification.
type SessionStatus struct {
	Status          Status
	CustomerEmail   string
	AmountTotal     int64
	Currency        string
	PaymentIntentID string
}

// EventKind discriminates webhook notifications after signature verification.
type EventKind string

const (
	EventSessionCompleted EventKind = "session_completed"
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventSessionExpired   EventKind = "session_expired"
	EventOther            EventKind = "other"
)

// CompletedSession carries the payload of session-scoped webhook events.
type CompletedSession struct {
	SessionID       string
	PaymentIntentID string
	PaymentStatus   Status
	CustomerEmail   string
	AmountTotal     int64
	Currency        string
	UserID          string
	Metadata        map[string]string
}

// VerifiedEvent is a webhook notification whose signature has been validated
// against the raw request bytes.
type VerifiedEvent struct {
	ID              string
	Kind            EventKind
	Type            string
	Session         *CompletedSession
	PaymentIntentID string
	FailureReason   string
}

// Provider abstracts the operations required from an upstream payment
// provider. Implementations are stateless and injected at construction.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (SessionStatus, error)
	VerifyWebhook(r *http.Request, body []byte) (VerifiedEvent, error)
}
