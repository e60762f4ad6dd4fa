package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/payment"
)

// Service creates hosted checkout sessions from validated carts.
type Service struct {
	Provider         payment.Provider
	SuccessURL       string
	CancelURL        string
	DefaultCurrency  string
	TaxRate          decimal.Decimal
	AllowedCountries []string
	ProviderTimeout  time.Duration
}

// Result is the outcome of session creation returned to the client.
type Result struct {
	SessionID string
	URL       string
	Summary   Summary
}

// CreateSession validates the cart, prices it, and opens a session with the
// provider. idempotencyKey is forwarded to the provider when present so a
// client retry of the same request cannot open a second session.
func (s *Service) CreateSession(ctx context.Context, req Request, idempotencyKey string) (Result, error) {
	if err := ValidateRequest(req); err != nil {
		return Result{}, err
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.DefaultCurrency
	}
	lines, summary, err := BuildLineItems(req.Items, s.TaxRate)
	if err != nil {
		return Result{}, err
	}

	metadata := map[string]string{"userId": "guest"}
	if strings.TrimSpace(req.UserID) != "" {
		metadata["userId"] = strings.TrimSpace(req.UserID)
	}
	if strings.TrimSpace(req.Shipping.FullName) != "" {
		metadata["fullName"] = strings.TrimSpace(req.Shipping.FullName)
	}
	if strings.TrimSpace(req.Shipping.Phone) != "" {
		metadata["phone"] = strings.TrimSpace(req.Shipping.Phone)
	}

	providerReq := payment.SessionRequest{
		LineItems:        lines,
		Currency:         currency,
		CustomerEmail:    strings.TrimSpace(req.Shipping.Email),
		SuccessURL:       s.SuccessURL,
		CancelURL:        s.CancelURL,
		AllowedCountries: s.AllowedCountries,
		Metadata:         metadata,
		IdempotencyKey:   strings.TrimSpace(idempotencyKey),
	}

	if s.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ProviderTimeout)
		defer cancel()
	}
	sess, err := s.Provider.CreateSession(ctx, providerReq)
	if err != nil {
		return Result{}, err
	}
	return Result{SessionID: sess.ID, URL: sess.URL, Summary: summary}, nil
}
