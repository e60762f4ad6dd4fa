package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
)

var tracer = otel.Tracer("payments.stripe")

// SignatureHeader is the request header carrying the provider signature for
// webhook notifications.
const SignatureHeader = "Stripe-Signature"

// Stripe implements Provider against the Stripe Checkout and webhook APIs.
type Stripe struct {
	API           *client.API
	WebhookSecret string
}

// NewStripe constructs a Stripe provider with its own API client. The client
// is stateless and safe for concurrent use across requests.
func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{API: api, WebhookSecret: webhookSecret}
}

// CreateSession opens a hosted checkout session. No automatic retry happens
// here: a lost response after a successful create would otherwise duplicate
// live sessions, so the caller decides whether to retry.
func (p *Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := tracer.Start(ctx, "stripe.checkout_session.create")
	defer span.End()
	span.SetAttributes(attribute.Int("checkout.line_items", len(req.LineItems)))

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:     lineItems,
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}
	if len(req.Metadata) > 0 {
		params.Metadata = req.Metadata
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}
	params.Context = ctx

	sess, err := p.API.CheckoutSessions.New(params)
	if err != nil {
		span.SetStatus(codes.Error, "session create failed")
		return Session{}, p.translateError(err)
	}
	span.SetAttributes(attribute.String("checkout.session_id", sess.ID))
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// GetSession retrieves the current payment status of a session. Read-only and
// safe to call repeatedly.
func (p *Stripe) GetSession(ctx context.Context, id string) (SessionStatus, error) {
	ctx, span := tracer.Start(ctx, "stripe.checkout_session.get")
	defer span.End()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.API.CheckoutSessions.Get(id, params)
	if err != nil {
		span.SetStatus(codes.Error, "session lookup failed")
		return SessionStatus{}, p.translateError(err)
	}
	status := SessionStatus{
		Status:        StatusFromProvider(string(sess.PaymentStatus)),
		CustomerEmail: sessionEmail(sess),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}
	if sess.PaymentIntent != nil {
		status.PaymentIntentID = sess.PaymentIntent.ID
	}
	return status, nil
}

// VerifyWebhook validates the signature header against the exact raw request
// bytes. The comparison inside the webhook package is constant-time. No replay
// protection happens at this layer; a replayed valid payload verifies again
// and is deduplicated downstream by event id.
func (p *Stripe) VerifyWebhook(r *http.Request, body []byte) (VerifiedEvent, error) {
	header := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if header == "" {
		return VerifiedEvent{}, common.NewSignature("missing signature header", nil)
	}
	if strings.TrimSpace(p.WebhookSecret) == "" {
		return VerifiedEvent{}, common.NewSignature("webhook secret not configured", nil)
	}
	event, err := webhook.ConstructEventWithOptions(body, header, p.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return VerifiedEvent{}, common.NewSignature("signature verification failed", err)
	}
	return p.normaliseEvent(event)
}

func (p *Stripe) normaliseEvent(event stripe.Event) (VerifiedEvent, error) {
	verified := VerifiedEvent{ID: event.ID, Type: string(event.Type)}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return VerifiedEvent{}, common.NewInternal(err)
		}
		completed := &CompletedSession{
			SessionID:     sess.ID,
			PaymentStatus: StatusFromProvider(string(sess.PaymentStatus)),
			CustomerEmail: sessionEmail(&sess),
			AmountTotal:   sess.AmountTotal,
			Currency:      string(sess.Currency),
			Metadata:      sess.Metadata,
		}
		if sess.PaymentIntent != nil {
			completed.PaymentIntentID = sess.PaymentIntent.ID
		}
		if sess.Metadata != nil {
			completed.UserID = sess.Metadata["userId"]
		}
		verified.Session = completed
		if event.Type == stripe.EventTypeCheckoutSessionCompleted {
			verified.Kind = EventSessionCompleted
		} else {
			verified.Kind = EventSessionExpired
		}
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return VerifiedEvent{}, common.NewInternal(err)
		}
		verified.PaymentIntentID = intent.ID
		if event.Type == stripe.EventTypePaymentIntentSucceeded {
			verified.Kind = EventPaymentSucceeded
		} else {
			verified.Kind = EventPaymentFailed
			if intent.LastPaymentError != nil {
				verified.FailureReason = intent.LastPaymentError.Msg
			}
			if verified.FailureReason == "" {
				verified.FailureReason = "payment failed"
			}
		}
	default:
		verified.Kind = EventOther
	}
	return verified, nil
}

// translateError maps provider errors onto the internal taxonomy so raw
// provider shapes never leak past this package.
func (p *Stripe) translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.NewTimeout("payment provider timed out", err)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return common.NewNotFound("checkout session not found", err)
		}
		msg := stripeErr.Msg
		if msg == "" {
			msg = "payment provider rejected the request"
		}
		return common.NewProvider(msg, err)
	}
	return common.NewProvider(err.Error(), err)
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}
