package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/obs"
	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/payment"
)

// IdempotencyKeyHeader lets a client retry session creation without the risk
// of opening a second live session.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler wires the checkout services to HTTP.
type Handler struct {
	Svc    *Service
	Verify *payment.VerifyService
	Log    zerolog.Logger
}

// CreateSession handles POST /api/v1/checkout/session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countSession("invalid")
		common.WriteAppError(w, common.NewValidation("invalid JSON payload", err))
		return
	}

	result, err := h.Svc.CreateSession(r.Context(), req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		appErr := common.AsAppError(err)
		switch appErr.Code {
		case common.CodeValidation:
			h.countSession("invalid")
		case common.CodeTimeout:
			h.countSession("timeout")
		default:
			h.countSession("error")
		}
		if appErr.Code != common.CodeValidation {
			h.Log.Error().Err(err).Str("code", appErr.Code).Msg("create checkout session")
		}
		common.WriteAppError(w, err)
		return
	}

	h.countSession("ok")
	h.Log.Info().
		Str("session_id", result.SessionID).
		Str("subtotal", result.Summary.Subtotal.StringFixed(2)).
		Str("tax", result.Summary.Tax.StringFixed(2)).
		Str("total", result.Summary.Total.StringFixed(2)).
		Msg("checkout session created")
	common.JSON(w, http.StatusOK, map[string]any{
		"id":  result.SessionID,
		"url": result.URL,
	})
}

// VerifyPayment handles POST /api/v1/checkout/verify.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countVerify("invalid")
		common.WriteAppError(w, common.NewValidation("invalid JSON payload", err))
		return
	}

	status, err := h.Verify.Verify(r.Context(), req.SessionID)
	if err != nil {
		appErr := common.AsAppError(err)
		switch appErr.Code {
		case common.CodeValidation:
			h.countVerify("invalid")
		case common.CodeNotFound:
			h.countVerify("not_found")
		case common.CodeTimeout:
			h.countVerify("timeout")
		default:
			h.countVerify("error")
		}
		common.WriteAppError(w, err)
		return
	}

	h.countVerify("ok")
	resp := map[string]any{
		"status":      string(status.Status),
		"amountTotal": status.AmountTotal,
		"currency":    status.Currency,
	}
	if status.CustomerEmail != "" {
		resp["customerEmail"] = status.CustomerEmail
	}
	if status.PaymentIntentID != "" {
		resp["paymentIntent"] = status.PaymentIntentID
	}
	common.JSON(w, http.StatusOK, resp)
}

func (h *Handler) countSession(result string) {
	if obs.CheckoutSessionTotal != nil {
		obs.CheckoutSessionTotal.WithLabelValues(result).Inc()
	}
}

func (h *Handler) countVerify(result string) {
	if obs.PaymentVerifyTotal != nil {
		obs.PaymentVerifyTotal.WithLabelValues(result).Inc()
	}
}
