package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/obs"
)

// ReplayStore remembers which provider event ids have been fully processed.
// Seen is a read-only check; Mark records the id only after processing
// succeeded, so a failed delivery stays unmarked and its redelivery is
// reprocessed rather than swallowed by the dedup branch.
type ReplayStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisReplayStore tracks processed event ids in Redis with a TTL matching
// the provider's redelivery horizon.
type RedisReplayStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func replayKey(eventID string) string {
	return "payments:webhook:event:" + eventID
}

// Seen reports whether the event id has already been marked processed.
func (s *RedisReplayStore) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := s.Client.Exists(ctx, replayKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the event id as processed.
func (s *RedisReplayStore) Mark(ctx context.Context, eventID string) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.Client.SetNX(ctx, replayKey(eventID), 1, ttl).Err()
}

// WebhookHandler receives provider notifications. Signature verification runs
// against the exact raw bytes of the body before any decoding.
type WebhookHandler struct {
	Provider     Provider
	Processor    *Processor
	Replay       ReplayStore
	MaxBodyBytes int64
	Log          zerolog.Logger
}

// Handle is the POST handler for the webhook endpoint. Duplicate deliveries
// are acknowledged with 200 so the provider stops redelivering them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		h.count("unknown", "rejected")
		common.WriteAppError(w, err)
		return
	}

	event, err := h.Provider.VerifyWebhook(r, body)
	if err != nil {
		h.count("unknown", "rejected")
		h.Log.Warn().Err(err).Str("remote_addr", common.ClientIP(r)).Msg("webhook signature rejected")
		common.WriteAppError(w, err)
		return
	}

	if h.Replay != nil && event.ID != "" {
		seen, replayErr := h.Replay.Seen(r.Context(), event.ID)
		if replayErr != nil {
			// Dedup store down: process anyway, the recorder upsert keeps
			// redeliveries convergent.
			h.Log.Warn().Err(replayErr).Str("event_id", event.ID).Msg("replay store unavailable")
		} else if seen {
			h.count(string(event.Kind), "duplicate")
			h.Log.Info().Str("event_id", event.ID).Msg("duplicate webhook delivery acknowledged")
			common.JSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
	}

	if err := h.Processor.Process(r.Context(), event); err != nil {
		// Left unmarked: the 500 makes the provider redeliver, and that
		// redelivery must reprocess, not hit the dedup branch.
		h.count(string(event.Kind), "error")
		common.WriteAppError(w, common.NewInternal(err))
		return
	}
	if h.Replay != nil && event.ID != "" {
		if markErr := h.Replay.Mark(r.Context(), event.ID); markErr != nil {
			h.Log.Warn().Err(markErr).Str("event_id", event.ID).Msg("replay store unavailable")
		}
	}
	h.count(string(event.Kind), "ok")
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &common.AppError{
				Code:       common.CodeValidation,
				Message:    "request body too large",
				HTTPStatus: http.StatusRequestEntityTooLarge,
				Err:        err,
			}
		}
		return nil, common.NewValidation("unable to read request body", err)
	}
	return body, nil
}

func (h *WebhookHandler) count(kind, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(kind, result).Inc()
	}
}
