package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/orders"
)

type fakeProvider struct {
	createCalls int
	createFn    func(ctx context.Context, req SessionRequest) (Session, error)
	getCalls    int
	getFn       func(ctx context.Context, id string) (SessionStatus, error)
	verifyCalls int
	verifyFn    func(r *http.Request, body []byte) (VerifiedEvent, error)
}

func (f *fakeProvider) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return Session{ID: "cs_fake", URL: "https://checkout.example/cs_fake"}, nil
}

func (f *fakeProvider) GetSession(ctx context.Context, id string) (SessionStatus, error) {
	f.getCalls++
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return SessionStatus{Status: StatusUnpaid}, nil
}

func (f *fakeProvider) VerifyWebhook(r *http.Request, body []byte) (VerifiedEvent, error) {
	f.verifyCalls++
	if f.verifyFn != nil {
		return f.verifyFn(r, body)
	}
	return VerifiedEvent{}, nil
}

type fakeReplayStore struct {
	seen map[string]bool
	err  error
}

func (s *fakeReplayStore) Seen(_ context.Context, eventID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.seen[eventID], nil
}

func (s *fakeReplayStore) Mark(_ context.Context, eventID string) error {
	if s.err != nil {
		return s.err
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	s.seen[eventID] = true
	return nil
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, orders.Record) error {
	return errors.New("store unavailable")
}

func (failingRecorder) BySessionID(context.Context, string) (orders.Record, error) {
	return orders.Record{}, errors.New("store unavailable")
}

func newWebhookHandler(provider Provider, recorder orders.Recorder, replay ReplayStore) *WebhookHandler {
	return &WebhookHandler{
		Provider:  provider,
		Processor: &Processor{Orders: recorder, Log: zerolog.Nop()},
		Replay:    replay,
		Log:       zerolog.Nop(),
	}
}

func completedEvent(id, sessionID string) VerifiedEvent {
	return VerifiedEvent{
		ID:   id,
		Kind: EventSessionCompleted,
		Type: "checkout.session.completed",
		Session: &CompletedSession{
			SessionID:     sessionID,
			PaymentStatus: StatusPaid,
			AmountTotal:   4200,
			Currency:      "usd",
		},
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	recorder := orders.NewMemoryRecorder()
	provider := &Stripe{WebhookSecret: testWebhookSecret}
	handler := newWebhookHandler(provider, recorder, &fakeReplayStore{})

	body := `{"id":"evt_1","type":"checkout.session.completed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Handle(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "SIGNATURE")
	assert.Equal(t, 0, recorder.Len())
}

func TestWebhookRecordsCompletedSession(t *testing.T) {
	recorder := orders.NewMemoryRecorder()
	provider := &fakeProvider{verifyFn: func(*http.Request, []byte) (VerifiedEvent, error) {
		return completedEvent("evt_1", "cs_1"), nil
	}}
	handler := newWebhookHandler(provider, recorder, &fakeReplayStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	handler.Handle(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"received":true`)
	rec, err := recorder.BySessionID(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", rec.PaymentStatus)
	assert.Equal(t, int64(4200), rec.AmountTotal)
}

func TestWebhookDuplicateDeliveryAcknowledged(t *testing.T) {
	recorder := orders.NewMemoryRecorder()
	provider := &fakeProvider{verifyFn: func(*http.Request, []byte) (VerifiedEvent, error) {
		return completedEvent("evt_dup", "cs_dup"), nil
	}}
	handler := newWebhookHandler(provider, recorder, &fakeReplayStore{})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}"))
		rr := httptest.NewRecorder()
		handler.Handle(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, 1, recorder.Len())
}

func TestWebhookProcessesWhenReplayStoreDown(t *testing.T) {
	recorder := orders.NewMemoryRecorder()
	provider := &fakeProvider{verifyFn: func(*http.Request, []byte) (VerifiedEvent, error) {
		return completedEvent("evt_2", "cs_2"), nil
	}}
	handler := newWebhookHandler(provider, recorder, &fakeReplayStore{err: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	handler.Handle(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, recorder.Len())
}

func TestWebhookRedeliveryAfterFailureReprocesses(t *testing.T) {
	replay := &fakeReplayStore{}
	provider := &fakeProvider{verifyFn: func(*http.Request, []byte) (VerifiedEvent, error) {
		return completedEvent("evt_retry", "cs_retry"), nil
	}}

	// First delivery hits a broken order store and must not be marked seen.
	failing := newWebhookHandler(provider, failingRecorder{}, replay)
	rr := httptest.NewRecorder()
	failing.Handle(rr, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}")))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	// The provider redelivers once the store recovers; the event must be
	// processed, not acknowledged out of the dedup branch.
	recorder := orders.NewMemoryRecorder()
	recovered := newWebhookHandler(provider, recorder, replay)
	rr = httptest.NewRecorder()
	recovered.Handle(rr, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, recorder.Len())

	rec, err := recorder.BySessionID(context.Background(), "cs_retry")
	require.NoError(t, err)
	assert.Equal(t, "paid", rec.PaymentStatus)

	// A further redelivery is now a duplicate.
	rr = httptest.NewRecorder()
	recovered.Handle(rr, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, recorder.Len())
}

func TestRedisReplayStoreMarksOnlyExplicitly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &RedisReplayStore{Client: client, TTL: time.Hour}
	ctx := context.Background()

	seen, err := store.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	// Checking must not record: the same id stays unseen until Mark.
	seen, err = store.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, "evt_1"))
	seen, err = store.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestWebhookRecorderFailureSignalsRetry(t *testing.T) {
	provider := &fakeProvider{verifyFn: func(*http.Request, []byte) (VerifiedEvent, error) {
		return completedEvent("evt_3", "cs_3"), nil
	}}
	handler := newWebhookHandler(provider, failingRecorder{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	handler.Handle(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWebhookBodyTooLarge(t *testing.T) {
	handler := newWebhookHandler(&fakeProvider{}, orders.NewMemoryRecorder(), nil)
	handler.MaxBodyBytes = 64

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(strings.Repeat("x", 256)))
	rr := httptest.NewRecorder()
	handler.Handle(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
