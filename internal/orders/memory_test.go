package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
)

func TestMemoryRecorderUpsertsBySessionID(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, Record{
		SessionID:     "cs_test_1",
		PaymentStatus: "paid",
		AmountTotal:   4200,
		Currency:      "usd",
	}))
	first, err := rec.BySessionID(ctx, "cs_test_1")
	require.NoError(t, err)

	require.NoError(t, rec.Record(ctx, Record{
		SessionID:       "cs_test_1",
		PaymentIntentID: "pi_1",
		PaymentStatus:   "paid",
		AmountTotal:     4200,
		Currency:        "usd",
	}))

	assert.Equal(t, 1, rec.Len())
	second, err := rec.BySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", second.PaymentIntentID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestMemoryRecorderUnknownSession(t *testing.T) {
	rec := NewMemoryRecorder()
	_, err := rec.BySessionID(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeNotFound))
}
