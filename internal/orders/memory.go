package orders

import (
	"context"
	"sync"
	"time"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
)

// MemoryRecorder keeps order records in memory. Used in tests and as a
// fallback when no document store is configured.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string]Record)}
}

// Record upserts by session id, mirroring the durable implementation.
func (r *MemoryRecorder) Record(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.records[rec.SessionID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.records[rec.SessionID] = rec
	return nil
}

// BySessionID loads a single order record.
func (r *MemoryRecorder) BySessionID(_ context.Context, sessionID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return Record{}, common.NewNotFound("order not found", nil)
	}
	return rec, nil
}

// Len reports the number of stored records.
func (r *MemoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
