package payment

import (
	"context"
	"strings"
	"time"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
)

// VerifyService answers "has this session been paid" by reading the current
// session state from the provider. Read-only: clients may poll it while
// waiting for payment to settle.
type VerifyService struct {
	Provider Provider
	Timeout  time.Duration
}

// Verify fetches the session status. An empty id fails before any provider
// call.
func (s *VerifyService) Verify(ctx context.Context, sessionID string) (SessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionStatus{}, common.NewValidation("sessionId is required", nil)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Provider.GetSession(ctx, sessionID)
}
