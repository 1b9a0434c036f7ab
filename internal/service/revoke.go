package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"securedoc/internal/repository"
)

// RevocationService performs the single irreversible action in the system:
// collapsing a document's expiry to now and appending the blocked audit
// entry. Both effects land in one repository transaction; the service's job
// is to retry until that transaction is durable, since a terminated session
// with no log entry (or the reverse) is an inconsistent state.
type RevocationService struct {
	repo    repository.DocumentRepository
	log     *zap.Logger
	retries int
	backoff time.Duration
	now     func() time.Time
}

// NewRevocationService constructs the effector.
func NewRevocationService(repo repository.DocumentRepository, log *zap.Logger) *RevocationService {
	return &RevocationService{
		repo:    repo,
		log:     log,
		retries: 5,
		backoff: 200 * time.Millisecond,
		now:     time.Now,
	}
}

// Revoke collapses the document's expiry and appends the blocked entry.
// Re-invocation with the same reason is a no-op once collapsed; a different
// reason is a conflict that only gets logged (the latest entry's reason
// stands, the log itself stays append-only).
func (s *RevocationService) Revoke(ctx context.Context, secureID, reason string) error {
	var lastErr error
	wait := s.backoff
	for attempt := 1; attempt <= s.retries; attempt++ {
		already, err := s.repo.Revoke(ctx, secureID, reason, s.now().UTC())
		if err == nil {
			if already {
				s.log.Warn("revocation of already-collapsed document",
					zap.String("secure_id", secureID),
					zap.String("reason", reason))
			} else {
				s.log.Info("document revoked",
					zap.String("secure_id", secureID),
					zap.String("reason", reason))
			}
			return nil
		}
		lastErr = err
		s.log.Warn("revocation attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("revoke %s: %w", secureID, lastErr)
}
