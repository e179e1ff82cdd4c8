package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// CollaboratorFailure records a side effect that failed after its transition was
// committed. The retry job replays it; collaborators are idempotent per order.
type CollaboratorFailure struct {
	ID           kernel.UUID
	OrderID      kernel.UUID
	EventID      kernel.UUID
	Collaborator string
	Error        string
	Attempts     int
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// FailureRepository stores collaborator failures outside the order transaction.
type FailureRepository interface {
	Add(ctx context.Context, f CollaboratorFailure) error

	// GetUnresolved returns failures with fewer than maxAttempts attempts, oldest first.
	GetUnresolved(ctx context.Context, maxAttempts int, limit int) ([]CollaboratorFailure, error)

	// RecordAttempt increments the attempt counter and stores the latest error.
	RecordAttempt(ctx context.Context, id kernel.UUID, errMsg string) error

	MarkResolved(ctx context.Context, id kernel.UUID, at time.Time) error
}
