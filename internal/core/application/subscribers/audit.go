package subscribers

import (
	"context"
	"log/slog"

	"orderflow/internal/core/domain/model/event"
)

const AuditName = "audit"

// Audit writes one structured log line per lifecycle event.
type Audit struct {
	logger *slog.Logger
}

func NewAudit(logger *slog.Logger) *Audit {
	return &Audit{logger: logger.With("component", "audit")}
}

func (a *Audit) Name() string { return AuditName }

func (a *Audit) Handle(ctx context.Context, e *event.LifecycleEvent) error {
	s := e.Snapshot()
	a.logger.InfoContext(ctx, "order lifecycle event",
		"event_id", e.ID().String(),
		"event_type", e.Type().String(),
		"order_id", s.OrderID,
		"order_number", s.OrderNumber,
		"from", s.PreviousStatus,
		"to", s.Status,
		"actor_id", s.ActorID,
		"actor_role", s.ActorRole,
		"occurred_at", e.OccurredAt(),
	)
	return nil
}
