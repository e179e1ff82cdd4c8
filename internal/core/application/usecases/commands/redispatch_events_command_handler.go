package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
)

// RedispatchEventsCommandHandler feeds persisted but undelivered events back to the
// dispatcher. The dispatcher skips subscribers that already received an event.
type RedispatchEventsCommandHandler struct {
	uowFactory OrderUoWFactory
	deliveries ports.DeliveryLog
	dispatcher ports.EventDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewRedispatchEventsCommandHandler(
	uowFactory OrderUoWFactory,
	deliveries ports.DeliveryLog,
	dispatcher ports.EventDispatcher,
	logger *slog.Logger,
) *RedispatchEventsCommandHandler {
	return &RedispatchEventsCommandHandler{
		uowFactory: uowFactory,
		deliveries: deliveries,
		dispatcher: dispatcher,
		logger:     logger.With("component", "event_redispatch"),
		now:        time.Now,
	}
}

// Handle returns how many events were handed to the dispatcher.
func (h *RedispatchEventsCommandHandler) Handle(ctx context.Context, cmd RedispatchEventsCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	events := h.uowFactory.Create().EventRepository()
	undispatched, err := events.GetUndispatched(ctx, h.now().Add(-cmd.Grace()), cmd.BatchSize())
	if err != nil {
		return 0, fmt.Errorf("load undispatched events: %w", err)
	}

	parkedIDs, err := h.deliveries.ParkedEventIDs(ctx, cmd.BatchSize())
	if err != nil {
		return 0, fmt.Errorf("load parked deliveries: %w", err)
	}

	seen := make(map[kernel.UUID]struct{}, len(undispatched)+len(parkedIDs))
	batch := make([]*event.LifecycleEvent, 0, len(undispatched)+len(parkedIDs))
	for _, e := range undispatched {
		seen[e.ID()] = struct{}{}
		batch = append(batch, e)
	}
	for _, id := range parkedIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		e, err := events.Get(ctx, id)
		if err != nil {
			h.logger.WarnContext(ctx, "parked event not found", "event_id", id.String(), "error", err)
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, e)
	}

	// Oldest first, so an order's parked event is retried before the ones queued behind it.
	slices.SortStableFunc(batch, func(a, b *event.LifecycleEvent) int {
		return a.OccurredAt().Compare(b.OccurredAt())
	})

	enqueued := 0
	for _, e := range batch {
		if !h.dispatcher.Enqueue(e) {
			h.logger.WarnContext(ctx, "dispatch queue full, stopping redispatch", "remaining", len(batch)-enqueued)
			break
		}
		enqueued++
	}
	if enqueued > 0 {
		h.logger.InfoContext(ctx, "events redispatched", "count", enqueued)
	}
	return enqueued, nil
}
