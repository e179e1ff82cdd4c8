package commands

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultRedispatchGrace     = 30 * time.Second
	DefaultRedispatchBatchSize = 100
)

var ErrRedispatchEventsCommandIsNotConstructed = errors.New(
	"RedispatchEventsCommand must be created via NewRedispatchEventsCommand constructor",
)

// RedispatchEventsCommand re-enqueues events that were never fully dispatched and
// events with parked deliveries. The grace period keeps it from racing the dispatcher
// on events that were enqueued a moment ago.
type RedispatchEventsCommand struct { //nolint:recvcheck //using for validation
	grace     time.Duration
	batchSize int

	guard guard.ConstructorGuard
}

func NewRedispatchEventsCommand(grace time.Duration, batchSize int) (RedispatchEventsCommand, error) {
	var graceErr, batchErr error
	if grace < 0 {
		graceErr = errs.NewValueIsOutOfRangeError("grace", grace, "0s", "unbounded")
	}
	if batchSize < 1 {
		batchErr = errs.NewValueIsOutOfRangeError("batch size", batchSize, 1, "unbounded")
	}
	if err := errors.Join(graceErr, batchErr); err != nil {
		return RedispatchEventsCommand{}, fmt.Errorf("redispatch events: %w", err)
	}

	return RedispatchEventsCommand{
		grace:     grace,
		batchSize: batchSize,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c RedispatchEventsCommand) Validate() error {
	return c.guard.Validate(ErrRedispatchEventsCommandIsNotConstructed)
}

func (c RedispatchEventsCommand) Grace() time.Duration {
	return c.grace
}

func (c RedispatchEventsCommand) BatchSize() int {
	return c.batchSize
}
