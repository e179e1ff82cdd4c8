package commands

import (
	"errors"
	"fmt"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultRetryMaxAttempts = 10
	DefaultRetryBatchSize   = 50
)

var ErrRetryCollaboratorFailuresCommandIsNotConstructed = errors.New(
	"RetryCollaboratorFailuresCommand must be created via NewRetryCollaboratorFailuresCommand constructor",
)

// RetryCollaboratorFailuresCommand replays recorded side-effect failures. Failures that
// already used maxAttempts are left for an operator.
type RetryCollaboratorFailuresCommand struct { //nolint:recvcheck //using for validation
	maxAttempts int
	batchSize   int

	guard guard.ConstructorGuard
}

func NewRetryCollaboratorFailuresCommand(maxAttempts, batchSize int) (RetryCollaboratorFailuresCommand, error) {
	var attemptsErr, batchErr error
	if maxAttempts < 1 {
		attemptsErr = errs.NewValueIsOutOfRangeError("max attempts", maxAttempts, 1, "unbounded")
	}
	if batchSize < 1 {
		batchErr = errs.NewValueIsOutOfRangeError("batch size", batchSize, 1, "unbounded")
	}
	if err := errors.Join(attemptsErr, batchErr); err != nil {
		return RetryCollaboratorFailuresCommand{}, fmt.Errorf("retry collaborator failures: %w", err)
	}

	return RetryCollaboratorFailuresCommand{
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (c RetryCollaboratorFailuresCommand) Validate() error {
	return c.guard.Validate(ErrRetryCollaboratorFailuresCommandIsNotConstructed)
}

func (c RetryCollaboratorFailuresCommand) MaxAttempts() int {
	return c.maxAttempts
}

func (c RetryCollaboratorFailuresCommand) BatchSize() int {
	return c.batchSize
}
