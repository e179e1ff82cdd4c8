package order

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
)

// HistoryEntry is one line of the append-only status history.
type HistoryEntry struct {
	sequence int
	status   Status
	actor    Actor
	note     string
	at       time.Time
}

// RestoreHistoryEntry rebuilds a persisted entry. Ordering against its neighbours is
// checked by RestoreOrder.
func RestoreHistoryEntry(sequence int, status Status, actor Actor, note string, at time.Time) (HistoryEntry, error) {
	var seqErr, atErr error
	if sequence < 1 {
		seqErr = errs.NewValueIsInvalidErrorWithCause("sequence", fmt.Errorf("%d is less than 1", sequence))
	}
	if at.IsZero() {
		atErr = errs.NewValueIsRequiredError("history timestamp")
	}
	if err := errors.Join(seqErr, status.Validate(), actor.Validate(), atErr); err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{sequence: sequence, status: status, actor: actor, note: note, at: at.UTC()}, nil
}

func (h HistoryEntry) Sequence() int {
	return h.sequence
}

func (h HistoryEntry) Status() Status {
	return h.status
}

func (h HistoryEntry) Actor() Actor {
	return h.actor
}

func (h HistoryEntry) Note() string {
	return h.note
}

func (h HistoryEntry) At() time.Time {
	return h.at
}

// isInitialStatus reports whether an order may start its history in s.
func isInitialStatus(s Status) bool {
	return s == Pending || s == Placed || s == New
}

// validateHistory checks that entries form a legal walk of the state machine with
// contiguous sequence numbers and non-decreasing timestamps.
func validateHistory(history []HistoryEntry) error {
	if len(history) == 0 {
		return errs.NewValueIsRequiredError("status history")
	}
	if !isInitialStatus(history[0].status) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status history", fmt.Errorf("cannot start in %s", history[0].status))
	}

	for i, entry := range history {
		if entry.sequence != i+1 {
			return errs.NewValueIsInvalidErrorWithCause(
				"status history", fmt.Errorf("entry %d has sequence %d", i+1, entry.sequence))
		}
		if i == 0 {
			continue
		}
		prev := history[i-1]
		if !prev.status.CanTransitionTo(entry.status) {
			return errs.NewValueIsInvalidErrorWithCause(
				"status history", fmt.Errorf("illegal step %s -> %s at sequence %d", prev.status, entry.status, entry.sequence))
		}
		if entry.at.Before(prev.at) {
			return errs.NewValueIsInvalidErrorWithCause(
				"status history", fmt.Errorf("timestamp of sequence %d precedes its predecessor", entry.sequence))
		}
	}
	return nil
}
