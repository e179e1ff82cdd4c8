package commands

import "errors"

// ErrConflict is returned when a transition lost the optimistic-concurrency race twice.
// The caller may retry the request.
var ErrConflict = errors.New("concurrent modification conflict")
