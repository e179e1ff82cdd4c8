// Package errs provides the shared error taxonomy of the order lifecycle service.
//
// Every error type follows the same shape:
//   - a sentinel variable (ErrObjectNotFound, ErrValueIsInvalid, ...) usable with errors.Is
//   - a struct carrying the offending parameter and an optional cause
//   - constructors with and without a cause
//   - Unwrap returning the sentinel
//
// ErrObjectNotFound maps to the NotFound outcome of a transition request and
// ErrVersionIsInvalid to an optimistic-lock mismatch detected by a repository.
package errs
