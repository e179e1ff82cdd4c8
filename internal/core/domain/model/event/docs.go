// Package event defines the LifecycleEvent, the immutable record written in the same
// transaction as every successful order transition and later fanned out to subscribers.
package event
