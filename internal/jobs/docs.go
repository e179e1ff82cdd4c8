// Package jobs provides the scheduled background work of the order service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3 with a
// seconds field in every schedule.
//
// # Available Jobs
//
//  1. EventRedispatchJob - hands undispatched events and parked deliveries back to the dispatcher
//  2. FailureRetryJob - replays collaborator calls that failed after their transition committed
//  3. OrderExpiryJob - cancels unpaid orders and rejects orders nobody accepted, as the SYSTEM actor
//
// # Usage
//
//	jobManager := jobs.NewJobManager(cfg, redispatchHandler, retryHandler, expiryHandler, logger)
//
//	if err := jobManager.StartAll(ctx); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// A tick is skipped while the previous pass of the same job is still running.
// StopAll cancels the context of running passes and waits for them to return.
package jobs
