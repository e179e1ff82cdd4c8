// Package dispatcher fans lifecycle events out to subscribers after the transition that
// produced them has committed.
//
// Events of one order always land on the same worker. On top of that, before an event
// goes to a subscriber, every earlier event of the same order that the subscriber has not
// received is delivered first, so each subscriber sees an order's events in commit order
// even when one of them was parked or never made it into the queue. The subscribers of a
// single event run concurrently; each call is bounded by a timeout and retried with
// exponential backoff. A subscriber that keeps failing is parked in the delivery log and
// left to the redispatch job, and so is every later event of that order for it.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrSubscriberRegistryFull is returned by Register once MaxSubscribers are registered.
	ErrSubscriberRegistryFull = errors.New("subscriber registry is full")

	// ErrDispatcherStopped is returned by Start after Stop.
	ErrDispatcherStopped = errors.New("dispatcher is stopped")
)

// Subscriber receives lifecycle events. Handle may be called more than once for the
// same event (after a timeout or a restart) and should tolerate that.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, e *event.LifecycleEvent) error
}

// EventLog is the part of the event store the dispatcher reads and updates.
type EventLog interface {
	// GetByOrder returns an order's events in commit order.
	GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*event.LifecycleEvent, error)
	// MarkDispatched records that an event has been fully fanned out.
	MarkDispatched(ctx context.Context, id kernel.UUID, at time.Time) error
}

// Config bounds the dispatcher's resources.
type Config struct {
	Workers        int
	QueueSize      int
	MaxSubscribers int

	// Timeout bounds a single subscriber call.
	Timeout time.Duration

	// MaxAttempts is the per-delivery retry budget, including the first call.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		QueueSize:       1024,
		MaxSubscribers:  16,
		Timeout:         5 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (c Config) validate() error {
	return errors.Join(
		positive("workers", c.Workers),
		positive("queue size", c.QueueSize),
		positive("max subscribers", c.MaxSubscribers),
		positive("max attempts", c.MaxAttempts),
		positive("timeout", int(c.Timeout)),
	)
}

func positive(name string, v int) error {
	if v < 1 {
		return errs.NewValueIsOutOfRangeError(name, v, 1, "unbounded")
	}
	return nil
}

// Dispatcher implements ports.EventDispatcher.
type Dispatcher struct {
	cfg        Config
	deliveries ports.DeliveryLog
	events     EventLog
	logger     *slog.Logger
	now        func() time.Time

	subMu       sync.RWMutex
	subscribers []Subscriber

	// queueMu guards queues against Enqueue racing with Stop.
	queueMu sync.RWMutex
	queues  []chan *event.LifecycleEvent
	running bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher. Subscribers are added with Register; workers start with Start.
func New(cfg Config, deliveries ports.DeliveryLog, events EventLog, logger *slog.Logger) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("dispatcher config: %w", err)
	}
	if deliveries == nil {
		return nil, errs.NewValueIsRequiredError("delivery log")
	}
	if events == nil {
		return nil, errs.NewValueIsRequiredError("event log")
	}

	queues := make([]chan *event.LifecycleEvent, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan *event.LifecycleEvent, cfg.QueueSize)
	}

	return &Dispatcher{
		cfg:        cfg,
		deliveries: deliveries,
		events:     events,
		logger:     logger.With("component", "event_dispatcher"),
		now:        time.Now,
		queues:     queues,
	}, nil
}

// Register adds a subscriber. Names must be unique; they key the delivery log.
func (d *Dispatcher) Register(s Subscriber) error {
	if s == nil || s.Name() == "" {
		return errs.NewValueIsRequiredError("subscriber")
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	if len(d.subscribers) >= d.cfg.MaxSubscribers {
		return fmt.Errorf("%w: limit is %d", ErrSubscriberRegistryFull, d.cfg.MaxSubscribers)
	}
	for _, existing := range d.subscribers {
		if existing.Name() == s.Name() {
			return errs.NewValueIsInvalidErrorWithCause("subscriber",
				fmt.Errorf("%q is already registered", s.Name()))
		}
	}
	d.subscribers = append(d.subscribers, s)
	return nil
}

// Subscribers returns the registered subscriber names in registration order.
func (d *Dispatcher) Subscribers() []string {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	names := make([]string, 0, len(d.subscribers))
	for _, s := range d.subscribers {
		names = append(names, s.Name())
	}
	return names
}

// Start launches one worker per queue. The workers stop when ctx is cancelled or
// Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}
	if d.running {
		return nil
	}

	ctx, d.cancel = context.WithCancel(ctx)
	for _, q := range d.queues {
		d.wg.Add(1)
		go d.work(ctx, q)
	}
	d.running = true
	d.logger.InfoContext(ctx, "dispatcher started", "workers", len(d.queues), "subscribers", len(d.Subscribers()))
	return nil
}

// Stop closes the queues, lets the workers drain what is already queued and waits for
// them until ctx expires. Events still queued after that stay undispatched in storage.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.queueMu.Lock()
	if d.stopped {
		d.queueMu.Unlock()
		return nil
	}
	d.stopped = true
	wasRunning := d.running
	for _, q := range d.queues {
		close(q)
	}
	d.queueMu.Unlock()

	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

// Enqueue hands e to the worker that owns its order without blocking. It returns
// false when the dispatcher is not running or that worker's queue is full.
func (d *Dispatcher) Enqueue(e *event.LifecycleEvent) bool {
	if e.Validate() != nil {
		return false
	}

	d.queueMu.RLock()
	defer d.queueMu.RUnlock()

	if !d.running || d.stopped {
		return false
	}

	select {
	case d.queues[d.shard(e.OrderID())] <- e:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) shard(orderID kernel.UUID) int {
	h := fnv.New32a()
	raw := orderID.Bytes()
	_, _ = h.Write(raw[:])
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) work(ctx context.Context, queue <-chan *event.LifecycleEvent) {
	defer d.wg.Done()
	for e := range queue {
		d.Dispatch(ctx, e)
	}
}

// Dispatch delivers e synchronously to every subscriber that has not yet received it
// and marks the event dispatched once each one is delivered or parked. A subscriber
// first gets the earlier events of the order it is missing; if one of those parks, e is
// parked behind it without being sent.
//
// When the order's history cannot be read e is left undispatched for the redispatch job.
func (d *Dispatcher) Dispatch(ctx context.Context, e *event.LifecycleEvent) {
	log := d.logger.With("event_id", e.ID().String(), "order_id", e.OrderID().String(), "event_type", e.Type().String())

	backlog, err := d.backlog(ctx, e)
	if err != nil {
		log.WarnContext(ctx, "cannot order delivery, leaving event for redispatch", "error", err)
		return
	}

	previous, err := d.deliveries.Get(ctx, e.ID())
	if err != nil {
		log.WarnContext(ctx, "delivery log unavailable, delivering to every subscriber", "error", err)
		previous = map[string]ports.Delivery{}
	}

	d.subMu.RLock()
	subscribers := make([]Subscriber, len(d.subscribers))
	copy(subscribers, d.subscribers)
	d.subMu.RUnlock()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		recorded = true
	)
	for _, s := range subscribers {
		prev, seen := previous[s.Name()]
		if seen && prev.Status == ports.DeliveryDelivered {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := d.deliverAfter(ctx, s, backlog, e, prev.Attempts, log)
			if outcome.Status == ports.DeliveryParked {
				log.WarnContext(ctx, "delivery parked",
					"subscriber", s.Name(), "attempts", outcome.Attempts, "error", outcome.LastError)
			}
			if err := d.deliveries.Record(context.WithoutCancel(ctx), outcome); err != nil {
				log.ErrorContext(ctx, "failed to record delivery", "subscriber", s.Name(), "error", err)
				mu.Lock()
				recorded = false
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if !recorded {
		return
	}
	if err := d.events.MarkDispatched(context.WithoutCancel(ctx), e.ID(), d.now()); err != nil {
		log.ErrorContext(ctx, "failed to mark event dispatched", "error", err)
	}
}

// pendingEvent is an earlier event of the same order with its delivery records.
type pendingEvent struct {
	event      *event.LifecycleEvent
	deliveries map[string]ports.Delivery
}

// backlog returns the events committed before e that some subscriber still lacks,
// oldest first.
func (d *Dispatcher) backlog(ctx context.Context, e *event.LifecycleEvent) ([]pendingEvent, error) {
	history, err := d.events.GetByOrder(ctx, e.OrderID())
	if err != nil {
		return nil, fmt.Errorf("load order events: %w", err)
	}

	subscribers := d.Subscribers()
	var backlog []pendingEvent
	for _, earlier := range precedingEvents(history, e) {
		delivered, err := d.deliveries.Get(ctx, earlier.ID())
		if err != nil {
			return nil, fmt.Errorf("load deliveries of %s: %w", earlier.ID(), err)
		}
		for _, name := range subscribers {
			if delivered[name].Status != ports.DeliveryDelivered {
				backlog = append(backlog, pendingEvent{event: earlier, deliveries: delivered})
				break
			}
		}
	}
	return backlog, nil
}

// precedingEvents cuts history at e. An event missing from history is placed by its
// timestamp.
func precedingEvents(history []*event.LifecycleEvent, e *event.LifecycleEvent) []*event.LifecycleEvent {
	for i, h := range history {
		if h.ID().IsEqual(e.ID()) {
			return history[:i]
		}
	}
	var earlier []*event.LifecycleEvent
	for _, h := range history {
		if h.OccurredAt().Before(e.OccurredAt()) {
			earlier = append(earlier, h)
		}
	}
	return earlier
}

// deliverAfter brings s up to date on the backlog and then delivers e. It returns the
// outcome to record for e.
func (d *Dispatcher) deliverAfter(
	ctx context.Context,
	s Subscriber,
	backlog []pendingEvent,
	e *event.LifecycleEvent,
	priorAttempts int,
	log *slog.Logger,
) ports.Delivery {
	for _, p := range backlog {
		prev := p.deliveries[s.Name()]
		if prev.Status == ports.DeliveryDelivered {
			continue
		}

		outcome := d.deliver(ctx, s, p.event, prev.Attempts)
		if err := d.deliveries.Record(context.WithoutCancel(ctx), outcome); err != nil {
			log.ErrorContext(ctx, "failed to record delivery",
				"subscriber", s.Name(), "earlier_event_id", p.event.ID().String(), "error", err)
		}
		if outcome.Status == ports.DeliveryParked {
			return ports.Delivery{
				EventID:    e.ID(),
				Subscriber: s.Name(),
				Status:     ports.DeliveryParked,
				Attempts:   priorAttempts,
				LastError:  fmt.Sprintf("waiting for earlier event %s: %s", p.event.ID(), outcome.LastError),
				UpdatedAt:  d.now(),
			}
		}
		log.InfoContext(ctx, "delivered earlier event first",
			"subscriber", s.Name(), "earlier_event_id", p.event.ID().String())
	}
	return d.deliver(ctx, s, e, priorAttempts)
}

// deliver calls s with retries and returns the outcome to record. priorAttempts carries
// the count from earlier parked rounds so the log shows the total.
func (d *Dispatcher) deliver(ctx context.Context, s Subscriber, e *event.LifecycleEvent, priorAttempts int) ports.Delivery {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.InitialInterval
	policy.MaxInterval = d.cfg.MaxInterval
	policy.MaxElapsedTime = 0

	attempts := 0
	operation := func() error {
		attempts++
		return d.call(ctx, s, e)
	}
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(d.cfg.MaxAttempts-1)), ctx)) //nolint:gosec // MaxAttempts >= 1

	outcome := ports.Delivery{
		EventID:    e.ID(),
		Subscriber: s.Name(),
		Status:     ports.DeliveryDelivered,
		Attempts:   priorAttempts + attempts,
		UpdatedAt:  d.now(),
	}
	if err != nil {
		outcome.Status = ports.DeliveryParked
		outcome.LastError = err.Error()
	}
	return outcome
}

// call runs one subscriber invocation under the per-call timeout. A panic is turned
// into an error. A subscriber that ignores its context is abandoned when the timeout
// fires.
func (d *Dispatcher) call(ctx context.Context, s Subscriber, e *event.LifecycleEvent) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("subscriber %s panicked: %v", s.Name(), r)
			}
		}()
		result <- s.Handle(callCtx, e)
	}()

	select {
	case err := <-result:
		return err
	case <-callCtx.Done():
		return fmt.Errorf("subscriber %s: %w", s.Name(), callCtx.Err())
	}
}

var _ ports.EventDispatcher = (*Dispatcher)(nil)
