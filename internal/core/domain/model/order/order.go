package order

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("order must be created via NewOrder or RestoreOrder")
)

// Order is the aggregate root of the lifecycle engine. It owns the items, the monetary
// totals, the payment status and the append-only status history of a restaurant order.
//
// Order follows these invariants:
//   - Status changes only through ApplyTransition, which consults the transition table
//   - Every consecutive pair of history entries is a legal transition
//   - History timestamps never decrease
//   - Each per-status timestamp is set at most once
//   - total = subtotal + fees + tax - discount, and subtotal is the sum of item lines
//   - Unit prices are fixed at placement
//
// Order is not safe for concurrent use. Concurrent actors each load their own copy and
// the store serialises them through the version counter.
type Order struct {
	// id is the opaque identifier
	id kernel.UUID

	// number is the human-readable order number, immutable after placement
	number string

	restaurantID kernel.UUID
	customerID   kernel.UUID

	// courierID is set when the order enters CourierAssigned
	courierID *kernel.UUID

	channel       Channel
	paymentMethod PaymentMethod
	paymentStatus PaymentStatus
	status        Status

	items  []Item
	totals Totals

	createdAt time.Time

	// timeline keeps the first time each status was reached
	timeline map[Status]time.Time

	cancellationReason string
	cancelledBy        *kernel.UUID

	history []HistoryEntry

	// persistedHistory is how many history entries the store already holds
	persistedHistory int

	// version is the optimistic-concurrency counter, 0 until first persisted
	version int64

	isConstructed bool
}

// Draft carries everything the placement workflow knows about a new order.
type Draft struct {
	ID            kernel.UUID
	Number        string
	RestaurantID  kernel.UUID
	CustomerID    kernel.UUID
	Channel       Channel
	PaymentMethod PaymentMethod
	Items         []Item
	Fees          kernel.Money
	Tax           kernel.Money
	Discount      kernel.Money
	PlacedBy      Actor
	CreatedAt     time.Time
}

// NewOrder creates an order from a placement draft. This is the only way to create a
// fresh order, ensuring totals are computed from the captured item prices.
//
// Parameters:
//   - d: placement draft; Items must not be empty and Number must be set (see NewNumber)
//
// Returns:
//   - *Order: the created order with a single history entry
//   - error: joined validation errors when any field is invalid
//
// The initial status depends on how the order is paid:
//   - online payment for delivery or pickup starts in Pending until capture is confirmed
//   - cash on delivery, cash pickup and every dine-in order start in Placed
//
// Example:
//
//	o, err := order.NewOrder(order.Draft{
//	    ID:            kernel.NewUUID(),
//	    Number:        order.NewNumber(now),
//	    RestaurantID:  restaurantID,
//	    CustomerID:    customerID,
//	    Channel:       order.ChannelDelivery,
//	    PaymentMethod: order.PaymentOnline,
//	    Items:         items,
//	    Fees:          fees,
//	    Tax:           tax,
//	    Discount:      kernel.ZeroMoney(),
//	    PlacedBy:      customer,
//	    CreatedAt:     now,
//	})
func NewOrder(d Draft) (*Order, error) {
	o := &Order{
		paymentMethod: d.PaymentMethod,
		paymentStatus: PaymentPending,
		timeline:      map[Status]time.Time{},
		isConstructed: true,
	}

	var numberErr, createdErr error
	if strings.TrimSpace(d.Number) == "" {
		numberErr = errs.NewValueIsRequiredError("order number")
	}
	if d.CreatedAt.IsZero() {
		createdErr = errs.NewValueIsRequiredError("created at")
	}

	if err := errors.Join(
		o.setIdentity(d.ID, d.RestaurantID, d.CustomerID),
		numberErr,
		createdErr,
		d.Channel.Validate(),
		ValidatePaymentMethod(d.PaymentMethod),
		d.PlacedBy.Validate(),
		o.setItemsAndTotals(d.Items, d.Fees, d.Tax, d.Discount),
	); err != nil {
		return nil, err
	}

	o.number = d.Number
	o.channel = d.Channel
	o.createdAt = d.CreatedAt.UTC()
	o.status = initialStatus(d.Channel, d.PaymentMethod)
	if o.status == Placed {
		o.timeline[Placed] = o.createdAt
	}
	o.history = []HistoryEntry{{
		sequence: 1,
		status:   o.status,
		actor:    d.PlacedBy,
		at:       o.createdAt,
	}}

	return o, nil
}

// RestoreParams is the persisted state of an order.
type RestoreParams struct {
	ID                 kernel.UUID
	Number             string
	RestaurantID       kernel.UUID
	CustomerID         kernel.UUID
	CourierID          *kernel.UUID
	Channel            Channel
	PaymentMethod      PaymentMethod
	PaymentStatus      PaymentStatus
	Status             Status
	Items              []Item
	Totals             Totals
	CreatedAt          time.Time
	Timeline           map[Status]time.Time
	CancellationReason string
	CancelledBy        *kernel.UUID
	History            []HistoryEntry
	Version            int64
}

// RestoreOrder rebuilds an aggregate loaded from storage and re-checks its invariants,
// so a corrupted row surfaces as an error instead of an order that breaks later.
func RestoreOrder(p RestoreParams) (*Order, error) {
	o := &Order{
		number:             p.Number,
		courierID:          p.CourierID,
		channel:            p.Channel,
		paymentMethod:      p.PaymentMethod,
		paymentStatus:      p.PaymentStatus,
		status:             p.Status,
		createdAt:          p.CreatedAt.UTC(),
		timeline:           map[Status]time.Time{},
		cancellationReason: p.CancellationReason,
		cancelledBy:        p.CancelledBy,
		history:            slices.Clone(p.History),
		persistedHistory:   len(p.History),
		version:            p.Version,
		isConstructed:      true,
	}
	for s, at := range p.Timeline {
		o.timeline[s] = at.UTC()
	}

	var versionErr, totalsErr, courierErr, lastErr error
	if p.Version < 1 {
		versionErr = errs.NewValueIsInvalidErrorWithCause("version", fmt.Errorf("%d is less than 1", p.Version))
	}
	if err := p.Totals.Validate(); err != nil {
		totalsErr = err
	} else {
		totalsErr = o.restoreTotals(p.Items, p.Totals)
	}
	if p.Status.deliveryOnly() && p.CourierID == nil {
		courierErr = errs.NewValueIsRequiredErrorWithCause("courier id", fmt.Errorf("status is %s", p.Status))
	}
	if n := len(p.History); n > 0 && p.History[n-1].status != p.Status {
		lastErr = errs.NewValueIsInvalidErrorWithCause(
			"status", fmt.Errorf("%s does not match last history entry %s", p.Status, p.History[n-1].status))
	}

	if err := errors.Join(
		o.setIdentity(p.ID, p.RestaurantID, p.CustomerID),
		p.Channel.Validate(),
		ValidatePaymentMethod(p.PaymentMethod),
		p.PaymentStatus.Validate(),
		p.Status.Validate(),
		versionErr,
		totalsErr,
		courierErr,
		validateHistory(p.History),
		lastErr,
	); err != nil {
		return nil, err
	}

	return o, nil
}

// NewNumber generates a human-readable order number of the form
// ORD-<unix millis>-<8 upper-case hex digits>.
func NewNumber(now time.Time) string {
	suffix := strings.ReplaceAll(kernel.NewUUID().String(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

// Validate ensures the Order instance was created through NewOrder or RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by their identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID {
	return o.id
}

func (o *Order) Number() string {
	return o.number
}

func (o *Order) RestaurantID() kernel.UUID {
	return o.restaurantID
}

func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// CourierID returns the assigned courier, nil before CourierAssigned.
func (o *Order) CourierID() *kernel.UUID {
	return o.courierID
}

func (o *Order) Channel() Channel {
	return o.channel
}

func (o *Order) PaymentMethod() PaymentMethod {
	return o.paymentMethod
}

func (o *Order) PaymentStatus() PaymentStatus {
	return o.paymentStatus
}

func (o *Order) Status() Status {
	return o.status
}

// Items returns a copy of the order lines.
func (o *Order) Items() []Item {
	return slices.Clone(o.items)
}

func (o *Order) Totals() Totals {
	return o.totals
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// StatusAt returns when the order first reached s, or nil if it never did.
func (o *Order) StatusAt(s Status) *time.Time {
	at, ok := o.timeline[timelineKey(s)]
	if !ok {
		return nil
	}
	return &at
}

// Timeline returns a copy of the per-status timestamps.
func (o *Order) Timeline() map[Status]time.Time {
	return maps.Clone(o.timeline)
}

func (o *Order) CancellationReason() string {
	return o.cancellationReason
}

func (o *Order) CancelledBy() *kernel.UUID {
	return o.cancelledBy
}

// History returns a copy of the full status history, oldest first.
func (o *Order) History() []HistoryEntry {
	return slices.Clone(o.history)
}

// LastHistoryEntry returns the most recent history entry.
func (o *Order) LastHistoryEntry() HistoryEntry {
	return o.history[len(o.history)-1]
}

// PendingHistory returns the entries appended since the order was last persisted.
func (o *Order) PendingHistory() []HistoryEntry {
	return slices.Clone(o.history[o.persistedHistory:])
}

// Version returns the version the order was loaded (or last persisted) with.
func (o *Order) Version() int64 {
	return o.version
}

// MarkPersisted records that the store now holds this state at version.
func (o *Order) MarkPersisted(version int64) {
	o.version = version
	o.persistedHistory = len(o.history)
}

// IsActive reports whether the order can still change status.
func (o *Order) IsActive() bool {
	return !o.status.IsTerminal()
}

// IsReplayOf reports whether a request for target by actor was already applied: the
// order sits in target and the last history entry was written by the same actor acting
// in the same role.
func (o *Order) IsReplayOf(target Status, actor Actor) bool {
	if o.status != target || len(o.history) == 0 {
		return false
	}
	return o.LastHistoryEntry().actor.IsEqual(actor)
}

// CheckTransition runs the state, channel and payment rules against the current state.
func (o *Order) CheckTransition(target Status) error {
	return ValidateTransition(TransitionContext{
		From:    o.status,
		To:      target,
		Channel: o.channel,
		Payment: o.paymentStatus,
	})
}

// ApplyTransition moves the order to in.Target and appends a history entry.
//
// This method enforces the following business rules:
//   - The transition must pass CheckTransition
//   - CourierAssigned requires in.CourierID
//   - Per-status timestamps are recorded only the first time a status is reached
//   - Cancelled and Rejected record the note as the cancellation reason and the actor
//
// Parameters:
//   - in: target status, acting identity, optional note, clock reading, courier id
//
// Returns:
//   - Transition: the applied change including the new history entry
//   - error: *InvalidTransitionError when a rule rejects the request; the order is unchanged
//
// Example:
//
//	tr, err := o.ApplyTransition(order.TransitionInput{
//	    Target: order.Accepted,
//	    Actor:  kitchen,
//	    At:     time.Now(),
//	})
func (o *Order) ApplyTransition(in TransitionInput) (Transition, error) {
	if err := o.Validate(); err != nil {
		return Transition{}, err
	}
	if err := in.Actor.Validate(); err != nil {
		return Transition{}, NewInvalidTransitionError(RuleInput, o.status, in.Target, err.Error())
	}
	if err := o.CheckTransition(in.Target); err != nil {
		return Transition{}, err
	}
	if in.Target == CourierAssigned {
		if in.CourierID == nil || in.CourierID.Validate() != nil {
			return Transition{}, NewInvalidTransitionError(RuleInput, o.status, in.Target, "courier id is required")
		}
	}

	at := in.At.UTC()
	if last := o.LastHistoryEntry(); at.Before(last.at) {
		at = last.at
	}

	from := o.status
	switch in.Target { //nolint:exhaustive // only these targets carry extra fields
	case CourierAssigned:
		courierID := *in.CourierID
		o.courierID = &courierID
	case Cancelled, Rejected:
		actorID := in.Actor.ID()
		o.cancellationReason = in.Note
		o.cancelledBy = &actorID
	}

	key := timelineKey(in.Target)
	if _, seen := o.timeline[key]; !seen && key != Pending {
		o.timeline[key] = at
	}

	entry := HistoryEntry{
		sequence: len(o.history) + 1,
		status:   in.Target,
		actor:    in.Actor,
		note:     in.Note,
		at:       at,
	}
	o.history = append(o.history, entry)
	o.status = in.Target

	return Transition{From: from, To: in.Target, Entry: entry}, nil
}

// CompletePayment records a confirmed capture.
func (o *Order) CompletePayment() error {
	next, err := o.paymentStatus.Complete()
	if err != nil {
		return err
	}
	o.paymentStatus = next
	return nil
}

// FailPayment records a declined capture.
func (o *Order) FailPayment() error {
	next, err := o.paymentStatus.Fail()
	if err != nil {
		return err
	}
	o.paymentStatus = next
	return nil
}

// RefundPayment records a completed refund.
func (o *Order) RefundPayment() error {
	next, err := o.paymentStatus.Refund()
	if err != nil {
		return err
	}
	o.paymentStatus = next
	return nil
}

// NeedsRefund reports whether the order left the lifecycle with money still captured.
func (o *Order) NeedsRefund() bool {
	return (o.status == Cancelled || o.status == Rejected) && o.paymentStatus == PaymentCompleted
}

func (o *Order) setIdentity(id, restaurantID, customerID kernel.UUID) error {
	if err := errors.Join(id.Validate(), restaurantID.Validate(), customerID.Validate()); err != nil {
		return err
	}
	o.id = id
	o.restaurantID = restaurantID
	o.customerID = customerID
	return nil
}

func (o *Order) setItemsAndTotals(items []Item, fees, tax, discount kernel.Money) error {
	subtotal, err := sumItems(items)
	if err != nil {
		return err
	}
	totals, err := NewTotals(subtotal, fees, tax, discount)
	if err != nil {
		return err
	}
	o.items = slices.Clone(items)
	o.totals = totals
	return nil
}

func (o *Order) restoreTotals(items []Item, totals Totals) error {
	subtotal, err := sumItems(items)
	if err != nil {
		return err
	}
	if !subtotal.IsEqual(totals.Subtotal()) {
		return errs.NewValueIsInvalidErrorWithCause(
			"subtotal", fmt.Errorf("stored %s, items add up to %s", totals.Subtotal(), subtotal))
	}
	o.items = slices.Clone(items)
	o.totals = totals
	return nil
}

func sumItems(items []Item) (kernel.Money, error) {
	if len(items) == 0 {
		return kernel.Money{}, errs.NewValueIsRequiredError("items")
	}
	subtotal := kernel.ZeroMoney()
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return kernel.Money{}, fmt.Errorf("item %d: %w", i, err)
		}
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal, nil
}

func initialStatus(channel Channel, method PaymentMethod) Status {
	if channel == ChannelDineIn || method == PaymentCash {
		return Placed
	}
	return Pending
}

// timelineKey folds New onto Placed; both mean "waiting for the restaurant".
func timelineKey(s Status) Status {
	if s == New {
		return Placed
	}
	return s
}
