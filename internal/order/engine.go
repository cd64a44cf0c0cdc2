package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/appetiteclub/coordinator/pkg/enums/orderstatus"
	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/appetiteclub/coordinator/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	CancelByUser  = "user"
	CancelByStaff = "staff"
)

const (
	dineInConsignee       = "Dine-in guest"
	defaultUserReason     = "cancelled by customer"
	defaultStaffReason    = "cancelled by staff"
	defaultRejectReason   = "rejected by staff"
	maxNumberAttempts     = 3
	maxTransitionAttempts = 3
)

type SubmitRequest struct {
	UserID     uuid.UUID
	DiningType string
	TableID    *uuid.UUID
	AddressID  *uuid.UUID
	Remark     string
}

type CancelRequest struct {
	Reason  string
	By      string
	ActorID uuid.UUID
}

// PayResult is the outcome of a payment callback. Applied is false when the
// order had already left PENDING_PAYMENT, in which case nothing was written.
type PayResult struct {
	Order          *Order
	Applied        bool
	Reconciliation *ReconciliationError
}

func (r *PayResult) ReconciliationRequired() bool {
	return r != nil && r.Reconciliation != nil
}

type EngineDeps struct {
	Orders      OrderRepo
	UnitOfWork  UnitOfWork
	Tables      *tables.Coordinator
	Carts       CartSource
	Addresses   AddressSource
	Notifier    Notifier
	Anomalies   AnomalyReporter
	// Pricing nil means DefaultPricing; zero fees are honoured as given.
	Pricing     *Pricing
	Numbers     *NumberGenerator
	ShopAddress string
}

// Engine executes order lifecycle transitions. Each transition re-reads the
// order and writes it with a status-guarded update inside one unit of work,
// together with any table change it implies.
type Engine struct {
	orders      OrderRepo
	uow         UnitOfWork
	tables      *tables.Coordinator
	carts       CartSource
	addresses   AddressSource
	notifier    Notifier
	anomalies   AnomalyReporter
	pricing     Pricing
	numbers     *NumberGenerator
	shopAddress string
	logger      aqm.Logger
	now         func() time.Time
}

func NewEngine(deps EngineDeps, logger aqm.Logger) *Engine {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	numbers := deps.Numbers
	if numbers == nil {
		numbers = NewNumberGenerator()
	}
	pricing := DefaultPricing()
	if deps.Pricing != nil {
		pricing = *deps.Pricing
	}
	return &Engine{
		orders:      deps.Orders,
		uow:         deps.UnitOfWork,
		tables:      deps.Tables,
		carts:       deps.Carts,
		addresses:   deps.Addresses,
		notifier:    deps.Notifier,
		anomalies:   deps.Anomalies,
		pricing:     pricing,
		numbers:     numbers,
		shopAddress: deps.ShopAddress,
		logger:      logger,
		now:         time.Now,
	}
}

var (
	pending            = orderstatus.Statuses.PendingPayment
	toBeConfirmed      = orderstatus.Statuses.ToBeConfirmed
	confirmed          = orderstatus.Statuses.Confirmed
	deliveryInProgress = orderstatus.Statuses.DeliveryInProgress
)

// Submit creates an order from the user's cart. A dine-in order reserves its
// table in the same unit of work that creates it, so a lost reservation
// leaves no order behind.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*Order, error) {
	if req.DiningType != DiningDelivery && req.DiningType != DiningDineIn {
		return nil, ErrInvalidDiningType
	}

	var tableID uuid.UUID
	if req.DiningType == DiningDineIn {
		if req.TableID == nil || *req.TableID == uuid.Nil {
			return nil, ErrTableRequired
		}
		tableID = *req.TableID
	}

	items, err := e.carts.ListItems(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("cannot read cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	o := NewOrder()
	o.UserID = req.UserID
	o.DiningType = req.DiningType
	o.Items = items
	o.Remark = req.Remark
	if o.IsDineIn() {
		o.TableID = &tableID
	}

	// Address lookups stay outside the transaction.
	if err := e.fillAddress(ctx, o, req.AddressID); err != nil {
		return nil, err
	}

	quote := e.pricing.Quote(items, req.DiningType)
	o.PackAmount = quote.PackAmount
	o.Amount = quote.Total
	o.OrderTime = e.now()
	o.CreatedBy = userActor(req.UserID)
	o.UpdatedBy = userActor(req.UserID)

	var change *tables.Change
	for attempt := 1; ; attempt++ {
		o.Number = e.numbers.Next()
		o.BeforeCreate()
		change, err = e.create(ctx, o, tableID)
		if errors.Is(err, ErrDuplicateOrderNumber) && attempt < maxNumberAttempts {
			e.logger.Debug("order number collision, retrying", "number", o.Number)
			continue
		}
		break
	}

	if err != nil {
		if o.IsDineIn() && tables.IsBusinessError(err) {
			e.tables.PublishRejection(ctx, tableID, o.ID, "reserve", err)
			e.logger.Info("dine-in submission rejected", "table_id", tableID.String(), "user_id", req.UserID.String(), "reason", err.Error())
		}
		return nil, err
	}

	e.tables.Publish(ctx, change)

	if err := e.carts.Clear(ctx, req.UserID); err != nil {
		e.logger.Error("cannot clear cart after submission", "error", err, "user_id", req.UserID.String(), "order_id", o.ID.String())
	}

	e.logger.Info("order submitted", "order_id", o.ID.String(), "number", o.Number, "dining_type", o.DiningType, "amount", o.Amount.String())
	return o, nil
}

func (e *Engine) create(ctx context.Context, o *Order, tableID uuid.UUID) (*tables.Change, error) {
	var change *tables.Change

	err := e.uow.Do(ctx, func(ctx context.Context) error {
		change = nil

		if o.IsDineIn() {
			c, err := e.tables.Reserve(ctx, tableID, o.ID)
			if err != nil {
				return err
			}

			active, err := e.orders.CountActiveByTable(ctx, tableID)
			if err != nil {
				return fmt.Errorf("cannot count active orders for table: %w", err)
			}
			if active > 0 {
				return tables.ErrTableOccupied
			}

			o.TableNumber = c.Number
			change = c
		}

		if err := e.orders.Create(ctx, o); err != nil {
			if errors.Is(err, ErrDuplicateOrderNumber) {
				return err
			}
			return fmt.Errorf("cannot create order: %w", err)
		}
		return nil
	})

	return change, err
}

func (e *Engine) fillAddress(ctx context.Context, o *Order, addressID *uuid.UUID) error {
	if o.IsDineIn() {
		o.Consignee = dineInConsignee
		o.Address = e.shopAddress
		return nil
	}

	if addressID == nil || *addressID == uuid.Nil || e.addresses == nil {
		return ErrAddressNotFound
	}

	address, err := e.addresses.Resolve(ctx, *addressID)
	if err != nil {
		return fmt.Errorf("cannot resolve address: %w", err)
	}
	if address == nil || (address.UserID != uuid.Nil && address.UserID != o.UserID) {
		return ErrAddressNotFound
	}

	id := address.ID
	o.AddressID = &id
	o.Consignee = address.Consignee
	o.Phone = address.Phone
	o.Address = address.Detail
	return nil
}

// Pay applies a successful payment. Repeated callbacks, and callbacks for
// orders that were cancelled first, are no-ops. When the table cannot be
// occupied the payment still commits and the result carries a
// ReconciliationError.
func (e *Engine) Pay(ctx context.Context, id uuid.UUID) (*PayResult, error) {
	var result *PayResult
	var change *tables.Change

	err := e.uow.Do(ctx, func(ctx context.Context) error {
		result, change = nil, nil

		o, err := e.load(ctx, id)
		if err != nil {
			return err
		}

		if o.Status != pending.Code() {
			result = &PayResult{Order: o}
			return nil
		}

		o.MarkPaid(e.now())
		o.UpdatedBy = "payment"

		ok, err := e.orders.Transition(ctx, o, []string{pending.Code()})
		if err != nil {
			return fmt.Errorf("cannot record payment: %w", err)
		}
		if !ok {
			current, err := e.load(ctx, id)
			if err != nil {
				return err
			}
			result = &PayResult{Order: current}
			return nil
		}

		result = &PayResult{Order: o, Applied: true}
		if !o.HoldsTable() {
			return nil
		}

		change, err = e.tables.Occupy(ctx, *o.TableID, o.ID)
		if err == nil {
			return nil
		}
		if !tables.IsBusinessError(err) {
			return err
		}

		result.Reconciliation = newReconciliation(o, err)
		return nil
	})

	if err != nil {
		return nil, err
	}

	if !result.Applied {
		e.logger.Debug("payment already settled, skipping", "order_id", id.String(), "status", result.Order.Status)
		return result, nil
	}

	e.tables.Publish(ctx, change)

	if result.Reconciliation != nil {
		e.logger.Error("paid order could not occupy its table", "order_id", id.String(), "table_id", result.Reconciliation.TableID.String(), "table_status", result.Reconciliation.TableStatus, "error", result.Reconciliation.Err)
		if e.anomalies != nil {
			e.anomalies.Report(ctx, result.Reconciliation)
		}
	}

	e.notify(ctx, event.KindNewOrder, result.Order)
	e.logger.Info("order paid", "order_id", id.String(), "number", result.Order.Number)
	return result, nil
}

func (e *Engine) Confirm(ctx context.Context, id uuid.UUID) (*Order, error) {
	return e.run(ctx, id, transition{
		action:   "confirm",
		expected: []orderstatus.Status{toBeConfirmed},
		by:       "staff",
		apply: func(o *Order, now time.Time) {
			o.MarkConfirmed(now)
		},
	})
}

func (e *Engine) Reject(ctx context.Context, id uuid.UUID, reason string) (*Order, error) {
	if reason == "" {
		reason = defaultRejectReason
	}
	return e.run(ctx, id, transition{
		action:   "reject",
		expected: []orderstatus.Status{toBeConfirmed},
		by:       "staff",
		release:  true,
		apply: func(o *Order, now time.Time) {
			o.MarkRejected(reason, now)
		},
	})
}

// Cancel cancels an order. Customers may cancel their own orders until they
// are confirmed; staff may cancel any active order.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (*Order, error) {
	t := transition{
		action:  "cancel",
		release: true,
	}

	reason := req.Reason
	if req.By == CancelByStaff {
		if reason == "" {
			reason = defaultStaffReason
		}
		t.expected = orderstatus.Active
		t.by = "staff"
	} else {
		if reason == "" {
			reason = defaultUserReason
		}
		t.expected = []orderstatus.Status{pending, toBeConfirmed}
		t.by = userActor(req.ActorID)
		t.check = ownedBy(req.ActorID)
	}

	t.apply = func(o *Order, now time.Time) {
		o.MarkCancelled(reason, now)
	}
	return e.run(ctx, id, t)
}

func (e *Engine) Dispatch(ctx context.Context, id uuid.UUID) (*Order, error) {
	return e.run(ctx, id, transition{
		action:   "dispatch",
		expected: []orderstatus.Status{confirmed},
		by:       "staff",
		apply: func(o *Order, now time.Time) {
			o.MarkDispatched(now)
		},
	})
}

func (e *Engine) Complete(ctx context.Context, id uuid.UUID) (*Order, error) {
	return e.run(ctx, id, transition{
		action:   "complete",
		expected: []orderstatus.Status{deliveryInProgress},
		by:       "staff",
		release:  true,
		apply: func(o *Order, now time.Time) {
			o.MarkCompleted(now)
		},
	})
}

type transition struct {
	action   string
	expected []orderstatus.Status
	by       string
	release  bool
	check    func(o *Order) error
	apply    func(o *Order, now time.Time)
}

// run re-reads the order and retries when another transition commits
// between the read and the guarded write.
func (e *Engine) run(ctx context.Context, id uuid.UUID, t transition) (*Order, error) {
	expected := orderstatus.Names(t.expected...)

	var result *Order
	var change *tables.Change

	err := e.uow.Do(ctx, func(ctx context.Context) error {
		result, change = nil, nil

		o, err := e.load(ctx, id)
		if err != nil {
			return err
		}

		for attempt := 1; ; attempt++ {
			if t.check != nil {
				if err := t.check(o); err != nil {
					return err
				}
			}

			if !contains(expected, o.Status) {
				return &InvalidStateError{OrderID: id, Action: t.action, Expected: expected, Actual: o.Status}
			}

			// Guard on the status actually read so a concurrent transition
			// cannot be overwritten with fields derived from a stale copy.
			observed := o.Status
			t.apply(o, e.now())
			o.UpdatedBy = t.by

			ok, err := e.orders.Transition(ctx, o, []string{observed})
			if err != nil {
				return fmt.Errorf("cannot %s order: %w", t.action, err)
			}
			if ok {
				break
			}

			current, err := e.load(ctx, id)
			if err != nil {
				return err
			}
			if attempt == maxTransitionAttempts {
				return &InvalidStateError{OrderID: id, Action: t.action, Expected: expected, Actual: current.Status}
			}
			o = current
		}

		if t.release && o.HoldsTable() {
			change, err = e.tables.Release(ctx, *o.TableID, o.ID, "order."+t.action)
			if err != nil {
				return err
			}
		}

		result = o
		return nil
	})

	if err != nil {
		return nil, err
	}

	e.tables.Publish(ctx, change)
	e.logger.Info("order updated", "order_id", id.String(), "action", t.action, "status", result.Status)
	return result, nil
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return e.load(ctx, id)
}

func (e *Engine) Search(ctx context.Context, q Query) (Page, error) {
	page, err := e.orders.Search(ctx, q.Normalize())
	if err != nil {
		return Page{}, fmt.Errorf("cannot search orders: %w", err)
	}
	for _, o := range page.Records {
		o.Labelled()
	}
	return page, nil
}

func (e *Engine) UnpaidCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := e.orders.CountByUserAndStatus(ctx, userID, pending.Code())
	if err != nil {
		return 0, fmt.Errorf("cannot count unpaid orders: %w", err)
	}
	return count, nil
}

// Reorder copies the lines of a previous order back into its owner's cart.
func (e *Engine) Reorder(ctx context.Context, id, userID uuid.UUID) ([]Item, error) {
	o, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(userID)(o); err != nil {
		return nil, err
	}

	if err := e.carts.AddItems(ctx, userID, o.Items); err != nil {
		return nil, fmt.Errorf("cannot refill cart: %w", err)
	}
	return o.Items, nil
}

// Remind asks the storefront to hurry an order.
func (e *Engine) Remind(ctx context.Context, id uuid.UUID) error {
	o, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	e.notify(ctx, event.KindReminder, o)
	return nil
}

func (e *Engine) load(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := e.orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (e *Engine) notify(ctx context.Context, kind string, o *Order) {
	if e.notifier == nil {
		return
	}

	n := Notification{
		Kind:        kind,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Summary:     fmt.Sprintf("Order %s: %s", o.Number, o.Summarize()),
		DiningType:  o.DiningType,
	}
	if o.IsDineIn() {
		n.TableNumber = o.TableNumber
	}
	e.notifier.Notify(ctx, n)
}

func newReconciliation(o *Order, cause error) *ReconciliationError {
	anomaly := &ReconciliationError{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		TableID:     *o.TableID,
		Err:         cause,
	}

	var resErr *tables.ReservationError
	switch {
	case errors.As(cause, &resErr):
		anomaly.TableStatus = resErr.Status
	case errors.Is(cause, tables.ErrTableDisabled):
		anomaly.TableStatus = tablestatus.Statuses.Disabled.Code()
	}
	return anomaly
}

// ownedBy hides orders of other users behind ErrOrderNotFound.
func ownedBy(userID uuid.UUID) func(o *Order) error {
	return func(o *Order) error {
		if o.UserID != userID {
			return ErrOrderNotFound
		}
		return nil
	}
}

func userActor(id uuid.UUID) string {
	return "user:" + id.String()
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
