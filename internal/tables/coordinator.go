package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/coordinator/pkg"
	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

// Change describes a committed table status write.
type Change struct {
	TableID  uuid.UUID
	Number   string
	OrderID  *uuid.UUID
	Previous string
	Status   string
	Reason   string
}

// Coordinator is the only writer of Table.Status once an order is involved.
// Every transition is a single conditional write against the current
// status; reads are never used to decide whether a write may happen.
//
// Coordinator methods do not publish anything. They may run inside a unit
// of work that is later rolled back, so callers hand the returned changes
// to Publish after commit.
type Coordinator struct {
	repo      TableRepo
	publisher events.Publisher
	cache     *StateCache
	logger    aqm.Logger
}

func NewCoordinator(repo TableRepo, publisher events.Publisher, cache *StateCache, logger aqm.Logger) *Coordinator {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Coordinator{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

var (
	free     = tablestatus.Statuses.Free.Code()
	reserved = tablestatus.Statuses.Reserved.Code()
	occupied = tablestatus.Statuses.Occupied.Code()
	disabled = tablestatus.Statuses.Disabled.Code()
)

// Reserve moves a table FREE -> RESERVED on behalf of orderID.
func (c *Coordinator) Reserve(ctx context.Context, tableID, orderID uuid.UUID) (*Change, error) {
	if tableID == uuid.Nil {
		return nil, ErrTableNotFound
	}

	holder := orderID
	before, err := c.repo.CompareAndSet(ctx, tableID,
		Guard{Statuses: []string{free}},
		Assignment{Status: reserved, Holder: &holder, By: orderActor(orderID)},
	)
	if err != nil {
		return nil, fmt.Errorf("cannot reserve table: %w", err)
	}
	if before == nil {
		return nil, c.explain(ctx, tableID)
	}

	return newChange(before, reserved, &holder, "order.reserved"), nil
}

// Occupy promotes a table to OCCUPIED for orderID. It succeeds when the
// table is RESERVED by that same order, or FREE.
func (c *Coordinator) Occupy(ctx context.Context, tableID, orderID uuid.UUID) (*Change, error) {
	if tableID == uuid.Nil {
		return nil, ErrTableNotFound
	}

	holder := orderID
	next := Assignment{Status: occupied, Holder: &holder, By: orderActor(orderID)}

	before, err := c.repo.CompareAndSet(ctx, tableID, Guard{Statuses: []string{reserved}, Holder: &holder}, next)
	if err != nil {
		return nil, fmt.Errorf("cannot occupy table: %w", err)
	}
	if before == nil {
		before, err = c.repo.CompareAndSet(ctx, tableID, Guard{Statuses: []string{free}}, next)
		if err != nil {
			return nil, fmt.Errorf("cannot occupy table: %w", err)
		}
	}
	if before == nil {
		return nil, c.explain(ctx, tableID)
	}

	return newChange(before, occupied, &holder, "order.paid"), nil
}

// Release frees a table held by orderID. Releasing a table that is already
// free, or that the order does not hold, is a no-op and returns a nil change.
func (c *Coordinator) Release(ctx context.Context, tableID, orderID uuid.UUID, reason string) (*Change, error) {
	if tableID == uuid.Nil {
		return nil, nil
	}

	holder := orderID
	before, err := c.repo.CompareAndSet(ctx, tableID,
		Guard{Statuses: []string{reserved, occupied}, Holder: &holder},
		Assignment{Status: free, By: orderActor(orderID)},
	)
	if err != nil {
		return nil, fmt.Errorf("cannot release table: %w", err)
	}
	if before == nil {
		c.logger.Debug("release skipped, table not held by order", "table_id", tableID.String(), "order_id", orderID.String())
		return nil, nil
	}

	return newChange(before, free, nil, reason), nil
}

// ForceRelease frees a reserved or occupied table regardless of its holder.
// Callers must make sure no active order references the table first.
func (c *Coordinator) ForceRelease(ctx context.Context, tableID uuid.UUID, by string) (*Change, error) {
	before, err := c.repo.CompareAndSet(ctx, tableID,
		Guard{Statuses: []string{reserved, occupied}},
		Assignment{Status: free, By: by},
	)
	if err != nil {
		return nil, fmt.Errorf("cannot release table: %w", err)
	}
	if before != nil {
		return newChange(before, free, nil, "table.force_released"), nil
	}

	table, err := c.repo.Get(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("cannot read table: %w", err)
	}
	if table == nil {
		return nil, ErrTableNotFound
	}
	return nil, nil
}

// SetAvailability switches an unheld table between FREE and DISABLED.
func (c *Coordinator) SetAvailability(ctx context.Context, tableID uuid.UUID, status, by string) (*Change, error) {
	if status != free && status != disabled {
		return nil, fmt.Errorf("invalid availability status %q", status)
	}

	before, err := c.repo.CompareAndSet(ctx, tableID,
		Guard{Statuses: []string{free, disabled}},
		Assignment{Status: status, By: by},
	)
	if err != nil {
		return nil, fmt.Errorf("cannot update table status: %w", err)
	}
	if before == nil {
		table, err := c.repo.Get(ctx, tableID)
		if err != nil {
			return nil, fmt.Errorf("cannot read table: %w", err)
		}
		if table == nil {
			return nil, ErrTableNotFound
		}
		return nil, ErrTableInUse
	}
	if before.Status == status {
		return nil, nil
	}

	return newChange(before, status, nil, "table.updated"), nil
}

// Available lists FREE tables. The answer is advisory: a table listed here
// can be taken by a concurrent reservation a moment later.
func (c *Coordinator) Available(ctx context.Context) ([]*Table, error) {
	list, err := c.repo.ListByStatus(ctx, free)
	if err != nil {
		return nil, fmt.Errorf("cannot list available tables: %w", err)
	}
	return list, nil
}

// Status is an advisory read of a table's current status.
func (c *Coordinator) Status(ctx context.Context, tableID uuid.UUID) (string, error) {
	table, err := c.repo.Get(ctx, tableID)
	if err != nil {
		return "", fmt.Errorf("cannot read table: %w", err)
	}
	if table == nil {
		return "", ErrTableNotFound
	}
	return table.Status, nil
}

// explain turns a failed conditional write into a user-facing error by
// re-reading the table. The re-read only picks the message.
func (c *Coordinator) explain(ctx context.Context, tableID uuid.UUID) error {
	table, err := c.repo.Get(ctx, tableID)
	if err != nil {
		return fmt.Errorf("cannot read table after failed write: %w", err)
	}
	if table == nil {
		return ErrTableNotFound
	}

	switch table.Status {
	case disabled:
		return ErrTableDisabled
	case reserved:
		return &ReservationError{TableID: tableID, Status: table.Status, Err: ErrTableReserved}
	case occupied:
		return &ReservationError{TableID: tableID, Status: table.Status, Err: ErrTableOccupied}
	default:
		return &ReservationError{TableID: tableID, Status: table.Status}
	}
}

// Publish announces committed changes and refreshes the local cache.
func (c *Coordinator) Publish(ctx context.Context, changes ...*Change) {
	for _, change := range changes {
		if change == nil {
			continue
		}

		if c.cache != nil {
			c.cache.Set(change.TableID, change.Status)
		}

		if c.publisher == nil {
			continue
		}

		evt := pkg.TableStatusEvent{
			EventType:      pkg.EventTableStatusChanged,
			TableID:        change.TableID.String(),
			TableNumber:    change.Number,
			Status:         change.Status,
			PreviousStatus: change.Previous,
			Reason:         change.Reason,
			Source:         pkg.TableEventSource,
			OccurredAt:     time.Now().UTC(),
		}
		if change.OrderID != nil {
			evt.OrderID = change.OrderID.String()
		}

		c.publish(ctx, pkg.TableStatusTopic, evt, change.TableID)
	}
}

// PublishRejection reports an order that could not take its table.
func (c *Coordinator) PublishRejection(ctx context.Context, tableID, orderID uuid.UUID, action string, cause error) {
	if c.publisher == nil || cause == nil {
		return
	}

	status := ""
	var resErr *ReservationError
	if errors.As(cause, &resErr) {
		status = resErr.Status
	} else if errors.Is(cause, ErrTableDisabled) {
		status = disabled
	}

	evt := pkg.OrderTableRejectionEvent{
		EventType:  pkg.EventOrderTableRejected,
		TableID:    tableID.String(),
		Action:     action,
		Reason:     cause.Error(),
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
	if orderID != uuid.Nil {
		evt.OrderID = orderID.String()
	}

	c.publish(ctx, pkg.OrderTableTopic, evt, tableID)
}

func (c *Coordinator) publish(ctx context.Context, topic string, evt interface{}, tableID uuid.UUID) {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("cannot marshal table event", "error", err, "table_id", tableID.String())
		return
	}

	if err := c.publisher.Publish(ctx, topic, payload); err != nil {
		c.logger.Error("cannot publish table event", "error", err, "topic", topic, "table_id", tableID.String())
	}
}

func newChange(before *Table, status string, holder *uuid.UUID, reason string) *Change {
	return &Change{
		TableID:  before.ID,
		Number:   before.Number,
		OrderID:  holder,
		Previous: before.Status,
		Status:   status,
		Reason:   reason,
	}
}

func orderActor(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}
