package tables

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/appetiteclub/coordinator/pkg"
	"github.com/google/uuid"
)

var (
	tableA = "550e8400-e29b-41d4-a716-446655440001"
	orderA = uuid.MustParse("550e8400-e29b-41d4-a716-446655440101")
	orderB = uuid.MustParse("550e8400-e29b-41d4-a716-446655440102")
)

func TestCoordinatorReserve(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantErr    error
		wantStatus string
	}{
		{
			name:       "freeTable",
			status:     free,
			wantStatus: reserved,
		},
		{
			name:       "reservedTable",
			status:     reserved,
			wantErr:    ErrTableReserved,
			wantStatus: reserved,
		},
		{
			name:       "occupiedTable",
			status:     occupied,
			wantErr:    ErrTableOccupied,
			wantStatus: occupied,
		},
		{
			name:       "disabledTable",
			status:     disabled,
			wantErr:    ErrTableDisabled,
			wantStatus: disabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(tableA, "T1", tt.status)
			repo := NewMockTableRepo(table)
			c := NewCoordinator(repo, nil, nil, nil)

			change, err := c.Reserve(context.Background(), table.ID, orderA)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Reserve() error = %v, want %v", err, tt.wantErr)
				}
				if change != nil {
					t.Error("Reserve() should not return a change on failure")
				}
			} else {
				if err != nil {
					t.Fatalf("Reserve() unexpected error: %v", err)
				}
				if change == nil || change.Previous != free || change.Status != reserved {
					t.Errorf("Reserve() change = %+v, want free -> reserved", change)
				}
			}

			status, holder := repo.status(table.ID)
			if status != tt.wantStatus {
				t.Errorf("table status = %q, want %q", status, tt.wantStatus)
			}
			if tt.wantErr == nil && (holder == nil || *holder != orderA) {
				t.Errorf("table holder = %v, want %v", holder, orderA)
			}
		})
	}
}

func TestCoordinatorReserveUnknownTable(t *testing.T) {
	c := NewCoordinator(NewMockTableRepo(), nil, nil, nil)

	_, err := c.Reserve(context.Background(), uuid.MustParse(tableA), orderA)
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Reserve() error = %v, want %v", err, ErrTableNotFound)
	}

	_, err = c.Reserve(context.Background(), uuid.Nil, orderA)
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Reserve() with nil id error = %v, want %v", err, ErrTableNotFound)
	}
}

func TestCoordinatorReserveConflictIsReservationError(t *testing.T) {
	table := newTestTable(tableA, "T1", reserved)
	c := NewCoordinator(NewMockTableRepo(table), nil, nil, nil)

	_, err := c.Reserve(context.Background(), table.ID, orderA)

	if !errors.Is(err, ErrReservationConflict) {
		t.Errorf("Reserve() error should match ErrReservationConflict, got %v", err)
	}
	var resErr *ReservationError
	if !errors.As(err, &resErr) {
		t.Fatalf("Reserve() error should be a *ReservationError, got %T", err)
	}
	if resErr.Status != reserved {
		t.Errorf("ReservationError.Status = %q, want %q", resErr.Status, reserved)
	}
	if !IsBusinessError(err) {
		t.Error("IsBusinessError() should be true for a reservation conflict")
	}
}

func TestCoordinatorReserveStoreFailure(t *testing.T) {
	table := newTestTable(tableA, "T1", free)
	repo := NewMockTableRepo(table)
	repo.CompareAndSetFunc = func(ctx context.Context, id uuid.UUID, guard Guard, next Assignment) (*Table, error) {
		return nil, errors.New("connection reset")
	}
	c := NewCoordinator(repo, nil, nil, nil)

	_, err := c.Reserve(context.Background(), table.ID, orderA)
	if err == nil {
		t.Fatal("Reserve() expected error")
	}
	if IsBusinessError(err) {
		t.Errorf("store failure should not be a business error: %v", err)
	}
}

func TestCoordinatorConcurrentReserve(t *testing.T) {
	table := newTestTable(tableA, "T1", free)
	repo := NewMockTableRepo(table)
	c := NewCoordinator(repo, nil, nil, nil)

	const contenders = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	conflicts := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Reserve(context.Background(), table.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrReservationConflict):
				conflicts++
			default:
				t.Errorf("Reserve() unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful reservations = %d, want 1", wins)
	}
	if conflicts != contenders-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, contenders-1)
	}
}

func TestCoordinatorOccupy(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		holder     *uuid.UUID
		wantErr    error
		wantStatus string
	}{
		{
			name:       "reservedBySameOrder",
			status:     reserved,
			holder:     &orderA,
			wantStatus: occupied,
		},
		{
			name:       "freeTable",
			status:     free,
			wantStatus: occupied,
		},
		{
			name:       "reservedByOtherOrder",
			status:     reserved,
			holder:     &orderB,
			wantErr:    ErrReservationConflict,
			wantStatus: reserved,
		},
		{
			name:       "occupiedByOtherOrder",
			status:     occupied,
			holder:     &orderB,
			wantErr:    ErrTableOccupied,
			wantStatus: occupied,
		},
		{
			name:       "disabledTable",
			status:     disabled,
			wantErr:    ErrTableDisabled,
			wantStatus: disabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(tableA, "T1", tt.status)
			table.OrderID = tt.holder
			repo := NewMockTableRepo(table)
			c := NewCoordinator(repo, nil, nil, nil)

			change, err := c.Occupy(context.Background(), table.ID, orderA)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Occupy() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Occupy() unexpected error: %v", err)
				}
				if change.Previous != tt.status {
					t.Errorf("Occupy() previous = %q, want %q", change.Previous, tt.status)
				}
			}

			status, holder := repo.status(table.ID)
			if status != tt.wantStatus {
				t.Errorf("table status = %q, want %q", status, tt.wantStatus)
			}
			if tt.wantErr == nil && (holder == nil || *holder != orderA) {
				t.Errorf("table holder = %v, want %v", holder, orderA)
			}
		})
	}
}

func TestCoordinatorRelease(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		holder     *uuid.UUID
		wantChange bool
		wantStatus string
	}{
		{
			name:       "reservedByOrder",
			status:     reserved,
			holder:     &orderA,
			wantChange: true,
			wantStatus: free,
		},
		{
			name:       "occupiedByOrder",
			status:     occupied,
			holder:     &orderA,
			wantChange: true,
			wantStatus: free,
		},
		{
			name:       "alreadyFree",
			status:     free,
			wantStatus: free,
		},
		{
			name:       "heldByOtherOrder",
			status:     reserved,
			holder:     &orderB,
			wantStatus: reserved,
		},
		{
			name:       "disabled",
			status:     disabled,
			wantStatus: disabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(tableA, "T1", tt.status)
			table.OrderID = tt.holder
			repo := NewMockTableRepo(table)
			c := NewCoordinator(repo, nil, nil, nil)

			change, err := c.Release(context.Background(), table.ID, orderA, "order.cancelled")
			if err != nil {
				t.Fatalf("Release() unexpected error: %v", err)
			}
			if (change != nil) != tt.wantChange {
				t.Errorf("Release() change = %+v, wantChange %v", change, tt.wantChange)
			}

			status, holder := repo.status(table.ID)
			if status != tt.wantStatus {
				t.Errorf("table status = %q, want %q", status, tt.wantStatus)
			}
			if tt.wantStatus == free && holder != nil {
				t.Errorf("free table should have no holder, got %v", holder)
			}
		})
	}
}

func TestCoordinatorReleaseIsIdempotent(t *testing.T) {
	table := newTestTable(tableA, "T1", occupied)
	table.OrderID = &orderA
	repo := NewMockTableRepo(table)
	c := NewCoordinator(repo, nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := c.Release(context.Background(), table.ID, orderA, "order.completed"); err != nil {
			t.Fatalf("Release() call %d unexpected error: %v", i+1, err)
		}
	}

	status, _ := repo.status(table.ID)
	if status != free {
		t.Errorf("table status = %q, want %q", status, free)
	}

	if change, err := c.Release(context.Background(), uuid.Nil, orderA, "order.completed"); change != nil || err != nil {
		t.Errorf("Release() with nil table = (%v, %v), want (nil, nil)", change, err)
	}
}

func TestCoordinatorForceRelease(t *testing.T) {
	table := newTestTable(tableA, "T1", occupied)
	table.OrderID = &orderB
	repo := NewMockTableRepo(table)
	c := NewCoordinator(repo, nil, nil, nil)

	change, err := c.ForceRelease(context.Background(), table.ID, "staff:1")
	if err != nil {
		t.Fatalf("ForceRelease() unexpected error: %v", err)
	}
	if change == nil || change.Previous != occupied {
		t.Errorf("ForceRelease() change = %+v, want previous occupied", change)
	}

	change, err = c.ForceRelease(context.Background(), table.ID, "staff:1")
	if err != nil || change != nil {
		t.Errorf("ForceRelease() on free table = (%v, %v), want (nil, nil)", change, err)
	}

	_, err = c.ForceRelease(context.Background(), uuid.New(), "staff:1")
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("ForceRelease() unknown table error = %v, want %v", err, ErrTableNotFound)
	}
}

func TestCoordinatorSetAvailability(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		target  string
		wantErr error
	}{
		{name: "disableFreeTable", status: free, target: disabled},
		{name: "enableDisabledTable", status: disabled, target: free},
		{name: "disableReservedTable", status: reserved, target: disabled, wantErr: ErrTableInUse},
		{name: "disableOccupiedTable", status: occupied, target: disabled, wantErr: ErrTableInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(tableA, "T1", tt.status)
			repo := NewMockTableRepo(table)
			c := NewCoordinator(repo, nil, nil, nil)

			_, err := c.SetAvailability(context.Background(), table.ID, tt.target, "admin")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetAvailability() error = %v, want %v", err, tt.wantErr)
			}

			status, _ := repo.status(table.ID)
			want := tt.target
			if tt.wantErr != nil {
				want = tt.status
			}
			if status != want {
				t.Errorf("table status = %q, want %q", status, want)
			}
		})
	}

	c := NewCoordinator(NewMockTableRepo(), nil, nil, nil)
	if _, err := c.SetAvailability(context.Background(), uuid.New(), reserved, "admin"); err == nil {
		t.Error("SetAvailability() should reject coordinator-owned statuses")
	}
}

func TestCoordinatorPublish(t *testing.T) {
	publisher := NewMockPublisher()
	cache := NewStateCache(nil, nil)
	c := NewCoordinator(NewMockTableRepo(), publisher, cache, nil)

	id := uuid.MustParse(tableA)
	c.Publish(context.Background(), &Change{TableID: id, Number: "T1", OrderID: &orderA, Previous: free, Status: reserved, Reason: "order.reserved"}, nil)

	if got := publisher.Count(pkg.TableStatusTopic); got != 1 {
		t.Fatalf("published messages = %d, want 1", got)
	}

	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(publisher.Messages[0].Data, &evt); err != nil {
		t.Fatalf("cannot decode event: %v", err)
	}
	if evt.Status != reserved || evt.PreviousStatus != free || evt.OrderID != orderA.String() {
		t.Errorf("event = %+v, want free -> reserved for %s", evt, orderA)
	}

	if status, ok := cache.Get(id); !ok || status != reserved {
		t.Errorf("cache status = %q, %v, want %q", status, ok, reserved)
	}
}

func TestCoordinatorPublishRejection(t *testing.T) {
	publisher := NewMockPublisher()
	c := NewCoordinator(NewMockTableRepo(), publisher, nil, nil)

	id := uuid.MustParse(tableA)
	cause := &ReservationError{TableID: id, Status: occupied, Err: ErrTableOccupied}
	c.PublishRejection(context.Background(), id, orderA, "reserve", cause)
	c.PublishRejection(context.Background(), id, orderA, "reserve", nil)

	if got := publisher.Count(pkg.OrderTableTopic); got != 1 {
		t.Fatalf("published rejections = %d, want 1", got)
	}

	var evt pkg.OrderTableRejectionEvent
	if err := json.Unmarshal(publisher.Messages[0].Data, &evt); err != nil {
		t.Fatalf("cannot decode event: %v", err)
	}
	if evt.Status != occupied || evt.Action != "reserve" {
		t.Errorf("event = %+v, want occupied reserve rejection", evt)
	}
}
