package tables

import (
	"context"

	"github.com/google/uuid"
)

// Guard is the precondition of a conditional status write. Holder nil
// matches any holder, including none.
type Guard struct {
	Statuses []string
	Holder   *uuid.UUID
}

// Assignment is the state written when a Guard matches. A nil Holder clears
// the table's holder.
type Assignment struct {
	Status string
	Holder *uuid.UUID
	By     string
}

type TableRepo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	GetByNumber(ctx context.Context, number string) (*Table, error)
	List(ctx context.Context) ([]*Table, error)
	ListByStatus(ctx context.Context, status string) ([]*Table, error)
	// Save persists admin-editable fields only. Status and holder are
	// written exclusively through CompareAndSet.
	Save(ctx context.Context, table *Table) error
	// Delete removes a table that is neither reserved nor occupied and
	// reports whether a document was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// CompareAndSet atomically applies next when the table matches guard.
	// It returns the table as it was before the write, or nil when the guard
	// did not match.
	CompareAndSet(ctx context.Context, id uuid.UUID, guard Guard, next Assignment) (*Table, error)
}

// ActiveOrderCounter reports how many non-terminal orders reference a table.
type ActiveOrderCounter interface {
	CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
}
