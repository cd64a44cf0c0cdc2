package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tableColumns = `id, number, status, capacity, sort, order_id, created_at, created_by, updated_at, updated_by`

type TableRepo struct {
	pool *pgxpool.Pool
}

func NewTableRepo(pool *pgxpool.Pool) *TableRepo {
	return &TableRepo{pool: pool}
}

func (r *TableRepo) Create(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO tables (`+tableColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		table.ID, table.Number, table.Status, table.Capacity, table.Sort, nullableUUID(table.OrderID),
		table.CreatedAt, table.CreatedBy, table.UpdatedAt, table.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tables.ErrDuplicateNumber
		}
		return fmt.Errorf("cannot create table: %w", err)
	}
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	return scanTableRow(row, "cannot get table")
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*tables.Table, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE number = $1`, number)
	return scanTableRow(row, "cannot get table by number")
}

func (r *TableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	return r.query(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY sort, number`)
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	return r.query(ctx, `SELECT `+tableColumns+` FROM tables WHERE status = $1 ORDER BY sort, number`, status)
}

func (r *TableRepo) query(ctx context.Context, sql string, args ...any) ([]*tables.Table, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer rows.Close()

	var result []*tables.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot decode tables: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	return result, nil
}

func (r *TableRepo) Save(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	table.BeforeUpdate()
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE tables SET number = $2, capacity = $3, sort = $4, updated_at = $5, updated_by = $6 WHERE id = $1`,
		table.ID, table.Number, table.Capacity, table.Sort, table.UpdatedAt, table.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tables.ErrDuplicateNumber
		}
		return fmt.Errorf("cannot update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tables.ErrTableNotFound
	}
	return nil
}

func (r *TableRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	held := tablestatus.Names(tablestatus.Statuses.Reserved, tablestatus.Statuses.Occupied)

	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM tables WHERE id = $1 AND NOT (status = ANY($2))`, id, held)
	if err != nil {
		return false, fmt.Errorf("cannot delete table: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// casStatement locks the row only if it matches the guard, so a concurrent
// writer that changed it first makes the subquery, and the update, empty.
const casStatement = `
UPDATE tables t
SET status = $3, order_id = $4, updated_at = $5, updated_by = $6
FROM (
	SELECT ` + tableColumns + `
	FROM tables
	WHERE id = $1 AND status = ANY($2) AND ($7::uuid IS NULL OR order_id = $7)
	FOR UPDATE
) prev
WHERE t.id = prev.id
RETURNING prev.id, prev.number, prev.status, prev.capacity, prev.sort, prev.order_id,
	prev.created_at, prev.created_by, prev.updated_at, prev.updated_by`

func (r *TableRepo) CompareAndSet(ctx context.Context, id uuid.UUID, guard tables.Guard, next tables.Assignment) (*tables.Table, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, casStatement,
		id, guard.Statuses, next.Status, nullableUUID(next.Holder), time.Now(), next.By, nullableUUID(guard.Holder),
	)
	return scanTableRow(row, "cannot update table status")
}

func scanTableRow(row pgx.Row, msg string) (*tables.Table, error) {
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return t, nil
}

func scanTable(row pgx.Row) (*tables.Table, error) {
	var t tables.Table
	var holder pgtype.UUID

	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.Capacity, &t.Sort, &holder,
		&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy)
	if err != nil {
		return nil, err
	}

	t.OrderID = uuidPtr(holder)
	return &t, nil
}
