package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AddressRepo struct {
	pool *pgxpool.Pool
}

func NewAddressRepo(pool *pgxpool.Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

func (r *AddressRepo) Create(ctx context.Context, a *order.Address) error {
	if a == nil {
		return fmt.Errorf("address is nil")
	}

	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO addresses (id, user_id, consignee, phone, detail, label, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.Consignee, a.Phone, a.Detail, a.Label, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot create address: %w", err)
	}
	return nil
}

func (r *AddressRepo) Resolve(ctx context.Context, id uuid.UUID) (*order.Address, error) {
	var a order.Address
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, consignee, phone, detail, label, created_at, updated_at
		FROM addresses WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.Consignee, &a.Phone, &a.Detail, &a.Label, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get address: %w", err)
	}
	return &a, nil
}
