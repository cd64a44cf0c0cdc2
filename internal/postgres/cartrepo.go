package postgres

import (
	"context"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

func (r *CartRepo) ListItems(ctx context.Context, userID uuid.UUID) ([]order.Item, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT name, unit_price::text, quantity FROM cart_items WHERE user_id = $1 ORDER BY added_at, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("cannot get cart: %w", err)
	}
	defer rows.Close()

	items := []order.Item{}
	for rows.Next() {
		var item order.Item
		var price string
		if err := rows.Scan(&item.Name, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("cannot decode cart item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("cannot decode cart item price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot get cart: %w", err)
	}
	return items, nil
}

// AddItems merges items into the cart: a line with the same name and unit
// price adds to the stored quantity.
func (r *CartRepo) AddItems(ctx context.Context, userID uuid.UUID, items []order.Item) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO cart_items (user_id, name, unit_price, quantity)
			VALUES ($1, $2, $3::numeric, $4)
			ON CONFLICT (user_id, name, unit_price)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
			userID, item.Name, item.UnitPrice.String(), item.Quantity)
	}

	results := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("cannot save cart: %w", err)
		}
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("cannot clear cart: %w", err)
	}
	return nil
}
