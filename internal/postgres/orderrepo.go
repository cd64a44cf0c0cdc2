package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/appetiteclub/coordinator/pkg/enums/orderstatus"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const orderColumns = `id, number, user_id, status, pay_status, dining_type, table_id, table_number,
	address_id, consignee, phone, address, items, pack_amount::text, amount::text, remark,
	cancel_reason, rejection_reason, order_time, checkout_time, cancel_time, delivery_time,
	created_at, created_by, updated_at, updated_by`

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("cannot encode order items: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO orders (id, number, user_id, status, pay_status, dining_type, table_id, table_number,
			address_id, consignee, phone, address, items, pack_amount, amount, remark,
			cancel_reason, rejection_reason, order_time, checkout_time, cancel_time, delivery_time,
			created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::numeric, $15::numeric, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		o.ID, o.Number, o.UserID, o.Status, o.PayStatus, o.DiningType, nullableUUID(o.TableID), o.TableNumber,
		nullableUUID(o.AddressID), o.Consignee, o.Phone, o.Address, items, o.PackAmount.String(), o.Amount.String(), o.Remark,
		o.CancelReason, o.RejectionReason, o.OrderTime, o.CheckoutTime, o.CancelTime, o.DeliveryTime,
		o.CreatedAt, o.CreatedBy, o.UpdatedAt, o.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) Transition(ctx context.Context, o *order.Order, expected []string) (bool, error) {
	if o == nil {
		return false, fmt.Errorf("order is nil")
	}

	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE orders
		SET status = $3, pay_status = $4, checkout_time = $5, cancel_time = $6, delivery_time = $7,
			cancel_reason = $8, rejection_reason = $9, updated_at = $10, updated_by = $11
		WHERE id = $1 AND status = ANY($2)`,
		o.ID, expected, o.Status, o.PayStatus, o.CheckoutTime, o.CancelTime, o.DeliveryTime,
		o.CancelReason, o.RejectionReason, o.UpdatedAt, o.UpdatedBy,
	)
	if err != nil {
		return false, fmt.Errorf("cannot update order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM orders WHERE table_id = $1 AND status = ANY($2)`,
		tableID, orderstatus.Names(orderstatus.Active...))
}

func (r *OrderRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM orders WHERE status = $1`, status)
}

func (r *OrderRepo) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM orders WHERE user_id = $1 AND status = $2`, userID, status)
}

func (r *OrderRepo) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := conn(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("cannot count orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepo) Search(ctx context.Context, q order.Query) (order.Page, error) {
	q = q.Normalize()
	where, args := searchClause(q)

	var page order.Page
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		page.Total, err = r.count(gctx, `SELECT count(*) FROM orders`+where, args...)
		return err
	})

	g.Go(func() error {
		n := len(args)
		sql := `SELECT ` + orderColumns + ` FROM orders` + where +
			` ORDER BY order_time DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)

		rows, err := conn(gctx, r.pool).Query(gctx, sql, append(append([]any{}, args...), q.PageSize, q.Offset())...)
		if err != nil {
			return fmt.Errorf("cannot search orders: %w", err)
		}
		defer rows.Close()

		records := []*order.Order{}
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("cannot decode orders: %w", err)
			}
			records = append(records, o)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("cannot search orders: %w", err)
		}
		page.Records = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return order.Page{}, err
	}
	return page, nil
}

// searchClause renders the WHERE clause of a search and its arguments.
func searchClause(q order.Query) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if q.UserID != nil {
		add("user_id = ?", *q.UserID)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}
	if q.Number != "" {
		add("number LIKE ?", "%"+escapeLike(q.Number)+"%")
	}
	if q.From != nil {
		add("order_time >= ?", *q.From)
	}
	if q.To != nil {
		add("order_time <= ?", *q.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var tableID, addressID pgtype.UUID
	var items []byte
	var pack, amount string

	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.PayStatus, &o.DiningType, &tableID, &o.TableNumber,
		&addressID, &o.Consignee, &o.Phone, &o.Address, &items, &pack, &amount, &o.Remark,
		&o.CancelReason, &o.RejectionReason, &o.OrderTime, &o.CheckoutTime, &o.CancelTime, &o.DeliveryTime,
		&o.CreatedAt, &o.CreatedBy, &o.UpdatedAt, &o.UpdatedBy)
	if err != nil {
		return nil, err
	}

	o.TableID = uuidPtr(tableID)
	o.AddressID = uuidPtr(addressID)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("cannot decode order items: %w", err)
	}
	if o.PackAmount, err = decimal.NewFromString(pack); err != nil {
		return nil, fmt.Errorf("cannot decode pack amount: %w", err)
	}
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("cannot decode amount: %w", err)
	}
	return &o, nil
}
