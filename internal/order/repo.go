package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// Transition persists the lifecycle fields of order (status, pay status,
	// timestamps, reasons) only if the stored status is one of expected. It
	// reports whether the write happened.
	Transition(ctx context.Context, order *Order, expected []string) (bool, error)
	CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error)
	Search(ctx context.Context, q Query) (Page, error)
}

// UnitOfWork runs fn atomically. Repositories called with the ctx handed to
// fn join the same transaction; any error returned by fn rolls it back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Query struct {
	UserID   *uuid.UUID
	Status   string
	Number   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Page struct {
	Total   int64    `json:"total"`
	Records []*Order `json:"records"`
}
