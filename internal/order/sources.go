package order

import (
	"context"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// CartSource is the user's shopping cart.
type CartSource interface {
	ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AddItems(ctx context.Context, userID uuid.UUID, items []Item) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddressSource resolves delivery addresses. Resolve returns nil when the
// address does not exist.
type AddressSource interface {
	Resolve(ctx context.Context, id uuid.UUID) (*Address, error)
}

type AddressBook interface {
	AddressSource
	Create(ctx context.Context, address *Address) error
}

// Notifier delivers storefront alerts. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// AnomalyReporter sends operator-visible anomalies to the operational
// channel.
type AnomalyReporter interface {
	Report(ctx context.Context, anomaly *ReconciliationError)
}

type Notification struct {
	Kind        string
	OrderID     uuid.UUID
	OrderNumber string
	Summary     string
	DiningType  string
	TableNumber string
}

type Address struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	UserID    uuid.UUID `json:"user_id" bson:"user_id"`
	Consignee string    `json:"consignee" bson:"consignee"`
	Phone     string    `json:"phone" bson:"phone"`
	Detail    string    `json:"detail" bson:"detail"`
	Label     string    `json:"label,omitempty" bson:"label,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (a *Address) GetID() uuid.UUID {
	return a.ID
}

func (a *Address) ResourceType() string {
	return "address"
}

func (a *Address) SetID(id uuid.UUID) {
	a.ID = id
}

func NewAddress() *Address {
	return &Address{ID: aqm.GenerateNewID()}
}

func (a *Address) BeforeCreate() {
	if a.ID == uuid.Nil {
		a.ID = aqm.GenerateNewID()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
}
