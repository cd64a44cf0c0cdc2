package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/coordinator/pkg/enums/orderstatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DiningDelivery = "delivery"
	DiningDineIn   = "dine_in"
)

const (
	PayUnpaid   = "unpaid"
	PayPaid     = "paid"
	PayRefunded = "refunded"
)

// Item is a cart line, copied into the order at submission.
type Item struct {
	Name      string          `json:"name" bson:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" bson:"unit_price"`
	Quantity  int             `json:"quantity" bson:"quantity"`
}

func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MergeItems adds items to cart. Lines with the same name and unit price
// are combined.
func MergeItems(cart, items []Item) []Item {
	merged := append([]Item(nil), cart...)
	for _, item := range items {
		found := false
		for i := range merged {
			if merged[i].Name == item.Name && merged[i].UnitPrice.Equal(item.UnitPrice) {
				merged[i].Quantity += item.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, item)
		}
	}
	return merged
}

type Order struct {
	ID         uuid.UUID  `json:"id" bson:"_id"`
	Number     string     `json:"number" bson:"number"`
	UserID     uuid.UUID  `json:"user_id" bson:"user_id"`
	Status     string     `json:"status" bson:"status"`
	PayStatus  string     `json:"pay_status" bson:"pay_status"`
	DiningType string     `json:"dining_type" bson:"dining_type"`
	TableID    *uuid.UUID `json:"table_id,omitempty" bson:"table_id,omitempty"`
	// TableNumber is a display copy taken when the table was reserved.
	TableNumber string          `json:"table_number,omitempty" bson:"table_number,omitempty"`
	AddressID   *uuid.UUID      `json:"address_id,omitempty" bson:"address_id,omitempty"`
	Consignee   string          `json:"consignee" bson:"consignee"`
	Phone       string          `json:"phone,omitempty" bson:"phone,omitempty"`
	Address     string          `json:"address" bson:"address"`
	Items       []Item          `json:"items" bson:"items"`
	PackAmount  decimal.Decimal `json:"pack_amount" bson:"pack_amount"`
	// Amount is fixed at creation. Refunds change PayStatus only.
	Amount          decimal.Decimal `json:"amount" bson:"amount"`
	Remark          string          `json:"remark,omitempty" bson:"remark,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	OrderTime       time.Time       `json:"order_time" bson:"order_time"`
	CheckoutTime    *time.Time      `json:"checkout_time,omitempty" bson:"checkout_time,omitempty"`
	CancelTime      *time.Time      `json:"cancel_time,omitempty" bson:"cancel_time,omitempty"`
	DeliveryTime    *time.Time      `json:"delivery_time,omitempty" bson:"delivery_time,omitempty"`
	StatusLabel     string          `json:"status_label,omitempty" bson:"-"`
	ItemSummary     string          `json:"item_summary,omitempty" bson:"-"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	CreatedBy       string          `json:"created_by" bson:"created_by"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
	UpdatedBy       string          `json:"updated_by" bson:"updated_by"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func NewOrder() *Order {
	return &Order{
		ID:        aqm.GenerateNewID(),
		Status:    orderstatus.Statuses.PendingPayment.Code(),
		PayStatus: PayUnpaid,
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = aqm.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

func (o *Order) IsDineIn() bool {
	return o.DiningType == DiningDineIn
}

// HoldsTable reports whether the order is linked to a table.
func (o *Order) HoldsTable() bool {
	return o.IsDineIn() && o.TableID != nil && *o.TableID != uuid.Nil
}

func (o *Order) IsActive() bool {
	return orderstatus.IsActive(o.Status)
}

func (o *Order) MarkPaid(now time.Time) {
	o.PayStatus = PayPaid
	o.Status = orderstatus.Statuses.ToBeConfirmed.Code()
	if o.CheckoutTime == nil {
		o.CheckoutTime = &now
	}
	o.UpdatedAt = now
}

func (o *Order) MarkConfirmed(now time.Time) {
	o.Status = orderstatus.Statuses.Confirmed.Code()
	o.UpdatedAt = now
}

func (o *Order) MarkDispatched(now time.Time) {
	o.Status = orderstatus.Statuses.DeliveryInProgress.Code()
	o.UpdatedAt = now
}

func (o *Order) MarkCompleted(now time.Time) {
	o.Status = orderstatus.Statuses.Completed.Code()
	if o.DeliveryTime == nil {
		o.DeliveryTime = &now
	}
	o.UpdatedAt = now
}

func (o *Order) MarkCancelled(reason string, now time.Time) {
	o.Status = orderstatus.Statuses.Cancelled.Code()
	o.CancelReason = reason
	if o.CancelTime == nil {
		o.CancelTime = &now
	}
	if o.PayStatus == PayPaid {
		o.PayStatus = PayRefunded
	}
	o.UpdatedAt = now
}

func (o *Order) MarkRejected(reason string, now time.Time) {
	o.MarkCancelled(reason, now)
	o.RejectionReason = reason
}

// Summarize renders the items as "name*qty;" pairs.
func (o *Order) Summarize() string {
	var b strings.Builder
	for _, item := range o.Items {
		b.WriteString(item.Name)
		b.WriteString("*")
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteString(";")
	}
	return b.String()
}

// Labelled fills the presentation-only fields and returns the order.
func (o *Order) Labelled() *Order {
	if s := orderstatus.ByName(o.Status); s != nil {
		o.StatusLabel = s.Label()
	} else {
		o.StatusLabel = "Unknown"
	}
	o.ItemSummary = o.Summarize()
	return o
}
