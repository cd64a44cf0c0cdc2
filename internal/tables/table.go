package tables

import (
	"time"

	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

type Table struct {
	ID       uuid.UUID `json:"id" bson:"_id"`
	Number   string    `json:"number" bson:"number"`
	Status   string    `json:"status" bson:"status"`
	Capacity int       `json:"capacity" bson:"capacity"`
	Sort     int       `json:"sort" bson:"sort"`
	// OrderID is the order currently holding the table. Only the coordinator
	// writes it, together with Status.
	OrderID     *uuid.UUID `json:"order_id,omitempty" bson:"order_id,omitempty"`
	StatusLabel string     `json:"status_label,omitempty" bson:"-"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	CreatedBy   string     `json:"created_by" bson:"created_by"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	UpdatedBy   string     `json:"updated_by" bson:"updated_by"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) SetID(id uuid.UUID) {
	t.ID = id
}

func NewTable() *Table {
	return &Table{
		ID:     aqm.GenerateNewID(),
		Status: tablestatus.Statuses.Free.Code(),
	}
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = aqm.GenerateNewID()
	}
}

func (t *Table) BeforeCreate() {
	t.EnsureID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Table) BeforeUpdate() {
	t.UpdatedAt = time.Now()
}

func (t *Table) IsHeld() bool {
	return tablestatus.IsHeld(t.Status)
}

func (t *Table) IsFree() bool {
	return t.Status == tablestatus.Statuses.Free.Code()
}

// Labelled fills StatusLabel for presentation and returns the table.
func (t *Table) Labelled() *Table {
	if s := tablestatus.ByName(t.Status); s != nil {
		t.StatusLabel = s.Label()
	} else {
		t.StatusLabel = "Unknown"
	}
	return t
}
