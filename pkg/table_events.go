package pkg

import "time"

const (
	// TableStatusTopic delivers authoritative status changes for tables.
	TableStatusTopic = "tables.status"
	// OrderTableTopic groups events emitted when an order could not take a table.
	OrderTableTopic = "orders.tables"

	// EventTableStatusChanged identifies a table status change event payload.
	EventTableStatusChanged = "table.status.changed"
	// EventOrderTableRejected identifies a reservation lost by an order.
	EventOrderTableRejected = "order.table.rejected"

	// TableEventSource tags events produced by the reservation coordinator.
	TableEventSource = "table-coordinator"
)

// TableStatusEvent is published after a table status write commits. OrderID
// names the order holding the table, if any.
type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	TableID        string    `json:"table_id"`
	TableNumber    string    `json:"table_number,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Source         string    `json:"source,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// OrderTableRejectionEvent captures an order that failed to reserve or
// occupy its table.
type OrderTableRejectionEvent struct {
	EventType  string    `json:"event_type"`
	TableID    string    `json:"table_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
