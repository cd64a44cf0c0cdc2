package event

import "time"

const (
	NotificationsTopic = "orders.notifications"
	AnomaliesTopic     = "orders.anomalies"
	AnomaliesStream    = "ORDER_ANOMALIES"

	KindNewOrder = "NEW_ORDER"
	KindReminder = "REMINDER"

	EventOrderNotification      = "order.notification"
	EventReconciliationRequired = "order.reconciliation.required"
)

// NotificationEvent is pushed to the storefront display. Delivery is best
// effort; nothing in the order lifecycle waits for it.
type NotificationEvent struct {
	EventType   string    `json:"event_type"`
	Kind        string    `json:"kind"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Summary     string    `json:"summary"`
	DiningType  string    `json:"dining_type,omitempty"`
	TableNumber string    `json:"table_number,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ReconciliationEvent reports a paid order whose table could not be
// promoted to occupied. An operator resolves the table by hand.
type ReconciliationEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TableID     string    `json:"table_id"`
	TableStatus string    `json:"table_status,omitempty"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}
