package orderstatus

import (
	"strings"
)

// Status is an order lifecycle state. Rank orders the forward chain;
// Cancelled sits outside it and is reachable from any non-terminal state.
type Status struct {
	Name string
	Rank int
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

type Enum struct {
	PendingPayment     Status
	ToBeConfirmed      Status
	Confirmed          Status
	DeliveryInProgress Status
	Completed          Status
	Cancelled          Status
}

var Statuses = Enum{
	PendingPayment:     Status{Name: "pending_payment", Rank: 1},
	ToBeConfirmed:      Status{Name: "to_be_confirmed", Rank: 2},
	Confirmed:          Status{Name: "confirmed", Rank: 3},
	DeliveryInProgress: Status{Name: "delivery_in_progress", Rank: 4},
	Completed:          Status{Name: "completed", Rank: 5},
	Cancelled:          Status{Name: "cancelled", Rank: 6},
}

var All = []Status{
	Statuses.PendingPayment,
	Statuses.ToBeConfirmed,
	Statuses.Confirmed,
	Statuses.DeliveryInProgress,
	Statuses.Completed,
	Statuses.Cancelled,
}

// Active lists the statuses of an order that still holds its table.
var Active = []Status{
	Statuses.PendingPayment,
	Statuses.ToBeConfirmed,
	Statuses.Confirmed,
	Statuses.DeliveryInProgress,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

func IsTerminal(name string) bool {
	return name == Statuses.Completed.Name || name == Statuses.Cancelled.Name
}

func IsActive(name string) bool {
	for _, s := range Active {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Names flattens statuses into the codes stored on orders.
func Names(statuses ...Status) []string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.Name)
	}
	return names
}
