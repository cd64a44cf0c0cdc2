package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/coordinator/pkg/event"
	"github.com/google/uuid"
)

func TestDispatcherNotify(t *testing.T) {
	publisher := NewMockPublisher()
	d := NewDispatcher(publisher, nil, nil)
	orderID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440501")

	d.Notify(context.Background(), Notification{
		Kind:        event.KindNewOrder,
		OrderID:     orderID,
		OrderNumber: "1700000000000",
		Summary:     "Ramen*2;",
		DiningType:  DiningDineIn,
		TableNumber: "T1",
	})

	if len(publisher.Messages) != 1 || publisher.Topics[0] != event.NotificationsTopic {
		t.Fatalf("published %v, want one message on %s", publisher.Topics, event.NotificationsTopic)
	}

	var evt event.NotificationEvent
	if err := json.Unmarshal(publisher.Messages[0], &evt); err != nil {
		t.Fatalf("cannot decode notification: %v", err)
	}
	if evt.Kind != event.KindNewOrder || evt.OrderID != orderID.String() || evt.TableNumber != "T1" {
		t.Errorf("notification = %+v", evt)
	}
	if evt.EventType != event.EventOrderNotification {
		t.Errorf("EventType = %q, want %q", evt.EventType, event.EventOrderNotification)
	}
}

func TestDispatcherReport(t *testing.T) {
	notifications := NewMockPublisher()
	anomalies := NewMockPublisher()
	d := NewDispatcher(notifications, anomalies, nil)

	d.Report(context.Background(), &ReconciliationError{
		OrderID:     uuid.New(),
		OrderNumber: "42",
		TableID:     table1,
		TableStatus: disabled,
		Err:         errors.New("table is disabled"),
	})
	d.Report(context.Background(), nil)

	if len(notifications.Messages) != 0 {
		t.Errorf("anomalies leaked to notifications: %v", notifications.Topics)
	}
	if got := anomalies.Count(event.AnomaliesTopic); got != 1 {
		t.Fatalf("anomalies published = %d, want 1", got)
	}

	var evt event.ReconciliationEvent
	if err := json.Unmarshal(anomalies.Messages[0], &evt); err != nil {
		t.Fatalf("cannot decode anomaly: %v", err)
	}
	if evt.TableID != table1.String() || evt.TableStatus != disabled || evt.Reason == "" {
		t.Errorf("anomaly = %+v", evt)
	}
}

func TestDispatcherFallsBackToNotificationPublisher(t *testing.T) {
	publisher := NewMockPublisher()
	d := NewDispatcher(publisher, nil, nil)

	d.Report(context.Background(), &ReconciliationError{OrderID: uuid.New(), TableID: table1})

	if got := publisher.Count(event.AnomaliesTopic); got != 1 {
		t.Errorf("anomalies published = %d, want 1", got)
	}
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	var deadline time.Time
	publisher := &MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, msg []byte) error {
			deadline, _ = ctx.Deadline()
			return errors.New("nats: connection closed")
		},
	}
	d := NewDispatcher(publisher, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Notify(ctx, Notification{Kind: event.KindReminder, OrderID: uuid.New()})

	if deadline.IsZero() {
		t.Error("publish should run with its own deadline")
	}
}

func TestDispatcherWithoutPublisher(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)

	d.Notify(context.Background(), Notification{Kind: event.KindNewOrder})
	d.Report(context.Background(), &ReconciliationError{})
}
