package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/coordinator/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

const defaultNotifyTimeout = 3 * time.Second

// Dispatcher publishes storefront notifications and reconciliation
// anomalies. It never fails the caller: delivery problems are logged.
type Dispatcher struct {
	notifications events.Publisher
	anomalies     events.Publisher
	timeout       time.Duration
	logger        aqm.Logger
}

// NewDispatcher builds a Dispatcher. anomalies may be a durable stream; when
// nil, anomalies go out on the notifications publisher.
func NewDispatcher(notifications, anomalies events.Publisher, logger aqm.Logger) *Dispatcher {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if anomalies == nil {
		anomalies = notifications
	}
	return &Dispatcher{
		notifications: notifications,
		anomalies:     anomalies,
		timeout:       defaultNotifyTimeout,
		logger:        logger,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	evt := event.NotificationEvent{
		EventType:   event.EventOrderNotification,
		Kind:        n.Kind,
		OrderID:     n.OrderID.String(),
		OrderNumber: n.OrderNumber,
		Summary:     n.Summary,
		DiningType:  n.DiningType,
		TableNumber: n.TableNumber,
		OccurredAt:  time.Now().UTC(),
	}

	d.publish(ctx, d.notifications, event.NotificationsTopic, evt)
}

func (d *Dispatcher) Report(ctx context.Context, anomaly *ReconciliationError) {
	if anomaly == nil {
		return
	}

	evt := event.ReconciliationEvent{
		EventType:   event.EventReconciliationRequired,
		OrderID:     anomaly.OrderID.String(),
		OrderNumber: anomaly.OrderNumber,
		TableID:     anomaly.TableID.String(),
		TableStatus: anomaly.TableStatus,
		Reason:      anomaly.Error(),
		OccurredAt:  time.Now().UTC(),
	}

	d.publish(ctx, d.anomalies, event.AnomaliesTopic, evt)
}

func (d *Dispatcher) publish(ctx context.Context, publisher events.Publisher, topic string, evt interface{}) {
	if publisher == nil {
		d.logger.Debug("no publisher configured, dropping event", "topic", topic)
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		d.logger.Error("cannot marshal event", "error", err, "topic", topic)
		return
	}

	// The request may already be finishing; delivery gets its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := publisher.Publish(pubCtx, topic, payload); err != nil {
		d.logger.Error("cannot publish event", "error", err, "topic", topic)
	}
}
