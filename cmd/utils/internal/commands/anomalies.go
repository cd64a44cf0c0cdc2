package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/appetiteclub/coordinator/pkg"
	"github.com/appetiteclub/coordinator/pkg/event"
	"github.com/aquamarinepk/aqm"
)

const anomaliesConsumer = "utils-anomalies"

// Anomalies drains pending reconciliation events and prints one line per
// paid order whose table needs an operator.
func Anomalies(ctx context.Context, config *aqm.Config, logger aqm.Logger, out io.Writer) error {
	limit := 100
	if raw, ok := config.GetString("anomalies.limit"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid anomalies.limit %q", raw)
		}
		limit = n
	}

	stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
		URL:          config.GetStringOrDef("nats.url", "nats://localhost:4222"),
		StreamName:   config.GetStringOrDef("anomalies.stream", event.AnomaliesStream),
		Topic:        event.AnomaliesTopic,
		ConsumerName: anomaliesConsumer,
		MaxAge:       7 * 24 * time.Hour,
	}, logger)
	if err != nil {
		return fmt.Errorf("open anomalies stream: %w", err)
	}
	defer stream.Close()

	messages, err := stream.Fetch(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch anomalies: %w", err)
	}

	for _, msg := range messages {
		fmt.Fprintln(out, formatAnomaly(msg))
	}
	logger.Info("Anomalies drained", "count", len(messages))
	return nil
}

func formatAnomaly(msg pkg.StreamMessage) string {
	var evt event.ReconciliationEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		return fmt.Sprintf("#%d %s unreadable: %s", msg.Sequence, msg.Timestamp.Format(time.RFC3339), string(msg.Data))
	}

	status := evt.TableStatus
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("#%d %s order=%s (%s) table=%s status=%s reason=%s",
		msg.Sequence,
		evt.OccurredAt.Format(time.RFC3339),
		evt.OrderNumber,
		evt.OrderID,
		evt.TableID,
		status,
		evt.Reason,
	)
}
