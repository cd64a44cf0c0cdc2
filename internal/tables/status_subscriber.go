package tables

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/coordinator/pkg"
	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

// StatusSubscriber keeps a StateCache in line with table status events
// published by every coordinator instance.
type StatusSubscriber struct {
	subscriber events.Subscriber
	cache      *StateCache
	logger     aqm.Logger
}

func NewStatusSubscriber(sub events.Subscriber, cache *StateCache, logger aqm.Logger) *StatusSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &StatusSubscriber{
		subscriber: sub,
		cache:      cache,
		logger:     logger,
	}
}

func (s *StatusSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting table status subscriber", "topic", pkg.TableStatusTopic)
	if s.cache != nil {
		if err := s.cache.Warm(ctx); err != nil {
			s.logger.Info("table cache warmup failed", "error", err)
		}
	}
	if s.subscriber == nil {
		return fmt.Errorf("table status subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.TableStatusTopic, s.handleEvent)
}

func (s *StatusSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid table status event", "error", err)
		return nil
	}

	id, err := uuid.Parse(evt.TableID)
	if err != nil {
		s.logger.Info("invalid table id in event", "table_id", evt.TableID)
		return nil
	}

	if tablestatus.ByName(evt.Status) == nil {
		s.logger.Info("unknown table status in event", "table_id", evt.TableID, "status", evt.Status)
		return nil
	}

	if s.cache == nil {
		return nil
	}

	s.cache.Set(id, evt.Status)
	s.logger.Debug("table status updated", "table_id", id.String(), "status", evt.Status)
	return nil
}
