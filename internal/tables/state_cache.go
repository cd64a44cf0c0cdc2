package tables

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// StateCache keeps the last known status of every table for cheap
// availability checks. It is fed by committed coordinator writes and by
// table status events from other instances, so it can lag; nothing that
// decides a reservation reads from it.
type StateCache struct {
	mu     sync.RWMutex
	state  map[uuid.UUID]string
	source TableRepo
	logger aqm.Logger
}

func NewStateCache(source TableRepo, logger aqm.Logger) *StateCache {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &StateCache{
		state:  make(map[uuid.UUID]string),
		source: source,
		logger: logger,
	}
}

func (c *StateCache) Warm(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	list, err := c.source.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	for _, table := range list {
		c.Set(table.ID, table.Status)
	}
	c.logger.Debug("table cache warmed", "count", len(list))
	return nil
}

func (c *StateCache) Ensure(ctx context.Context, id uuid.UUID) (string, error) {
	if id == uuid.Nil {
		return "", fmt.Errorf("invalid table id")
	}
	if status, ok := c.Get(id); ok {
		return status, nil
	}
	return c.Refresh(ctx, id)
}

func (c *StateCache) Refresh(ctx context.Context, id uuid.UUID) (string, error) {
	if c.source == nil {
		return "", fmt.Errorf("table cache uninitialized")
	}
	table, err := c.source.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to fetch table %s: %w", id, err)
	}
	if table == nil {
		c.Forget(id)
		return "", ErrTableNotFound
	}
	c.Set(id, table.Status)
	return table.Status, nil
}

func (c *StateCache) Get(id uuid.UUID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.state[id]
	return status, ok
}

func (c *StateCache) Set(id uuid.UUID, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[id] = status
}

func (c *StateCache) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state, id)
}

// LooksAvailable is the advisory answer to "can this table be picked".
func (c *StateCache) LooksAvailable(ctx context.Context, id uuid.UUID) (bool, string, error) {
	status, err := c.Ensure(ctx, id)
	if err != nil {
		return false, "", err
	}
	return status == tablestatus.Statuses.Free.Code(), status, nil
}
