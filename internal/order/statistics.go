package order

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Statistics struct {
	ToBeConfirmed      int64 `json:"to_be_confirmed"`
	Confirmed          int64 `json:"confirmed"`
	DeliveryInProgress int64 `json:"delivery_in_progress"`
}

// Statistics counts the orders waiting on staff. The three counts are read
// concurrently and are not a consistent snapshot.
func (e *Engine) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	g, gctx := errgroup.WithContext(ctx)
	counters := []struct {
		status string
		dst    *int64
	}{
		{status: toBeConfirmed.Code(), dst: &stats.ToBeConfirmed},
		{status: confirmed.Code(), dst: &stats.Confirmed},
		{status: deliveryInProgress.Code(), dst: &stats.DeliveryInProgress},
	}

	for _, c := range counters {
		c := c
		g.Go(func() error {
			n, err := e.orders.CountByStatus(gctx, c.status)
			if err != nil {
				return fmt.Errorf("cannot count %s orders: %w", c.status, err)
			}
			*c.dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}
