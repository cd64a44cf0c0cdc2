package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/storage"
	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/aquamarinepk/aqm"
)

// SeedTables creates the default floor. Tables whose number already exists
// are left untouched.
func SeedTables(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting table seeding...")

	stores, err := storage.Open(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Stop(context.Background())

	if err := tables.ApplyTableSeeds(ctx, stores.Tables, stores.Tracker, tables.SeedFS, logger); err != nil {
		return fmt.Errorf("apply table seeds: %w", err)
	}

	list, err := stores.Tables.List(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	logger.Info("Tables on the floor", "count", len(list))
	return nil
}
