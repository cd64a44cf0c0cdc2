package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/storage"
	"github.com/aquamarinepk/aqm"
)

// ResetDB removes every table, order, cart and address - USE WITH CAUTION
func ResetDB(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Infof("⚠️  DANGER: This will delete ALL coordinator data!")
	logger.Infof("⚠️  This action cannot be undone!")

	stores, err := storage.Open(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Stop(context.Background())

	logger.Info("Connected to storage", "driver", stores.Driver)

	if err := stores.Reset(ctx); err != nil {
		return fmt.Errorf("reset storage: %w", err)
	}

	logger.Info("All coordinator data has been removed", "driver", stores.Driver)
	return nil
}
