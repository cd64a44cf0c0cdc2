package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/mongo"
	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/appetiteclub/coordinator/internal/postgres"
	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/seed"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Stores groups the repositories of one persistence driver. Tables and
// orders always share a driver so a unit of work can span both.
type Stores struct {
	Driver     string
	Tables     tables.TableRepo
	Orders     order.OrderRepo
	Carts      order.CartSource
	Addresses  order.AddressBook
	UnitOfWork order.UnitOfWork
	// Tracker is nil for drivers without a seed ledger; seeds are then
	// idempotent on the table number alone.
	Tracker seed.Tracker

	stop  func(ctx context.Context) error
	reset func(ctx context.Context) error
}

// Open connects the driver named by db.driver and returns its repositories.
func Open(ctx context.Context, config *aqm.Config, logger aqm.Logger) (*Stores, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	driver := DriverMongo
	if config != nil {
		driver = config.GetStringOrDef("db.driver", DriverMongo)
	}

	switch driver {
	case DriverMongo:
		return openMongo(ctx, config, logger)
	case DriverPostgres:
		return openPostgres(ctx, config, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func openMongo(ctx context.Context, config *aqm.Config, logger aqm.Logger) (*Stores, error) {
	baseRepo := mongo.NewBaseRepo(config, logger)
	if err := baseRepo.Start(ctx); err != nil {
		return nil, err
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		_ = baseRepo.Stop(ctx)
		return nil, errors.New("repository database is nil")
	}

	return &Stores{
		Driver:     DriverMongo,
		Tables:     mongo.NewTableRepo(db),
		Orders:     mongo.NewOrderRepo(db),
		Carts:      mongo.NewCartRepo(db),
		Addresses:  mongo.NewAddressRepo(db),
		UnitOfWork: mongo.NewUnitOfWork(baseRepo.Client()),
		Tracker:    seed.NewMongoTracker(db),
		stop:       baseRepo.Stop,
		reset:      baseRepo.Drop,
	}, nil
}

func openPostgres(ctx context.Context, config *aqm.Config, logger aqm.Logger) (*Stores, error) {
	db := postgres.NewDB(config, logger)
	if err := db.Start(ctx); err != nil {
		return nil, err
	}

	pool := db.Pool()
	return &Stores{
		Driver:     DriverPostgres,
		Tables:     postgres.NewTableRepo(pool),
		Orders:     postgres.NewOrderRepo(pool),
		Carts:      postgres.NewCartRepo(pool),
		Addresses:  postgres.NewAddressRepo(pool),
		UnitOfWork: postgres.NewUnitOfWork(pool),
		stop:       db.Stop,
		reset:      db.Reset,
	}, nil
}

func (s *Stores) Stop(ctx context.Context) error {
	if s == nil || s.stop == nil {
		return nil
	}
	return s.stop(ctx)
}

// Reset removes every table, order, cart and address.
func (s *Stores) Reset(ctx context.Context) error {
	if s == nil || s.reset == nil {
		return nil
	}
	return s.reset(ctx)
}
