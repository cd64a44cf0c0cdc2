package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tablesCollection    = "tables"
	ordersCollection    = "orders"
	cartsCollection     = "carts"
	addressesCollection = "addresses"
)

// BaseRepo owns the client shared by every repository in this package.
// Transactions need a replica set; a standalone server is rejected by the
// first unit of work, not at startup.
type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger aqm.Logger
	config *aqm.Config
}

func NewBaseRepo(config *aqm.Config, logger aqm.Logger) *BaseRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	connString := mongoURL
	if connString == "" {
		connString = "mongodb://localhost:27017/?replicaSet=rs0"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "coordinator"
	}

	clientOptions := options.Client().ApplyURI(connString).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	if err := r.ensureIndexes(ctx); err != nil {
		return err
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s", connString, dbName)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *BaseRepo) Client() *mongo.Client {
	return r.client
}

// Drop removes every collection owned by the coordinator.
func (r *BaseRepo) Drop(ctx context.Context) error {
	for _, name := range []string{tablesCollection, ordersCollection, cartsCollection, addressesCollection} {
		if err := r.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("cannot drop %s: %w", name, err)
		}
	}
	return r.ensureIndexes(ctx)
}

func (r *BaseRepo) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		tablesCollection: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "order_time", Value: -1}}},
		},
		addressesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", name, err)
		}
	}
	return nil
}
