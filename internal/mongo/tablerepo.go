package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TableRepo struct {
	collection *mongo.Collection
}

func NewTableRepo(db *mongo.Database) *TableRepo {
	return &TableRepo{
		collection: db.Collection(tablesCollection),
	}
}

func (r *TableRepo) Create(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, table); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tables.ErrDuplicateNumber
		}
		return fmt.Errorf("cannot create table: %w", err)
	}

	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	var table tables.Table
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&table)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &table, nil
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*tables.Table, error) {
	var table tables.Table
	err := r.collection.FindOne(ctx, bson.M{"number": number}).Decode(&table)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table by number: %w", err)
	}
	return &table, nil
}

func (r *TableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{})
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *TableRepo) find(ctx context.Context, filter bson.M) ([]*tables.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort", Value: 1}, {Key: "number", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*tables.Table
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	return result, nil
}

// Save writes the admin-editable fields. Status and holder are left alone.
func (r *TableRepo) Save(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	table.BeforeUpdate()
	update := bson.M{"$set": bson.M{
		"number":     table.Number,
		"capacity":   table.Capacity,
		"sort":       table.Sort,
		"updated_at": table.UpdatedAt,
		"updated_by": table.UpdatedBy,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": table.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tables.ErrDuplicateNumber
		}
		return fmt.Errorf("cannot update table: %w", err)
	}

	if result.MatchedCount == 0 {
		return tables.ErrTableNotFound
	}

	return nil
}

func (r *TableRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$nin": tablestatus.Names(tablestatus.Statuses.Reserved, tablestatus.Statuses.Occupied)},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("cannot delete table: %w", err)
	}

	return result.DeletedCount > 0, nil
}

func (r *TableRepo) CompareAndSet(ctx context.Context, id uuid.UUID, guard tables.Guard, next tables.Assignment) (*tables.Table, error) {
	filter, update := casDocuments(id, guard, next, time.Now())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before tables.Table
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot update table status: %w", err)
	}

	return &before, nil
}

// casDocuments builds the filter and update of a conditional status write.
func casDocuments(id uuid.UUID, guard tables.Guard, next tables.Assignment, now time.Time) (bson.M, bson.M) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": guard.Statuses},
	}
	if guard.Holder != nil {
		filter["order_id"] = *guard.Holder
	}

	set := bson.M{
		"status":     next.Status,
		"updated_at": now,
		"updated_by": next.By,
	}
	update := bson.M{"$set": set}
	if next.Holder != nil {
		set["order_id"] = *next.Holder
	} else {
		update["$unset"] = bson.M{"order_id": ""}
	}

	return filter, update
}
