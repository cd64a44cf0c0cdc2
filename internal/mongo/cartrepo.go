package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	UserID    uuid.UUID    `bson:"_id"`
	Items     []order.Item `bson:"items"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// CartRepo keeps one document per user.
type CartRepo struct {
	collection *mongo.Collection
}

func NewCartRepo(db *mongo.Database) *CartRepo {
	return &CartRepo{
		collection: db.Collection(cartsCollection),
	}
}

func (r *CartRepo) ListItems(ctx context.Context, userID uuid.UUID) ([]order.Item, error) {
	doc, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []order.Item{}, nil
	}
	return doc.Items, nil
}

// AddItems merges items into the cart. Lines with the same name and unit
// price add up their quantities.
func (r *CartRepo) AddItems(ctx context.Context, userID uuid.UUID, items []order.Item) error {
	doc, err := r.load(ctx, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &cartDocument{UserID: userID}
	}

	doc.Items = order.MergeItems(doc.Items, items)
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": userID}, doc, opts); err != nil {
		return fmt.Errorf("cannot save cart: %w", err)
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("cannot clear cart: %w", err)
	}
	return nil
}

func (r *CartRepo) load(ctx context.Context, userID uuid.UUID) (*cartDocument, error) {
	var doc cartDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get cart: %w", err)
	}
	return &doc, nil
}
