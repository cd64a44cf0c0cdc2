package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AddressRepo struct {
	collection *mongo.Collection
}

func NewAddressRepo(db *mongo.Database) *AddressRepo {
	return &AddressRepo{
		collection: db.Collection(addressesCollection),
	}
}

func (r *AddressRepo) Create(ctx context.Context, address *order.Address) error {
	if address == nil {
		return fmt.Errorf("address is nil")
	}

	if _, err := r.collection.InsertOne(ctx, address); err != nil {
		return fmt.Errorf("cannot create address: %w", err)
	}
	return nil
}

func (r *AddressRepo) Resolve(ctx context.Context, id uuid.UUID) (*order.Address, error) {
	var address order.Address
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&address)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get address: %w", err)
	}
	return &address, nil
}
