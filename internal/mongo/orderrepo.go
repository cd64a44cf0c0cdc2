package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/appetiteclub/coordinator/internal/order"
	"github.com/appetiteclub/coordinator/pkg/enums/orderstatus"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) Transition(ctx context.Context, o *order.Order, expected []string) (bool, error) {
	if o == nil {
		return false, fmt.Errorf("order is nil")
	}

	filter := bson.M{
		"_id":    o.ID,
		"status": bson.M{"$in": expected},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": lifecycleFields(o)})
	if err != nil {
		return false, fmt.Errorf("cannot update order: %w", err)
	}

	return result.MatchedCount == 1, nil
}

func lifecycleFields(o *order.Order) bson.M {
	return bson.M{
		"status":           o.Status,
		"pay_status":       o.PayStatus,
		"checkout_time":    o.CheckoutTime,
		"cancel_time":      o.CancelTime,
		"delivery_time":    o.DeliveryTime,
		"cancel_reason":    o.CancelReason,
		"rejection_reason": o.RejectionReason,
		"updated_at":       o.UpdatedAt,
		"updated_by":       o.UpdatedBy,
	}
}

func (r *OrderRepo) CountActiveByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	filter := bson.M{
		"table_id": tableID,
		"status":   bson.M{"$in": orderstatus.Names(orderstatus.Active...)},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("cannot count active orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("cannot count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepo) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "status": status})
	if err != nil {
		return 0, fmt.Errorf("cannot count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepo) Search(ctx context.Context, q order.Query) (order.Page, error) {
	q = q.Normalize()
	filter := searchFilter(q)

	var page order.Page
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := r.collection.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("cannot count orders: %w", err)
		}
		page.Total = total
		return nil
	})

	g.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "order_time", Value: -1}}).
			SetSkip(int64(q.Offset())).
			SetLimit(int64(q.PageSize))

		cursor, err := r.collection.Find(gctx, filter, opts)
		if err != nil {
			return fmt.Errorf("cannot search orders: %w", err)
		}
		defer cursor.Close(gctx)

		var records []*order.Order
		if err := cursor.All(gctx, &records); err != nil {
			return fmt.Errorf("cannot decode orders: %w", err)
		}
		page.Records = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return order.Page{}, err
	}
	if page.Records == nil {
		page.Records = []*order.Order{}
	}
	return page, nil
}

func searchFilter(q order.Query) bson.M {
	filter := bson.M{}

	if q.UserID != nil {
		filter["user_id"] = *q.UserID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Number != "" {
		filter["number"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Number)}
	}

	window := bson.M{}
	if q.From != nil {
		window["$gte"] = *q.From
	}
	if q.To != nil {
		window["$lte"] = *q.To
	}
	if len(window) > 0 {
		filter["order_time"] = window
	}

	return filter
}
