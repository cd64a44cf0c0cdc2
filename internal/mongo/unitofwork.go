package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// UnitOfWork runs a function inside a multi-document transaction. The
// context handed to fn carries the session, so repository calls made with it
// join the transaction. fn may run more than once when the server reports a
// transient error.
type UnitOfWork struct {
	client *mongo.Client
}

func NewUnitOfWork(client *mongo.Client) *UnitOfWork {
	return &UnitOfWork{client: client}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := u.client.StartSession()
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	defer session.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return err
}
