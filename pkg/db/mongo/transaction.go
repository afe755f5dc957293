package mongo

import (
	"context"
	"fmt"

	apperrors "rendezvous/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc receives a context bound to the transaction. Repository calls made with it
// participate in the same unit of work.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn in a transaction. When ctx already carries a session the call joins
// it instead of nesting, since MongoDB does not support nested transactions.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if sessCtx, ok := ctx.(mongo.SessionContext); ok {
		return fn(sessCtx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// IsSession reports whether ctx is bound to a MongoDB session.
func IsSession(ctx context.Context) bool {
	_, ok := ctx.(mongo.SessionContext)
	return ok
}

type passthroughTransactionManager struct{}

// NewPassthroughTransactionManager runs the function directly. It backs the in-memory stores,
// where atomicity comes from the owner lock held around the commit.
func NewPassthroughTransactionManager() TransactionManager {
	return passthroughTransactionManager{}
}

func (passthroughTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return fn(ctx)
}
