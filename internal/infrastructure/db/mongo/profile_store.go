package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/panelprompt/auth-api/internal/core/domain"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

// codeUnauthorized is the server error code for a missing privilege.
const codeUnauthorized = 13

// TableStore serves the profile table from a MongoDB collection of the same name.
type TableStore struct {
	db *mongo.Database
}

func NewTableStore(db *mongo.Database) *TableStore {
	return &TableStore{db: db}
}

func (s *TableStore) Insert(ctx context.Context, table string, row any) error {
	if _, err := s.db.Collection(table).InsertOne(ctx, row); err != nil {
		return classify("insert", err)
	}
	return nil
}

func (s *TableStore) SelectEq(ctx context.Context, table string, columns []string, column, value string, limit int) ([]map[string]any, error) {
	opts := options.Find()
	if len(columns) > 0 {
		proj := bson.M{"_id": 0}
		for _, c := range columns {
			proj[c] = 1
		}
		opts.SetProjection(proj)
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.db.Collection(table).Find(ctx, bson.M{column: value}, opts)
	if err != nil {
		return nil, classify("select", err)
	}
	defer cur.Close(ctx)

	var rows []map[string]any
	if err := cur.All(ctx, &rows); err != nil {
		return nil, classify("select", err)
	}
	return rows, nil
}

// EnsureIndexes indexes the username lookup. Uniqueness is left to the operator.
func (s *TableStore) EnsureIndexes(ctx context.Context, table string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.db.Collection(table).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: domain.ProfileColumnUsername, Value: 1}}},
		{Keys: bson.D{{Key: "auth_user_id", Value: 1}}},
	})
	return err
}

func (s *TableStore) Name() string { return "mongodb" }

func (s *TableStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func classify(op string, err error) error {
	pe := &ports.ProviderError{Op: op, Message: err.Error(), Err: err}

	var ce mongo.CommandError
	var we mongo.WriteException
	switch {
	case mongo.IsDuplicateKeyError(err):
		pe.Kind = ports.FailureAlreadyExists
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		pe.Kind = ports.FailureUnavailable
	case errors.As(err, &ce) && ce.Code == codeUnauthorized:
		pe.Kind = ports.FailurePolicyDenied
		pe.Code = ce.Name
	case errors.As(err, &we) && we.HasErrorCode(codeUnauthorized):
		pe.Kind = ports.FailurePolicyDenied
	}
	return pe
}
