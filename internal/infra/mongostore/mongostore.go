// Package mongostore implements port.Store on MongoDB. Relationship lists
// are arrays of ObjectIDs on the owning document; cascading removals use a
// single UpdateMany with $pull and may run inside a session transaction.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var tracer = otel.Tracer("infra/mongostore")

var _ port.Store = (*Store)(nil)

// Collection names.
const (
	collClients      = "clients"
	collCompanies    = "companies"
	collSecretaries  = "secretaries"
	collShareholders = "shareholders"
	collServices     = "services"
	collTransactions = "transactions"
)

// Options configures the store.
type Options struct {
	URI          string
	Database     string
	Transactions bool // wrap multi-document writes in a session transaction
	Resilience   resilience.Config
}

// Store is the MongoDB persistence gateway.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	useTxn  bool
	exec    *resilience.Executor
	metrics *observability.Metrics
	logger  *zap.Logger

	clients      *mongo.Collection
	companies    *mongo.Collection
	secretaries  *mongo.Collection
	shareholders *mongo.Collection
	services     *mongo.Collection
	transactions *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, opts Options, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, opts, metrics, logger), nil
}

// New wraps an existing client.
func New(client *mongo.Client, opts Options, metrics *observability.Metrics, logger *zap.Logger) *Store {
	db := client.Database(opts.Database)
	return &Store{
		client:  client,
		db:      db,
		useTxn:  opts.Transactions,
		exec:    resilience.NewExecutor("mongo", opts.Resilience),
		metrics: metrics,
		logger:  logger,

		clients:      db.Collection(collClients),
		companies:    db.Collection(collCompanies),
		secretaries:  db.Collection(collSecretaries),
		shareholders: db.Collection(collShareholders),
		services:     db.Collection(collServices),
		transactions: db.Collection(collTransactions),
	}
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.read(ctx, "ping", func(ctx context.Context) error {
		return s.client.Ping(ctx, readpref.Primary())
	})
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique email index and the multikey indexes
// the cascading $pull updates and ledger listings rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	wanted := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.clients, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		{s.clients, mongo.IndexModel{Keys: bson.D{{Key: "company", Value: 1}}}},
		{s.companies, mongo.IndexModel{Keys: bson.D{{Key: "secretary", Value: 1}}}},
		{s.companies, mongo.IndexModel{Keys: bson.D{{Key: "shareholder", Value: 1}}}},
		{s.companies, mongo.IndexModel{Keys: bson.D{{Key: "services", Value: 1}}}},
		{s.transactions, mongo.IndexModel{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}}},
	}

	for _, ix := range wanted {
		name, err := ix.coll.Indexes().CreateOne(ctx, ix.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", ix.coll.Name(), err)
		}
		s.logger.Debug("index ensured", zap.String("collection", ix.coll.Name()), zap.String("index", name))
	}
	return nil
}

// read runs an idempotent operation with retries.
func (s *Store) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "mongo."+op)
	defer span.End()

	if err := s.exec.Read(ctx, fn); err != nil {
		return s.fail(span, op, err)
	}
	return nil
}

// write runs a mutation once, inside a transaction when enabled and multi
// is set.
func (s *Store) write(ctx context.Context, op string, multi bool, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "mongo."+op)
	defer span.End()

	run := fn
	if multi && s.useTxn {
		run = func(ctx context.Context) error { return s.inTransaction(ctx, fn) }
	}
	if err := s.exec.Write(ctx, run); err != nil {
		return s.fail(span, op, err)
	}
	return nil
}

func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// fail passes domain errors through and wraps everything else.
func (s *Store) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)

	var (
		conflict *domain.ErrConflict
		open     *domain.ErrCircuitOpen
		caller   *domain.ErrCallerNotFound
		tenant   *domain.ErrTenantNotFound
	)
	switch {
	case errors.As(err, &conflict), errors.As(err, &caller), errors.As(err, &tenant):
		return err
	case errors.As(err, &open):
		s.metrics.IncrStoreError(op)
		return err
	}

	s.metrics.IncrStoreError(op)
	s.logger.Error("mongo operation failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrStorage{Op: op, Err: err}
}

// oid parses a hex id. ok is false for malformed input, which callers treat
// as "not found".
func oid(id string) (primitive.ObjectID, bool) {
	v, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return v, true
}

// oids parses a list of ids, skipping malformed entries.
func oids(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if v, ok := oid(id); ok {
			out = append(out, v)
		}
	}
	return out
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

func (s *Store) memberColl(kind domain.MemberKind) (*mongo.Collection, string, error) {
	switch kind {
	case domain.MemberSecretary:
		return s.secretaries, "secretary", nil
	case domain.MemberShareholder:
		return s.shareholders, "shareholder", nil
	default:
		return nil, "", &domain.ErrValidation{Field: "kind", Message: "unknown member kind"}
	}
}

// isNoDocuments reports the driver's not-found sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
