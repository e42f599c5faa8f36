package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	client, ok := oid(t.ClientID)
	if !ok {
		return &domain.ErrCallerNotFound{ClientID: t.ClientID}
	}
	doc := newTransactionDoc(t, client)
	doc.ID = primitive.NewObjectID()

	err := s.write(ctx, "create_transaction", false, func(ctx context.Context) error {
		_, err := s.transactions.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return err
	}
	t.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}
	var (
		doc   transactionDoc
		found bool
	)
	err := s.read(ctx, "get_transaction", func(ctx context.Context) error {
		err := s.transactions.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
		if isNoDocuments(err) {
			found = false
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (s *Store) ListTransactions(ctx context.Context, clientID string) ([]*domain.Transaction, error) {
	client, ok := oid(clientID)
	if !ok {
		return []*domain.Transaction{}, nil
	}

	var docs []transactionDoc
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	err := s.read(ctx, "list_transactions", func(ctx context.Context) error {
		cur, err := s.transactions.Find(ctx, bson.M{"clientId": client}, opts)
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) (bool, error) {
	key, ok := oid(t.ID)
	if !ok {
		return false, nil
	}
	var matched bool
	err := s.write(ctx, "update_transaction", false, func(ctx context.Context) error {
		res, err := s.transactions.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": bson.M{
			"amount":                 t.Amount,
			"type":                   string(t.Type),
			"creditAfterTransaction": t.CreditAfterTransaction,
		}})
		if err != nil {
			return err
		}
		matched = res.MatchedCount > 0
		return nil
	})
	return matched, err
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	key, ok := oid(id)
	if !ok {
		return false, nil
	}
	var deleted bool
	err := s.write(ctx, "delete_transaction", false, func(ctx context.Context) error {
		res, err := s.transactions.DeleteOne(ctx, bson.M{"_id": key})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount > 0
		return nil
	})
	return deleted, err
}
