package mongostore

import (
	"context"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
)

func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	doc := newClientDoc(c)
	doc.Email = strings.ToLower(doc.Email)
	if doc.Company == nil {
		doc.Company = []primitive.ObjectID{}
	}

	return s.write(ctx, "create_client", false, func(ctx context.Context) error {
		res, err := s.clients.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return resilience.Permanent(&domain.ErrConflict{Message: "email already registered"})
		}
		if err != nil {
			return err
		}
		c.ID = res.InsertedID.(primitive.ObjectID).Hex()
		return nil
	})
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}
	return s.findClient(ctx, "get_client", bson.M{"_id": key})
}

func (s *Store) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return s.findClient(ctx, "get_client_by_email", bson.M{"email": strings.ToLower(email)})
}

func (s *Store) findClient(ctx context.Context, op string, filter bson.M) (*domain.Client, error) {
	var (
		doc   clientDoc
		found bool
	)
	err := s.read(ctx, op, func(ctx context.Context) error {
		err := s.clients.FindOne(ctx, filter).Decode(&doc)
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

func (s *Store) AdjustCredits(ctx context.Context, clientID string, delta int64) (*domain.Client, error) {
	key, ok := oid(clientID)
	if !ok {
		return nil, nil
	}
	c, err := s.updateCredits(ctx, "adjust_credits",
		bson.M{"_id": key, "credits": creditsRoomFor(delta)}, delta)
	if err != nil || c != nil {
		return c, err
	}
	// No match: either the client is gone or the $inc would overflow.
	existing, err := s.GetClient(ctx, clientID)
	if err != nil || existing == nil {
		return nil, err
	}
	_, err = domain.AddCredits(existing.Credits, delta)
	return nil, err
}

// creditsRoomFor matches balances that can absorb delta without leaving
// the int64 range.
func creditsRoomFor(delta int64) bson.M {
	if delta > 0 {
		return bson.M{"$lte": math.MaxInt64 - delta}
	}
	return bson.M{"$gte": math.MinInt64 - delta}
}

func (s *Store) DebitCredits(ctx context.Context, clientID string, amount int64) (*domain.Client, bool, error) {
	key, ok := oid(clientID)
	if !ok {
		return nil, false, nil
	}
	c, err := s.updateCredits(ctx, "debit_credits",
		bson.M{"_id": key, "credits": bson.M{"$gte": amount}}, -amount)
	if err != nil || c == nil {
		return nil, false, err
	}
	return c, true, nil
}

// updateCredits applies an atomic $inc and returns the document after it.
func (s *Store) updateCredits(ctx context.Context, op string, filter bson.M, delta int64) (*domain.Client, error) {
	var (
		doc   clientDoc
		found bool
	)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err := s.write(ctx, op, false, func(ctx context.Context) error {
		err := s.clients.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"credits": delta}}, opts).Decode(&doc)
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
