package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

func (s *Store) CreateService(ctx context.Context, svc *domain.Service) error {
	doc := newServiceDoc(svc)
	doc.ID = primitive.NewObjectID()

	err := s.write(ctx, "create_service", false, func(ctx context.Context) error {
		_, err := s.services.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return err
	}
	svc.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}
	var (
		doc   serviceDoc
		found bool
	)
	err := s.read(ctx, "get_service", func(ctx context.Context) error {
		err := s.services.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
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

func (s *Store) ListServices(ctx context.Context) ([]*domain.Service, error) {
	return s.findServices(ctx, "list_services", bson.M{})
}

func (s *Store) ListServicesByID(ctx context.Context, ids []string) ([]*domain.Service, error) {
	keys := oids(ids)
	if len(keys) == 0 {
		return []*domain.Service{}, nil
	}
	return s.findServices(ctx, "list_services_by_id", bson.M{"_id": bson.M{"$in": keys}})
}

func (s *Store) findServices(ctx context.Context, op string, filter bson.M) ([]*domain.Service, error) {
	var docs []serviceDoc
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "name", Value: 1}})

	err := s.read(ctx, op, func(ctx context.Context) error {
		cur, err := s.services.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Service, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) UpdateService(ctx context.Context, svc *domain.Service) (bool, error) {
	key, ok := oid(svc.ID)
	if !ok {
		return false, nil
	}
	var matched bool
	err := s.write(ctx, "update_service", false, func(ctx context.Context) error {
		res, err := s.services.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": bson.M{
			"name":        svc.Name,
			"description": svc.Description,
			"cost":        svc.Cost,
			"category":    svc.Category,
		}})
		if err != nil {
			return err
		}
		matched = res.MatchedCount > 0
		return nil
	})
	return matched, err
}

func (s *Store) DeleteService(ctx context.Context, id string) (bool, error) {
	key, ok := oid(id)
	if !ok {
		return false, nil
	}
	var deleted bool
	err := s.write(ctx, "delete_service", true, func(ctx context.Context) error {
		res, err := s.services.DeleteOne(ctx, bson.M{"_id": key})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount > 0
		if !deleted {
			return nil
		}
		_, err = s.companies.UpdateMany(ctx,
			bson.M{"services": key},
			bson.M{"$pull": bson.M{"services": key}},
		)
		return err
	})
	return deleted, err
}
