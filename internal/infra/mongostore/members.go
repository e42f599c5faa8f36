package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	coll, _, err := s.memberColl(m.Kind)
	if err != nil {
		return err
	}
	doc := newMemberDoc(m)
	doc.ID = primitive.NewObjectID()

	err = s.write(ctx, "create_"+string(m.Kind), false, func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return err
	}
	m.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetMember(ctx context.Context, kind domain.MemberKind, id string) (*domain.Member, error) {
	coll, _, err := s.memberColl(kind)
	if err != nil {
		return nil, err
	}
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}

	var (
		doc   memberDoc
		found bool
	)
	err = s.read(ctx, "get_"+string(kind), func(ctx context.Context) error {
		err := coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
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
	return doc.toDomain(kind), nil
}

func (s *Store) ListMembers(ctx context.Context, kind domain.MemberKind, ids []string) ([]*domain.Member, error) {
	coll, _, err := s.memberColl(kind)
	if err != nil {
		return nil, err
	}
	keys := oids(ids)
	if len(keys) == 0 {
		return []*domain.Member{}, nil
	}

	var docs []memberDoc
	err = s.read(ctx, "list_"+string(kind), func(ctx context.Context) error {
		cur, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*memberDoc, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	out := make([]*domain.Member, 0, len(docs))
	for _, k := range keys {
		if d, ok := byID[k]; ok {
			out = append(out, d.toDomain(kind))
		}
	}
	return out, nil
}

func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) (bool, error) {
	coll, _, err := s.memberColl(m.Kind)
	if err != nil {
		return false, err
	}
	key, ok := oid(m.ID)
	if !ok {
		return false, nil
	}

	set := bson.M{
		"name":    m.Name,
		"id":      m.ExternalID,
		"email":   m.Email,
		"contact": m.Contact,
	}
	if m.Kind == domain.MemberShareholder {
		set["ordinaryShareNumber"] = m.OrdinaryShareNumber
	}

	var matched bool
	err = s.write(ctx, "update_"+string(m.Kind), false, func(ctx context.Context) error {
		res, err := coll.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set})
		if err != nil {
			return err
		}
		matched = res.MatchedCount > 0
		return nil
	})
	return matched, err
}

func (s *Store) DeleteMember(ctx context.Context, kind domain.MemberKind, id string) (bool, error) {
	coll, field, err := s.memberColl(kind)
	if err != nil {
		return false, err
	}
	key, ok := oid(id)
	if !ok {
		return false, nil
	}

	var deleted bool
	err = s.write(ctx, "delete_"+string(kind), true, func(ctx context.Context) error {
		res, err := coll.DeleteOne(ctx, bson.M{"_id": key})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount > 0
		if !deleted {
			return nil
		}
		_, err = s.companies.UpdateMany(ctx,
			bson.M{field: key},
			bson.M{"$pull": bson.M{field: key}},
		)
		return err
	})
	return deleted, err
}
