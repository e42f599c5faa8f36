package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
)

func (s *Store) CreateCompany(ctx context.Context, ownerID string, c *domain.Company) error {
	owner, ok := oid(ownerID)
	if !ok {
		return &domain.ErrCallerNotFound{ClientID: ownerID}
	}
	doc := newCompanyDoc(c)
	doc.ID = primitive.NewObjectID()

	err := s.write(ctx, "create_company", true, func(ctx context.Context) error {
		if _, err := s.companies.InsertOne(ctx, doc); err != nil {
			return err
		}
		res, err := s.clients.UpdateOne(ctx,
			bson.M{"_id": owner},
			bson.M{"$addToSet": bson.M{"company": doc.ID}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// Without a transaction the orphan is removed by hand.
			if !s.useTxn {
				_, _ = s.companies.DeleteOne(ctx, bson.M{"_id": doc.ID})
			}
			return resilience.Permanent(&domain.ErrCallerNotFound{ClientID: ownerID})
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}
	var (
		doc   companyDoc
		found bool
	)
	err := s.read(ctx, "get_company", func(ctx context.Context) error {
		err := s.companies.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
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

func (s *Store) ListCompanies(ctx context.Context, ids []string) ([]*domain.Company, error) {
	keys := oids(ids)
	if len(keys) == 0 {
		return []*domain.Company{}, nil
	}

	var docs []companyDoc
	err := s.read(ctx, "list_companies", func(ctx context.Context) error {
		cur, err := s.companies.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	// Preserve the caller's ordering.
	byID := make(map[primitive.ObjectID]*companyDoc, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	out := make([]*domain.Company, 0, len(docs))
	for _, k := range keys {
		if d, ok := byID[k]; ok {
			out = append(out, d.toDomain())
		}
	}
	return out, nil
}

func (s *Store) UpdateCompany(ctx context.Context, id string, in *domain.CompanyInput) (*domain.Company, error) {
	key, ok := oid(id)
	if !ok {
		return nil, nil
	}
	var (
		doc   companyDoc
		found bool
	)
	update := bson.M{"$set": bson.M{
		"name":               in.Name,
		"description":        in.Description,
		"ssic":               in.SSIC,
		"address":            in.Address,
		"paidUpShareCapital": in.PaidUpShareCapital,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err := s.write(ctx, "update_company", false, func(ctx context.Context) error {
		err := s.companies.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&doc)
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

func (s *Store) DeleteCompany(ctx context.Context, id string) (bool, error) {
	key, ok := oid(id)
	if !ok {
		return false, nil
	}
	var deleted bool
	err := s.write(ctx, "delete_company", true, func(ctx context.Context) error {
		res, err := s.companies.DeleteOne(ctx, bson.M{"_id": key})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount > 0
		if !deleted {
			return nil
		}
		_, err = s.clients.UpdateMany(ctx,
			bson.M{"company": key},
			bson.M{"$pull": bson.M{"company": key}},
		)
		return err
	})
	return deleted, err
}

func (s *Store) AddMemberToCompany(ctx context.Context, companyID string, kind domain.MemberKind, memberID string) error {
	_, field, err := s.memberColl(kind)
	if err != nil {
		return err
	}
	member, ok := oid(memberID)
	if !ok {
		return &domain.ErrResourceNotFound{Resource: string(kind), ID: memberID}
	}
	return s.pushToCompany(ctx, "add_member_to_company", companyID, bson.M{"$addToSet": bson.M{field: member}})
}

func (s *Store) AddServiceToCompany(ctx context.Context, companyID, serviceID string) error {
	svc, ok := oid(serviceID)
	if !ok {
		return &domain.ErrResourceNotFound{Resource: "service", ID: serviceID}
	}
	return s.pushToCompany(ctx, "add_service_to_company", companyID, bson.M{"$addToSet": bson.M{"services": svc}})
}

func (s *Store) AddDocument(ctx context.Context, companyID string, doc domain.Document) error {
	return s.pushToCompany(ctx, "add_document", companyID, bson.M{"$push": bson.M{"documents": newDocumentDoc(doc)}})
}

func (s *Store) AddBillingEntry(ctx context.Context, companyID string, entry domain.BillingEntry) error {
	b := billingDoc{ID: entry.ID, Description: entry.Description, Amount: entry.Amount, Paid: entry.Paid}
	return s.pushToCompany(ctx, "add_billing_entry", companyID, bson.M{"$push": bson.M{"billing": b}})
}

func (s *Store) pushToCompany(ctx context.Context, op, companyID string, update bson.M) error {
	key, ok := oid(companyID)
	if !ok {
		return &domain.ErrTenantNotFound{CompanyID: companyID}
	}
	return s.write(ctx, op, false, func(ctx context.Context) error {
		res, err := s.companies.UpdateOne(ctx, bson.M{"_id": key}, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return resilience.Permanent(&domain.ErrTenantNotFound{CompanyID: companyID})
		}
		return nil
	})
}

func (s *Store) MarkBillingPaid(ctx context.Context, companyID, billingID string) (bool, error) {
	key, ok := oid(companyID)
	if !ok {
		return false, nil
	}
	var matched bool
	err := s.write(ctx, "mark_billing_paid", false, func(ctx context.Context) error {
		res, err := s.companies.UpdateOne(ctx,
			bson.M{"_id": key, "billing._id": billingID},
			bson.M{"$set": bson.M{"billing.$.paid": true}},
		)
		if err != nil {
			return err
		}
		matched = res.MatchedCount > 0
		return nil
	})
	return matched, err
}
