package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// BSON shapes. Field names follow the collections the portal has always
// used (company, secretary, shareholder, services).

type clientDoc struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty"`
	Email    string               `bson:"email"`
	Password string               `bson:"password"`
	Credits  int64                `bson:"credits"`
	Company  []primitive.ObjectID `bson:"company"`
}

type documentDoc struct {
	ID          string    `bson:"_id"`
	Filename    string    `bson:"filename"`
	ContentType string    `bson:"contentType,omitempty"`
	Size        int64     `bson:"size"`
	Content     []byte    `bson:"content,omitempty"`
	StorageKey  string    `bson:"storageKey,omitempty"`
	UploadedAt  time.Time `bson:"uploadedAt"`
}

type billingDoc struct {
	ID          string  `bson:"_id"`
	Description string  `bson:"description"`
	Amount      float64 `bson:"amount"`
	Paid        bool    `bson:"paid"`
}

type companyDoc struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	Name               string               `bson:"name"`
	Description        string               `bson:"description"`
	SSIC               string               `bson:"ssic"`
	Address            string               `bson:"address"`
	PaidUpShareCapital float64              `bson:"paidUpShareCapital"`
	Services           []primitive.ObjectID `bson:"services"`
	Secretary          []primitive.ObjectID `bson:"secretary"`
	Shareholder        []primitive.ObjectID `bson:"shareholder"`
	Documents          []documentDoc        `bson:"documents"`
	Billing            []billingDoc         `bson:"billing"`
}

type memberDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Name                string             `bson:"name"`
	ExternalID          string             `bson:"id,omitempty"`
	Email               string             `bson:"email,omitempty"`
	Contact             string             `bson:"contact,omitempty"`
	OrdinaryShareNumber int64              `bson:"ordinaryShareNumber,omitempty"`
}

type serviceDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Cost        int64              `bson:"cost"`
	Category    string             `bson:"category"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type transactionDoc struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	ClientID               primitive.ObjectID `bson:"clientId"`
	Amount                 int64              `bson:"amount"`
	Type                   string             `bson:"type"`
	CreditAfterTransaction int64              `bson:"creditAfterTransaction"`
	CreatedAt              time.Time          `bson:"createdAt"`
}

func (d *clientDoc) toDomain() *domain.Client {
	return &domain.Client{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		Credits:      d.Credits,
		CompanyIDs:   hexes(d.Company),
	}
}

func newClientDoc(c *domain.Client) clientDoc {
	return clientDoc{
		Email:    c.Email,
		Password: c.PasswordHash,
		Credits:  c.Credits,
		Company:  oids(c.CompanyIDs),
	}
}

func (d *companyDoc) toDomain() *domain.Company {
	c := &domain.Company{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Description:        d.Description,
		SSIC:               d.SSIC,
		Address:            d.Address,
		PaidUpShareCapital: d.PaidUpShareCapital,
		SecretaryIDs:       hexes(d.Secretary),
		ShareholderIDs:     hexes(d.Shareholder),
		ServiceIDs:         hexes(d.Services),
		Documents:          make([]domain.Document, 0, len(d.Documents)),
		Billing:            make([]domain.BillingEntry, 0, len(d.Billing)),
	}
	for _, doc := range d.Documents {
		c.Documents = append(c.Documents, domain.Document{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Size:        doc.Size,
			Content:     doc.Content,
			StorageKey:  doc.StorageKey,
			UploadedAt:  doc.UploadedAt,
		})
	}
	for _, b := range d.Billing {
		c.Billing = append(c.Billing, domain.BillingEntry{
			ID:          b.ID,
			Description: b.Description,
			Amount:      b.Amount,
			Paid:        b.Paid,
		})
	}
	return c
}

func newCompanyDoc(c *domain.Company) companyDoc {
	return companyDoc{
		Name:               c.Name,
		Description:        c.Description,
		SSIC:               c.SSIC,
		Address:            c.Address,
		PaidUpShareCapital: c.PaidUpShareCapital,
		Services:           oids(c.ServiceIDs),
		Secretary:          oids(c.SecretaryIDs),
		Shareholder:        oids(c.ShareholderIDs),
		Documents:          []documentDoc{},
		Billing:            []billingDoc{},
	}
}

func newDocumentDoc(d domain.Document) documentDoc {
	return documentDoc{
		ID:          d.ID,
		Filename:    d.Filename,
		ContentType: d.ContentType,
		Size:        d.Size,
		Content:     d.Content,
		StorageKey:  d.StorageKey,
		UploadedAt:  d.UploadedAt,
	}
}

func (d *memberDoc) toDomain(kind domain.MemberKind) *domain.Member {
	return &domain.Member{
		ID:                  d.ID.Hex(),
		Kind:                kind,
		Name:                d.Name,
		ExternalID:          d.ExternalID,
		Email:               d.Email,
		Contact:             d.Contact,
		OrdinaryShareNumber: d.OrdinaryShareNumber,
	}
}

func newMemberDoc(m *domain.Member) memberDoc {
	return memberDoc{
		Name:                m.Name,
		ExternalID:          m.ExternalID,
		Email:               m.Email,
		Contact:             m.Contact,
		OrdinaryShareNumber: m.OrdinaryShareNumber,
	}
}

func (d *serviceDoc) toDomain() *domain.Service {
	return &domain.Service{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Cost:        d.Cost,
		Category:    d.Category,
		CreatedAt:   d.CreatedAt,
	}
}

func newServiceDoc(s *domain.Service) serviceDoc {
	return serviceDoc{
		Name:        s.Name,
		Description: s.Description,
		Cost:        s.Cost,
		Category:    s.Category,
		CreatedAt:   s.CreatedAt,
	}
}

func (d *transactionDoc) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:                     d.ID.Hex(),
		ClientID:               d.ClientID.Hex(),
		Amount:                 d.Amount,
		Type:                   domain.TransactionType(d.Type),
		CreditAfterTransaction: d.CreditAfterTransaction,
		CreatedAt:              d.CreatedAt,
	}
}

func newTransactionDoc(t *domain.Transaction, clientID primitive.ObjectID) transactionDoc {
	return transactionDoc{
		ClientID:               clientID,
		Amount:                 t.Amount,
		Type:                   string(t.Type),
		CreditAfterTransaction: t.CreditAfterTransaction,
		CreatedAt:              t.CreatedAt,
	}
}
