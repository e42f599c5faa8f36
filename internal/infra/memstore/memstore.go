// Package memstore is an in-process implementation of port.Store. It backs
// STORE_BACKEND=memory and doubles as the persistence fake in tests. One
// mutex serializes every operation, so cascading removals are atomic.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var _ port.Store = (*Store)(nil)

// Store holds every collection in maps keyed by id.
type Store struct {
	mu           sync.RWMutex
	clients      map[string]*domain.Client
	companies    map[string]*domain.Company
	members      map[domain.MemberKind]map[string]*domain.Member
	services     map[string]*domain.Service
	transactions map[string]*domain.Transaction
	seq          int64 // insertion order for stable newest-first listings
	txnSeq       map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		clients:   map[string]*domain.Client{},
		companies: map[string]*domain.Company{},
		members: map[domain.MemberKind]map[string]*domain.Member{
			domain.MemberSecretary:   {},
			domain.MemberShareholder: {},
		},
		services:     map[string]*domain.Service{},
		transactions: map[string]*domain.Transaction{},
		txnSeq:       map[string]int64{},
	}
}

func newID() string { return uuid.NewString() }

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error { return nil }

// ============================================================
// Clients
// ============================================================

func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(c.Email)
	for _, existing := range s.clients {
		if strings.ToLower(existing.Email) == email {
			return &domain.ErrConflict{Message: "email already registered"}
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	s.clients[c.ID] = cloneClient(c)
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.clients[id]; ok {
		return cloneClient(c), nil
	}
	return nil, nil
}

func (s *Store) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, c := range s.clients {
		if strings.ToLower(c.Email) == email {
			return cloneClient(c), nil
		}
	}
	return nil, nil
}

func (s *Store) AdjustCredits(ctx context.Context, clientID string, delta int64) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	credits, err := domain.AddCredits(c.Credits, delta)
	if err != nil {
		return nil, err
	}
	c.Credits = credits
	return cloneClient(c), nil
}

func (s *Store) DebitCredits(ctx context.Context, clientID string, amount int64) (*domain.Client, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok || c.Credits < amount {
		return nil, false, nil
	}
	c.Credits -= amount
	return cloneClient(c), true, nil
}

// ============================================================
// Companies
// ============================================================

func (s *Store) CreateCompany(ctx context.Context, ownerID string, c *domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.clients[ownerID]
	if !ok {
		return &domain.ErrCallerNotFound{ClientID: ownerID}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	s.companies[c.ID] = cloneCompany(c)
	owner.CompanyIDs = appendUnique(owner.CompanyIDs, c.ID)
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.companies[id]; ok {
		return cloneCompany(c), nil
	}
	return nil, nil
}

func (s *Store) ListCompanies(ctx context.Context, ids []string) ([]*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.companies[id]; ok {
			out = append(out, cloneCompany(c))
		}
	}
	return out, nil
}

func (s *Store) UpdateCompany(ctx context.Context, id string, in *domain.CompanyInput) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	c.Name = in.Name
	c.Description = in.Description
	c.SSIC = in.SSIC
	c.Address = in.Address
	c.PaidUpShareCapital = in.PaidUpShareCapital
	return cloneCompany(c), nil
}

func (s *Store) DeleteCompany(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[id]; !ok {
		return false, nil
	}
	delete(s.companies, id)
	for _, c := range s.clients {
		c.CompanyIDs = remove(c.CompanyIDs, id)
	}
	return true, nil
}

func (s *Store) AddMemberToCompany(ctx context.Context, companyID string, kind domain.MemberKind, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return &domain.ErrTenantNotFound{CompanyID: companyID}
	}
	switch kind {
	case domain.MemberSecretary:
		c.SecretaryIDs = appendUnique(c.SecretaryIDs, memberID)
	case domain.MemberShareholder:
		c.ShareholderIDs = appendUnique(c.ShareholderIDs, memberID)
	}
	return nil
}

func (s *Store) AddServiceToCompany(ctx context.Context, companyID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return &domain.ErrTenantNotFound{CompanyID: companyID}
	}
	c.ServiceIDs = appendUnique(c.ServiceIDs, serviceID)
	return nil
}

func (s *Store) AddDocument(ctx context.Context, companyID string, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return &domain.ErrTenantNotFound{CompanyID: companyID}
	}
	doc.Content = slices.Clone(doc.Content)
	c.Documents = append(c.Documents, doc)
	return nil
}

func (s *Store) AddBillingEntry(ctx context.Context, companyID string, entry domain.BillingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return &domain.ErrTenantNotFound{CompanyID: companyID}
	}
	c.Billing = append(c.Billing, entry)
	return nil
}

func (s *Store) MarkBillingPaid(ctx context.Context, companyID, billingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return false, nil
	}
	for i := range c.Billing {
		if c.Billing[i].ID == billingID {
			c.Billing[i].Paid = true
			return true, nil
		}
	}
	return false, nil
}

// ============================================================
// Members
// ============================================================

func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.members[m.Kind]
	if !ok {
		return &domain.ErrValidation{Field: "kind", Message: "unknown member kind"}
	}
	if m.ID == "" {
		m.ID = newID()
	}
	cp := *m
	coll[m.ID] = &cp
	return nil
}

func (s *Store) GetMember(ctx context.Context, kind domain.MemberKind, id string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.members[kind][id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListMembers(ctx context.Context, kind domain.MemberKind, ids []string) ([]*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Member, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.members[kind][id]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateMember(ctx context.Context, m *domain.Member) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.members[m.Kind]
	if _, ok := coll[m.ID]; !ok {
		return false, nil
	}
	cp := *m
	coll[m.ID] = &cp
	return true, nil
}

func (s *Store) DeleteMember(ctx context.Context, kind domain.MemberKind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.members[kind]
	if _, ok := coll[id]; !ok {
		return false, nil
	}
	delete(coll, id)
	for _, c := range s.companies {
		switch kind {
		case domain.MemberSecretary:
			c.SecretaryIDs = remove(c.SecretaryIDs, id)
		case domain.MemberShareholder:
			c.ShareholderIDs = remove(c.ShareholderIDs, id)
		}
	}
	return true, nil
}

// ============================================================
// Service catalogue
// ============================================================

func (s *Store) CreateService(ctx context.Context, svc *domain.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.ID == "" {
		svc.ID = newID()
	}
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if svc, ok := s.services[id]; ok {
		cp := *svc
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListServices(ctx context.Context) ([]*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		cp := *svc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListServicesByID(ctx context.Context, ids []string) ([]*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			cp := *svc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateService(ctx context.Context, svc *domain.Service) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[svc.ID]; !ok {
		return false, nil
	}
	cp := *svc
	s.services[svc.ID] = &cp
	return true, nil
}

func (s *Store) DeleteService(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[id]; !ok {
		return false, nil
	}
	delete(s.services, id)
	for _, c := range s.companies {
		c.ServiceIDs = remove(c.ServiceIDs, id)
	}
	return true, nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	cp := *t
	s.transactions[t.ID] = &cp
	s.seq++
	s.txnSeq[t.ID] = s.seq
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transactions[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListTransactions(ctx context.Context, clientID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Transaction, 0)
	for _, t := range s.transactions {
		if t.ClientID == clientID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.txnSeq[out[i].ID] > s.txnSeq[out[j].ID]
	})
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[t.ID]; !ok {
		return false, nil
	}
	cp := *t
	s.transactions[t.ID] = &cp
	return true, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return false, nil
	}
	delete(s.transactions, id)
	delete(s.txnSeq, id)
	return true, nil
}

// ============================================================
// helpers
// ============================================================

func cloneClient(c *domain.Client) *domain.Client {
	cp := *c
	cp.CompanyIDs = slices.Clone(c.CompanyIDs)
	return &cp
}

func cloneCompany(c *domain.Company) *domain.Company {
	cp := *c
	cp.SecretaryIDs = slices.Clone(c.SecretaryIDs)
	cp.ShareholderIDs = slices.Clone(c.ShareholderIDs)
	cp.ServiceIDs = slices.Clone(c.ServiceIDs)
	cp.Documents = slices.Clone(c.Documents)
	for i := range cp.Documents {
		cp.Documents[i].Content = slices.Clone(c.Documents[i].Content)
	}
	cp.Billing = slices.Clone(c.Billing)
	return &cp
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}
