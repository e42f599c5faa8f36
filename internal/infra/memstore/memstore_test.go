package memstore_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
)

func seedClient(t *testing.T, s *memstore.Store, email string) *domain.Client {
	t.Helper()
	c := &domain.Client{Email: email, PasswordHash: "x"}
	require.NoError(t, s.CreateClient(context.Background(), c))
	return c
}

func TestCreateClient_DuplicateEmail(t *testing.T) {
	s := memstore.New()
	seedClient(t, s, "a@example.com")

	err := s.CreateClient(context.Background(), &domain.Client{Email: "A@example.com"})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
}

func TestGetClient_Missing(t *testing.T) {
	s := memstore.New()
	c, err := s.GetClient(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestDeleteCompany_PullsFromEveryClient(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedClient(t, s, "a@example.com")
	b := seedClient(t, s, "b@example.com")

	company := &domain.Company{Name: "Acme"}
	require.NoError(t, s.CreateCompany(ctx, a.ID, company))

	// A second owner reference, as produced by a shared company.
	other := &domain.Company{Name: "Other"}
	require.NoError(t, s.CreateCompany(ctx, b.ID, other))

	got, err := s.GetClient(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{company.ID}, got.CompanyIDs)

	ok, err := s.DeleteCompany(ctx, company.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, _ = s.GetClient(ctx, a.ID)
	require.Empty(t, got.CompanyIDs)
	got, _ = s.GetClient(ctx, b.ID)
	require.Equal(t, []string{other.ID}, got.CompanyIDs)

	ok, err = s.DeleteCompany(ctx, company.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteMember_PullsFromEveryCompany(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner := seedClient(t, s, "a@example.com")

	c1 := &domain.Company{Name: "One"}
	c2 := &domain.Company{Name: "Two"}
	require.NoError(t, s.CreateCompany(ctx, owner.ID, c1))
	require.NoError(t, s.CreateCompany(ctx, owner.ID, c2))

	sec := &domain.Member{Kind: domain.MemberSecretary, Name: "Sam"}
	require.NoError(t, s.CreateMember(ctx, sec))
	require.NoError(t, s.AddMemberToCompany(ctx, c1.ID, domain.MemberSecretary, sec.ID))
	require.NoError(t, s.AddMemberToCompany(ctx, c2.ID, domain.MemberSecretary, sec.ID))

	ok, err := s.DeleteMember(ctx, domain.MemberSecretary, sec.ID)
	require.NoError(t, err)
	require.True(t, ok)

	for _, id := range []string{c1.ID, c2.ID} {
		c, err := s.GetCompany(ctx, id)
		require.NoError(t, err)
		require.NotContains(t, c.SecretaryIDs, sec.ID)
	}

	m, err := s.GetMember(ctx, domain.MemberSecretary, sec.ID)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestMembers_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	sh := &domain.Member{Kind: domain.MemberShareholder, Name: "Sheila"}
	require.NoError(t, s.CreateMember(ctx, sh))

	m, err := s.GetMember(ctx, domain.MemberSecretary, sh.ID)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestDeleteService_PullsFromCompanies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner := seedClient(t, s, "a@example.com")

	c := &domain.Company{Name: "Acme"}
	require.NoError(t, s.CreateCompany(ctx, owner.ID, c))
	svc := &domain.Service{Name: "Audit", Cost: 10}
	require.NoError(t, s.CreateService(ctx, svc))
	require.NoError(t, s.AddServiceToCompany(ctx, c.ID, svc.ID))

	ok, err := s.DeleteService(ctx, svc.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := s.GetCompany(ctx, c.ID)
	require.Empty(t, got.ServiceIDs)
}

func TestDebitCredits_Conditional(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := seedClient(t, s, "a@example.com")

	_, err := s.AdjustCredits(ctx, c.ID, 50)
	require.NoError(t, err)

	_, ok, err := s.DebitCredits(ctx, c.ID, 60)
	require.NoError(t, err)
	require.False(t, ok)

	updated, ok, err := s.DebitCredits(ctx, c.ID, 50)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(0), updated.Credits)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	now := time.Now()

	first := &domain.Transaction{ClientID: "c1", Amount: 1, Type: domain.TransactionCredit, CreatedAt: now}
	second := &domain.Transaction{ClientID: "c1", Amount: 2, Type: domain.TransactionCredit, CreatedAt: now}
	foreign := &domain.Transaction{ClientID: "c2", Amount: 3, Type: domain.TransactionCredit, CreatedAt: now}
	for _, tx := range []*domain.Transaction{first, second, foreign} {
		require.NoError(t, s.CreateTransaction(ctx, tx))
	}

	list, err := s.ListTransactions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestGetCompany_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner := seedClient(t, s, "a@example.com")
	c := &domain.Company{Name: "Acme"}
	require.NoError(t, s.CreateCompany(ctx, owner.ID, c))

	got, _ := s.GetCompany(ctx, c.ID)
	got.SecretaryIDs = append(got.SecretaryIDs, "injected")

	again, _ := s.GetCompany(ctx, c.ID)
	require.Empty(t, again.SecretaryIDs)
}

func TestGetCompany_DocumentContentIsCopied(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner := seedClient(t, s, "a@example.com")
	c := &domain.Company{Name: "Acme"}
	require.NoError(t, s.CreateCompany(ctx, owner.ID, c))
	require.NoError(t, s.AddDocument(ctx, c.ID, domain.Document{ID: "d1", Content: []byte("original")}))

	got, _ := s.GetCompany(ctx, c.ID)
	require.Len(t, got.Documents, 1)
	copy(got.Documents[0].Content, "tampered")

	again, _ := s.GetCompany(ctx, c.ID)
	require.Equal(t, []byte("original"), again.Documents[0].Content)
}

func TestAdjustCredits_RejectsOverflow(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := &domain.Client{Email: "rich@example.com", PasswordHash: "x", Credits: 100}
	require.NoError(t, s.CreateClient(ctx, c))

	_, err := s.AdjustCredits(ctx, c.ID, math.MaxInt64)
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	require.Equal(t, "amount", v.Field)

	got, _ := s.GetClient(ctx, c.ID)
	require.Equal(t, int64(100), got.Credits)

	got, err = s.AdjustCredits(ctx, c.ID, math.MaxInt64-100)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), got.Credits)
}
