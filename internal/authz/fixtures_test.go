package authz_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
)

// world is two clients, each owning one company with one secretary and one
// shareholder.
type world struct {
	store              *memstore.Store
	alice, bob         *domain.Client
	aliceCo, bobCo     *domain.Company
	aliceSec, bobSec   *domain.Member
	aliceHold, bobHold *domain.Member
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	w := &world{store: s}

	w.alice = &domain.Client{Email: "alice@example.com"}
	w.bob = &domain.Client{Email: "bob@example.com"}
	require.NoError(t, s.CreateClient(ctx, w.alice))
	require.NoError(t, s.CreateClient(ctx, w.bob))

	w.aliceCo = &domain.Company{Name: "Alice Pte Ltd"}
	w.bobCo = &domain.Company{Name: "Bob Pte Ltd"}
	require.NoError(t, s.CreateCompany(ctx, w.alice.ID, w.aliceCo))
	require.NoError(t, s.CreateCompany(ctx, w.bob.ID, w.bobCo))

	add := func(kind domain.MemberKind, company *domain.Company, name string) *domain.Member {
		m := &domain.Member{Kind: kind, Name: name}
		require.NoError(t, s.CreateMember(ctx, m))
		require.NoError(t, s.AddMemberToCompany(ctx, company.ID, kind, m.ID))
		return m
	}
	w.aliceSec = add(domain.MemberSecretary, w.aliceCo, "Alice's secretary")
	w.bobSec = add(domain.MemberSecretary, w.bobCo, "Bob's secretary")
	w.aliceHold = add(domain.MemberShareholder, w.aliceCo, "Alice's shareholder")
	w.bobHold = add(domain.MemberShareholder, w.bobCo, "Bob's shareholder")

	// Refresh so the company snapshots carry the member ids.
	w.aliceCo, _ = s.GetCompany(ctx, w.aliceCo.ID)
	w.bobCo, _ = s.GetCompany(ctx, w.bobCo.ID)
	return w
}

// countingMembers records how often the guard reached the store.
type countingMembers struct {
	inner *memstore.Store
	calls atomic.Int32
}

func (c *countingMembers) GetMember(ctx context.Context, kind domain.MemberKind, id string) (*domain.Member, error) {
	c.calls.Add(1)
	return c.inner.GetMember(ctx, kind, id)
}

type recordedDecision struct{ step, outcome string }

type fakeRecorder struct {
	decisions []recordedDecision
}

func (f *fakeRecorder) IncrAuthzDecision(step, outcome string) {
	f.decisions = append(f.decisions, recordedDecision{step, outcome})
}
