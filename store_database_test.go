package managehub

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newDatabaseTestStore(t *testing.T) *DatabaseStore {
	t.Helper()
	ctx := context.Background()

	db, err := NewDBKit(getTestDatabaseURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewDatabaseStore(db)
	if _, err := db.Migrate(ctx, NewMigrationService(New(store)).Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// TestDatabaseStoreAccountState tests upserts and reads of the per-account
// tables.
func TestDatabaseStoreAccountState(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}
	ctx := context.Background()
	store := newDatabaseTestStore(t)
	account := "acct-" + uuid.NewString()

	role, found, err := store.Role(ctx, account)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, RoleGuest, role)

	assert.NoError(t, store.SetRole(ctx, account, RoleMember))
	assert.NoError(t, store.SetRole(ctx, account, RoleAdmin))
	role, found, err = store.Role(ctx, account)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, RoleAdmin, role)

	listed, err := store.Blacklisted(ctx, account)
	assert.NoError(t, err)
	assert.False(t, listed)
	assert.NoError(t, store.SetBlacklisted(ctx, account, true))
	listed, _ = store.Blacklisted(ctx, account)
	assert.True(t, listed)
	assert.NoError(t, store.SetBlacklisted(ctx, account, false))
	listed, _ = store.Blacklisted(ctx, account)
	assert.False(t, listed)

	assert.NoError(t, store.SetTier(ctx, account, TierPro))
	tier, found, err := store.Tier(ctx, account)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, TierPro, tier)

	assert.NoError(t, store.SetAccessAttempts(ctx, account, 7))
	attempts, err := store.AccessAttempts(ctx, account)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), attempts)
}

// TestDatabaseStoreGovernanceState tests the JSON singleton rows and the
// boolean flags.
func TestDatabaseStoreGovernanceState(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}
	ctx := context.Background()
	store := newDatabaseTestStore(t)

	assert.NoError(t, store.SetFlag(ctx, FlagPaused, true))
	paused, err := store.Flag(ctx, FlagPaused)
	assert.NoError(t, err)
	assert.True(t, paused)
	assert.NoError(t, store.SetFlag(ctx, FlagPaused, false))

	admin := "admin-" + uuid.NewString()
	assert.NoError(t, store.SetAdmin(ctx, admin))
	stored, found, err := store.Admin(ctx)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, admin, stored)

	ms := MultiSigConfig{
		Admins:                 []string{"a", "b", "c"},
		RequiredSignatures:     2,
		CriticalThreshold:      3,
		EmergencyThreshold:     3,
		TimeLockDuration:       DefaultTimeLockDuration,
		MaxPendingProposals:    DefaultMaxPendingProposals,
		ProposalExpiryDuration: DefaultProposalExpiryDuration,
	}
	assert.NoError(t, store.SetMultiSigConfig(ctx, ms))
	got, err := store.MultiSigConfig(ctx)
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, ms, *got)
	}
}

// TestDatabaseStoreProposals tests the proposal rows, the pending flag and
// the counters.
func TestDatabaseStoreProposals(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}
	ctx := context.Background()
	store := newDatabaseTestStore(t)

	counter, err := store.Counter(ctx)
	assert.NoError(t, err)
	id := counter + 1000 // clear of ids used by other tests
	assert.NoError(t, store.SetCounter(ctx, id+1))

	proposal := PendingProposal{
		ID:                 id,
		Proposer:           "a",
		Type:               ProposalStandard,
		Action:             SetRoleAction("user-1", RoleMember),
		Approvals:          []string{"a"},
		RequiredSignatures: 2,
		CreatedAt:          1_700_000_000,
		Expiry:             1_700_604_800,
	}
	assert.NoError(t, store.SetProposal(ctx, proposal))
	assert.NoError(t, store.AddPending(ctx, id))

	got, err := store.Proposal(ctx, id)
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, proposal, *got)
	}

	pending, err := store.PendingIDs(ctx)
	assert.NoError(t, err)
	assert.Contains(t, pending, id)

	assert.NoError(t, store.RemovePending(ctx, id))
	pending, _ = store.PendingIDs(ctx)
	assert.NotContains(t, pending, id)

	// The row survives leaving the pending index.
	got, err = store.Proposal(ctx, id)
	assert.NoError(t, err)
	assert.NotNil(t, got)

	assert.NoError(t, store.DeleteProposal(ctx, id))
	got, err = store.Proposal(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

// TestDatabaseStoreTransactionRollback tests that a failed transaction
// leaves no partial writes behind.
func TestDatabaseStoreTransactionRollback(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}
	ctx := context.Background()
	store := newDatabaseTestStore(t)
	account := "acct-" + uuid.NewString()

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.SetRole(ctx, account, RoleAdmin); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	role, found, err := store.Role(ctx, account)
	assert.NoError(t, err)
	assert.False(t, found, "rolled-back write must not persist")
	assert.Equal(t, RoleGuest, role)
}

// TestDatabaseServiceEndToEnd tests a committee round-trip through the
// database-backed service.
func TestDatabaseServiceEndToEnd(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}
	ctx := context.Background()

	clock := NewManualClock(testEpoch)
	service, err := SetupTestDatabase(ctx, WithClock(clock))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	admins := []string{
		"admin-" + uuid.NewString(),
		"admin-" + uuid.NewString(),
		"admin-" + uuid.NewString(),
	}
	initialized, err := service.IsInitialized(ctx)
	assert.NoError(t, err)
	if initialized {
		t.Skip("database already initialized by a previous run")
	}
	assert.NoError(t, service.InitializeMultiSig(ctx, admins, 2, nil))

	user := "user-" + uuid.NewString()
	id, err := service.CreateProposal(ctx, admins[0], SetRoleAction(user, RoleMember))
	assert.NoError(t, err)
	assert.NoError(t, service.ApproveProposal(ctx, admins[1], id))

	role, err := service.GetRole(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, RoleMember, role)

	proposal, err := service.GetProposal(ctx, id)
	assert.NoError(t, err)
	assert.True(t, proposal.Executed)
}
