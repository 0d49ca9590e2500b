package managehub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMemoryStoreDefaults tests absent-record reads
func TestMemoryStoreDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	role, found, err := store.Role(ctx, "nobody")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, RoleGuest, role)

	listed, err := store.Blacklisted(ctx, "nobody")
	assert.NoError(t, err)
	assert.False(t, listed)

	tier, found, err := store.Tier(ctx, "nobody")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, TierFree, tier)

	ms, err := store.MultiSigConfig(ctx)
	assert.NoError(t, err)
	assert.Nil(t, ms)

	transfer, err := store.PendingTransfer(ctx)
	assert.NoError(t, err)
	assert.Nil(t, transfer)

	proposal, err := store.Proposal(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, proposal)

	counter, err := store.Counter(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), counter)
}

// TestMemoryStoreRoundTrip tests basic writes and reads
func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.NoError(t, store.SetRole(ctx, "alice", RoleAdmin))
	role, found, err := store.Role(ctx, "alice")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, RoleAdmin, role)

	assert.NoError(t, store.SetBlacklisted(ctx, "eve", true))
	listed, _ := store.Blacklisted(ctx, "eve")
	assert.True(t, listed)
	assert.NoError(t, store.SetBlacklisted(ctx, "eve", false))
	listed, _ = store.Blacklisted(ctx, "eve")
	assert.False(t, listed)

	cfg := MultiSigConfig{Admins: []string{"a", "b"}, RequiredSignatures: 2}
	assert.NoError(t, store.SetMultiSigConfig(ctx, cfg))
	got, err := store.MultiSigConfig(ctx)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Admins, got.Admins)

	// Returned config is a copy, not an alias into the store.
	got.Admins[0] = "mutated"
	again, _ := store.MultiSigConfig(ctx)
	assert.Equal(t, "a", again.Admins[0])
}

// TestMemoryStoreTransactionRollback tests that a failing fn leaves no
// observable writes
func TestMemoryStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	assert.NoError(t, store.SetRole(ctx, "alice", RoleMember))

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		assert.NoError(t, tx.SetRole(ctx, "alice", RoleAdmin))
		assert.NoError(t, tx.SetRole(ctx, "bob", RoleMember))
		assert.NoError(t, tx.SetCounter(ctx, 99))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	role, _, _ := store.Role(ctx, "alice")
	assert.Equal(t, RoleMember, role)
	_, found, _ := store.Role(ctx, "bob")
	assert.False(t, found)
	counter, _ := store.Counter(ctx)
	assert.Equal(t, uint64(0), counter)
}

// TestMemoryStoreTransactionCommit tests that a successful fn persists
func TestMemoryStoreTransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.SetRole(ctx, "alice", RoleAdmin); err != nil {
			return err
		}
		return tx.SetFlag(ctx, FlagInitialized, true)
	})
	assert.NoError(t, err)

	role, _, _ := store.Role(ctx, "alice")
	assert.Equal(t, RoleAdmin, role)
	flag, _ := store.Flag(ctx, FlagInitialized)
	assert.True(t, flag)
}

// TestMemoryStoreNestedTransaction tests savepoint behavior: the inner
// rollback leaves outer writes intact
func TestMemoryStoreNestedTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("inner failure")

	err := store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.SetRole(ctx, "outer", RoleMember); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(ctx context.Context, tx Store) error {
			if err := tx.SetRole(ctx, "inner", RoleAdmin); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, inner, boom)
		return nil
	})
	assert.NoError(t, err)

	role, _, _ := store.Role(ctx, "outer")
	assert.Equal(t, RoleMember, role)
	_, found, _ := store.Role(ctx, "inner")
	assert.False(t, found)
}

// TestMemoryStorePendingIndex tests add/remove/list on the pending index
func TestMemoryStorePendingIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.NoError(t, store.AddPending(ctx, 3))
	assert.NoError(t, store.AddPending(ctx, 1))
	assert.NoError(t, store.AddPending(ctx, 2))
	assert.NoError(t, store.AddPending(ctx, 2)) // duplicate is a no-op

	ids, err := store.PendingIDs(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	assert.NoError(t, store.RemovePending(ctx, 2))
	assert.NoError(t, store.RemovePending(ctx, 99)) // unknown is a no-op
	ids, _ = store.PendingIDs(ctx)
	assert.Equal(t, []uint64{1, 3}, ids)
}

// TestMemoryStoreAuditLogFilter tests filtered audit retrieval
func TestMemoryStoreAuditLogFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entries := []AuditRecord{
		{ID: "1", Op: "set_role", Actor: "alice", Subject: "bob", At: 10},
		{ID: "2", Op: "pause", Actor: "alice", At: 20},
		{ID: "3", Op: "set_role", Actor: "carol", Subject: "bob", At: 30},
	}
	for _, e := range entries {
		assert.NoError(t, store.AppendAudit(ctx, e))
	}

	got, err := store.AuditLog(ctx, AuditFilter{}.WithActor("alice"))
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	got, _ = store.AuditLog(ctx, AuditFilter{}.WithOp("set_role").WithSubject("bob"))
	assert.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "3", got[0].ID)

	got, _ = store.AuditLog(ctx, AuditFilter{}.WithTimeRange(15, 25))
	assert.Len(t, got, 1)
	assert.Equal(t, "pause", got[0].Op)

	got, _ = store.AuditLog(ctx, AuditFilter{Limit: 1})
	assert.Len(t, got, 1)
}
