package managehub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestServiceSetRole tests the happy path and previous-role auditing
func TestServiceSetRole(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))
	role, err := service.GetRole(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, RoleMember, role)

	// Overwrite records the previous role.
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleAdmin))
	entries, _ := service.AuditLog(ctx, AuditFilter{}.WithOp("set_role").WithSubject("bob"))
	assert.Equal(t, "Member", entries[0].Previous)
}

// TestServiceSetRoleGuards tests the guard order preconditions
func TestServiceSetRoleGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("uninitialized", func(t *testing.T) {
		service, _ := newTestService()
		assert.ErrorIs(t, service.SetRole(ctx, "alice", "bob", RoleMember), ErrNotInitialized)
	})

	t.Run("non-admin caller", func(t *testing.T) {
		service, _ := newSingleAdminService(t, "alice")
		assert.ErrorIs(t, service.SetRole(ctx, "bob", "carol", RoleMember), ErrAdminRequired)
	})

	t.Run("blacklisted target", func(t *testing.T) {
		service, _ := newSingleAdminService(t, "alice")
		assert.NoError(t, service.BlacklistUser(ctx, "alice", "eve"))
		assert.ErrorIs(t, service.SetRole(ctx, "alice", "eve", RoleMember), ErrUnauthorized)
	})
}

// TestServiceSetRoleMembershipPolicy tests the assignment-path membership
// checks
func TestServiceSetRoleMembershipPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("contract not set", func(t *testing.T) {
		service, _ := newTestService()
		cfg := &AccessControlConfig{RequireMembershipForRoles: true, MinTokenBalance: 10}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		assert.ErrorIs(t, service.SetRole(ctx, "alice", "bob", RoleMember), ErrMembershipContractNotSet)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		source := MembershipSourceFunc(func(ctx context.Context, contract, account string) (int64, error) {
			return 5, nil
		})
		service, _ := newTestService(WithMembershipSource(source))
		cfg := &AccessControlConfig{
			RequireMembershipForRoles: true,
			MembershipContract:        "token-1",
			MinTokenBalance:           10,
		}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		assert.ErrorIs(t, service.SetRole(ctx, "alice", "bob", RoleMember), ErrInsufficientMembership)

		// Guest assignment skips the membership check.
		assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleGuest))
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		source := MembershipSourceFunc(func(ctx context.Context, contract, account string) (int64, error) {
			return 0, errors.New("rpc timeout")
		})
		service, _ := newTestService(WithMembershipSource(source))
		cfg := &AccessControlConfig{
			RequireMembershipForRoles: true,
			MembershipContract:        "token-1",
			MinTokenBalance:           10,
		}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		assert.ErrorIs(t, service.SetRole(ctx, "alice", "bob", RoleMember), ErrMembershipCallFailed)
	})

	t.Run("sufficient balance passes", func(t *testing.T) {
		source := MembershipSourceFunc(func(ctx context.Context, contract, account string) (int64, error) {
			return 100, nil
		})
		service, _ := newTestService(WithMembershipSource(source))
		cfg := &AccessControlConfig{
			RequireMembershipForRoles: true,
			MembershipContract:        "token-1",
			MinTokenBalance:           10,
		}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))
	})
}

// TestServiceRemoveRole tests resetting to Guest with hierarchy guards
func TestServiceRemoveRole(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))

	assert.NoError(t, service.RemoveRole(ctx, "alice", "bob"))
	role, _ := service.GetRole(ctx, "bob")
	assert.Equal(t, RoleGuest, role)

	// The stored admin cannot be stripped.
	assert.ErrorIs(t, service.RemoveRole(ctx, "alice", "alice"), ErrRoleHierarchyViolation)
	role, _ = service.GetRole(ctx, "alice")
	assert.Equal(t, RoleAdmin, role)
}

// TestServiceRemoveRoleSelfDemotion tests that a committee admin cannot
// demote itself
func TestServiceRemoveRoleSelfDemotion(t *testing.T) {
	ctx := context.Background()
	service, _ := newCommitteeService(t, []string{"a", "b", "c"}, 2)

	assert.ErrorIs(t, service.RemoveRole(ctx, "a", "a"), ErrRoleHierarchyViolation)
	role, _ := service.GetRole(ctx, "a")
	assert.Equal(t, RoleAdmin, role)

	// Demoting a fellow member's role record is allowed; committee
	// membership itself only changes through a RemoveAdmin proposal.
	assert.NoError(t, service.RemoveRole(ctx, "a", "b"))
}

// TestServiceBlacklist tests blacklist set/clear/query
func TestServiceBlacklist(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	listed, err := service.IsBlacklisted(ctx, "eve")
	assert.NoError(t, err)
	assert.False(t, listed)

	assert.NoError(t, service.BlacklistUser(ctx, "alice", "eve"))
	listed, _ = service.IsBlacklisted(ctx, "eve")
	assert.True(t, listed)

	assert.NoError(t, service.UnblacklistUser(ctx, "alice", "eve"))
	listed, _ = service.IsBlacklisted(ctx, "eve")
	assert.False(t, listed)

	assert.ErrorIs(t, service.BlacklistUser(ctx, "bob", "eve"), ErrAdminRequired)
}

// TestServiceTiers tests tier storage and per-role requirements
func TestServiceTiers(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	tier, err := service.GetUserTier(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, TierFree, tier)

	assert.NoError(t, service.SetUserTier(ctx, "alice", "bob", TierPro))
	tier, _ = service.GetUserTier(ctx, "bob")
	assert.Equal(t, TierPro, tier)

	assert.ErrorIs(t, service.SetUserTier(ctx, "bob", "bob", TierEnterprise), ErrAdminRequired)

	required, err := service.GetRequiredTierForRole(ctx, RoleMember)
	assert.NoError(t, err)
	assert.Equal(t, TierFree, required)

	assert.NoError(t, service.SetRequiredTierForRole(ctx, "alice", RoleMember, TierBasic))
	required, _ = service.GetRequiredTierForRole(ctx, RoleMember)
	assert.Equal(t, TierBasic, required)
}
