package managehub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestServiceCheckAccess tests hierarchy evaluation on the check path
func TestServiceCheckAccess(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))

	ok, err := service.CheckAccess(ctx, "bob", RoleGuest)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = service.CheckAccess(ctx, "bob", RoleMember)
	assert.True(t, ok)

	ok, _ = service.CheckAccess(ctx, "bob", RoleAdmin)
	assert.False(t, ok)

	// Unknown users are Guests.
	ok, _ = service.CheckAccess(ctx, "stranger", RoleGuest)
	assert.True(t, ok)
	ok, _ = service.CheckAccess(ctx, "stranger", RoleMember)
	assert.False(t, ok)
}

// TestServiceCheckAccessBlacklisted tests that blacklisted users are denied
// without an attempt being counted
func TestServiceCheckAccessBlacklisted(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))
	assert.NoError(t, service.BlacklistUser(ctx, "alice", "bob"))

	ok, err := service.CheckAccess(ctx, "bob", RoleGuest)
	assert.NoError(t, err)
	assert.False(t, ok)

	attempts, _ := service.AccessAttempts(ctx, "bob")
	assert.Equal(t, uint64(0), attempts)
}

// TestServiceCheckAccessAttemptCounter tests that every non-blacklist
// evaluation is counted, success or failure
func TestServiceCheckAccessAttemptCounter(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))

	_, _ = service.CheckAccess(ctx, "bob", RoleMember) // success
	_, _ = service.CheckAccess(ctx, "bob", RoleAdmin)  // failure
	_, _ = service.CheckAccess(ctx, "bob", RoleGuest)  // success

	attempts, err := service.AccessAttempts(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), attempts)
}

// TestServiceCheckAccessPreconditions tests error propagation for
// uninitialized and paused states
func TestServiceCheckAccessPreconditions(t *testing.T) {
	ctx := context.Background()

	service, _ := newTestService()
	_, err := service.CheckAccess(ctx, "bob", RoleGuest)
	assert.ErrorIs(t, err, ErrNotInitialized)

	service, _ = newSingleAdminService(t, "alice")
	assert.NoError(t, service.Pause(ctx, "alice"))
	_, err = service.CheckAccess(ctx, "bob", RoleGuest)
	assert.ErrorIs(t, err, ErrPaused)
}

// TestServiceCheckAccessMembershipPolicy tests the check-path policy: a
// missing contract passes, a failing or insufficient lookup denies instead
// of erroring
func TestServiceCheckAccessMembershipPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("contract missing passes", func(t *testing.T) {
		service, _ := newTestService()
		cfg := &AccessControlConfig{RequireMembershipForRoles: true, MinTokenBalance: 10}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		ok, err := service.CheckAccess(ctx, "alice", RoleAdmin)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("insufficient balance denies", func(t *testing.T) {
		source := MembershipSourceFunc(func(ctx context.Context, contract, account string) (int64, error) {
			return 1, nil
		})
		service, _ := newTestService(WithMembershipSource(source))
		cfg := &AccessControlConfig{
			RequireMembershipForRoles: true,
			MembershipContract:        "token-1",
			MinTokenBalance:           10,
		}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		ok, err := service.CheckAccess(ctx, "alice", RoleAdmin)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lookup failure denies", func(t *testing.T) {
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
		ok, err := service.CheckAccess(ctx, "alice", RoleAdmin)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

// TestServiceRequireAccess tests denial conversion
func TestServiceRequireAccess(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	assert.NoError(t, service.RequireAccess(ctx, "alice", RoleAdmin))
	assert.ErrorIs(t, service.RequireAccess(ctx, "stranger", RoleMember), ErrInsufficientRole)
}

// TestServiceCheckAccessByName tests the string-role legacy surface
func TestServiceCheckAccessByName(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	ok, err := service.CheckAccessByName(ctx, "alice", "admin")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.CheckAccessByName(ctx, "alice", "overlord")
	assert.NoError(t, err)
	assert.False(t, ok)
}

// TestServiceIsAdmin tests the pure role lookup
func TestServiceIsAdmin(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")

	ok, err := service.IsAdmin(ctx, "alice")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = service.IsAdmin(ctx, "bob")
	assert.False(t, ok)
}

// TestServiceCheckTierAccess tests tier evaluation
func TestServiceCheckTierAccess(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetUserTier(ctx, "alice", "bob", TierPro))

	ok, err := service.CheckTierAccess(ctx, "bob", TierBasic)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = service.CheckTierAccess(ctx, "bob", TierEnterprise)
	assert.False(t, ok)

	assert.NoError(t, service.BlacklistUser(ctx, "alice", "bob"))
	ok, _ = service.CheckTierAccess(ctx, "bob", TierFree)
	assert.False(t, ok)

	assert.ErrorIs(t, service.RequireTierAccess(ctx, "stranger", TierPro), ErrInsufficientRole)
}

// TestServiceCheckRoleAndTierAccess tests the combined check and its
// role-first short-circuit
func TestServiceCheckRoleAndTierAccess(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetRole(ctx, "alice", "bob", RoleMember))
	assert.NoError(t, service.SetUserTier(ctx, "alice", "bob", TierPro))

	ok, err := service.CheckRoleAndTierAccess(ctx, "bob", RoleMember, TierPro)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = service.CheckRoleAndTierAccess(ctx, "bob", RoleMember, TierEnterprise)
	assert.False(t, ok)

	// Role failure short-circuits before the tier is consulted.
	before, _ := service.AccessAttempts(ctx, "bob")
	ok, _ = service.CheckRoleAndTierAccess(ctx, "bob", RoleAdmin, TierFree)
	assert.False(t, ok)
	after, _ := service.AccessAttempts(ctx, "bob")
	assert.Equal(t, before+1, after)

	assert.ErrorIs(t, service.RequireRoleAndTierAccess(ctx, "bob", RoleAdmin, TierFree), ErrInsufficientRole)
}

// TestServiceValidateTierForRole tests tier requirements for role holders
func TestServiceValidateTierForRole(t *testing.T) {
	ctx := context.Background()

	t.Run("not enforced", func(t *testing.T) {
		service, _ := newSingleAdminService(t, "alice")
		ok, err := service.ValidateTierForRole(ctx, "bob", RoleMember)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("enforced", func(t *testing.T) {
		service, _ := newTestService()
		cfg := &AccessControlConfig{EnforceTierRestrictions: true}
		assert.NoError(t, service.Initialize(ctx, "alice", cfg))
		assert.NoError(t, service.SetRequiredTierForRole(ctx, "alice", RoleMember, TierBasic))

		ok, _ := service.ValidateTierForRole(ctx, "bob", RoleMember)
		assert.False(t, ok)

		assert.NoError(t, service.SetUserTier(ctx, "alice", "bob", TierBasic))
		ok, _ = service.ValidateTierForRole(ctx, "bob", RoleMember)
		assert.True(t, ok)
	})
}

// TestServiceSubscriptionStatus tests the cached-tier status record
func TestServiceSubscriptionStatus(t *testing.T) {
	ctx := context.Background()
	service, _ := newSingleAdminService(t, "alice")
	assert.NoError(t, service.SetUserTier(ctx, "alice", "bob", TierEnterprise))

	status, err := service.SubscriptionStatus(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, TierEnterprise, status.Tier)
	assert.True(t, status.Active)
	assert.Equal(t, uint64(0), status.ExpiresAt)
}
