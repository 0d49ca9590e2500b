package managehub

import (
	"context"
)

// ============================================================================
// ACCESS CHECKS
// ============================================================================

// CheckAccess reports whether user satisfies the required role. Blacklisted
// users always get false without an attempt being counted; every other
// evaluation increments the user's access-attempt counter, success or not.
// When the policy requires membership proof for the required role, the
// external balance is re-validated on this path too, and a failing lookup
// reads as denied rather than an error.
//
// Errors propagate only for precondition failures (uninitialized, paused)
// and storage faults.
func (s *Service) CheckAccess(ctx context.Context, user string, required Role) (bool, error) {
	var allowed bool
	err := s.mutate(ctx, "check_access", func(ctx context.Context, tx *txState) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		if err := requireNotPaused(ctx, tx); err != nil {
			return err
		}

		listed, err := tx.Blacklisted(ctx, user)
		if err != nil {
			return err
		}
		if listed {
			allowed = false
			return nil
		}

		role, _, err := tx.Role(ctx, user)
		if err != nil {
			return err
		}
		if !role.HasAccess(required) {
			allowed = false
			return logAccessAttempt(ctx, tx, user)
		}

		allowed = s.validateMembershipAccess(ctx, tx, user, required) == nil
		return logAccessAttempt(ctx, tx, user)
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// RequireAccess is CheckAccess with denial converted into an explicit
// insufficient-role error.
func (s *Service) RequireAccess(ctx context.Context, user string, required Role) error {
	ok, err := s.CheckAccess(ctx, user, required)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrInsufficientRole, "access denied").WithSubject(user).WithRole(required)
	}
	return nil
}

// CheckAccessByName is CheckAccess over a role name, for callers holding
// roles as strings. Unknown names read as denied.
func (s *Service) CheckAccessByName(ctx context.Context, user, requiredRole string) (bool, error) {
	required, ok := ParseRole(requiredRole)
	if !ok {
		return false, nil
	}
	return s.CheckAccess(ctx, user, required)
}

// IsAdmin reports whether the user's stored role is Admin. This is a pure
// role lookup; committee membership is resolved separately by the
// privileged entry points.
func (s *Service) IsAdmin(ctx context.Context, user string) (bool, error) {
	role, _, err := s.store.Role(ctx, user)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}

// AccessAttempts returns the number of counted access evaluations for a
// user.
func (s *Service) AccessAttempts(ctx context.Context, user string) (uint64, error) {
	return s.store.AccessAttempts(ctx, user)
}

func logAccessAttempt(ctx context.Context, tx Store, user string) error {
	count, err := tx.AccessAttempts(ctx, user)
	if err != nil {
		return err
	}
	return tx.SetAccessAttempts(ctx, user, count+1)
}

// validateMembershipAccess enforces the membership policy on the check
// path. Unlike the assignment path a missing contract passes; only a
// configured contract with an insufficient or unobtainable balance denies.
func (s *Service) validateMembershipAccess(ctx context.Context, store Store, user string, required Role) error {
	cfg, _, err := store.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.RequireMembershipForRoles || required < RoleMember || cfg.MembershipContract == "" {
		return nil
	}
	info, err := s.lookupMembership(ctx, cfg.MembershipContract, user)
	if err != nil {
		return err
	}
	if info.Balance < cfg.MinTokenBalance {
		return NewError(ErrInsufficientMembership, "balance below configured minimum").WithSubject(user)
	}
	return nil
}

// ============================================================================
// TIER CHECKS
// ============================================================================

// CheckTierAccess reports whether the user's tier satisfies the required
// tier. Blacklisted users always get false. The tier axis is independent of
// roles.
func (s *Service) CheckTierAccess(ctx context.Context, user string, required TierLevel) (bool, error) {
	if err := requireInitialized(ctx, s.store); err != nil {
		return false, err
	}
	if err := requireNotPaused(ctx, s.store); err != nil {
		return false, err
	}
	listed, err := s.store.Blacklisted(ctx, user)
	if err != nil {
		return false, err
	}
	if listed {
		return false, nil
	}
	tier, _, err := s.store.Tier(ctx, user)
	if err != nil {
		return false, err
	}
	return tier.HasTierAccess(required), nil
}

// RequireTierAccess is CheckTierAccess with denial converted into an error.
func (s *Service) RequireTierAccess(ctx context.Context, user string, required TierLevel) error {
	ok, err := s.CheckTierAccess(ctx, user, required)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrInsufficientRole, "tier access denied").WithSubject(user)
	}
	return nil
}

// CheckRoleAndTierAccess requires both axes to pass, short-circuiting on
// the role check first.
func (s *Service) CheckRoleAndTierAccess(ctx context.Context, user string, requiredRole Role, requiredTier TierLevel) (bool, error) {
	ok, err := s.CheckAccess(ctx, user, requiredRole)
	if err != nil || !ok {
		return false, err
	}
	return s.CheckTierAccess(ctx, user, requiredTier)
}

// RequireRoleAndTierAccess is CheckRoleAndTierAccess with denial converted
// into an error.
func (s *Service) RequireRoleAndTierAccess(ctx context.Context, user string, requiredRole Role, requiredTier TierLevel) error {
	ok, err := s.CheckRoleAndTierAccess(ctx, user, requiredRole, requiredTier)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrInsufficientRole, "role and tier access denied").WithSubject(user)
	}
	return nil
}

// ValidateTierForRole reports whether the user's tier meets the configured
// requirement for a role. Always true while tier restrictions are not
// enforced by the policy.
func (s *Service) ValidateTierForRole(ctx context.Context, user string, role Role) (bool, error) {
	cfg, _, err := s.store.Config(ctx)
	if err != nil {
		return false, err
	}
	if !cfg.EnforceTierRestrictions {
		return true, nil
	}
	required, _, err := s.store.RequiredTier(ctx, role)
	if err != nil {
		return false, err
	}
	tier, _, err := s.store.Tier(ctx, user)
	if err != nil {
		return false, err
	}
	return tier.HasTierAccess(required), nil
}

// SubscriptionStatus returns the user's cached tier as a status record. The
// cached tier is treated as active until a subscription source is wired.
func (s *Service) SubscriptionStatus(ctx context.Context, user string) (SubscriptionStatus, error) {
	tier, _, err := s.store.Tier(ctx, user)
	if err != nil {
		return SubscriptionStatus{}, err
	}
	return SubscriptionStatus{Tier: tier, Active: true, ExpiresAt: 0}, nil
}
