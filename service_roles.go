package managehub

import (
	"context"
)

// ============================================================================
// ROLE MANAGEMENT
// ============================================================================

// SetRole assigns a role to a user, overwriting any previous one. The caller
// must hold admin authority, the system must be initialized and not paused,
// and the user must not be blacklisted. When the policy requires membership
// proof for Member or Admin, the external balance check runs before the
// write.
//
// Example:
//
//	err := service.SetRole(ctx, adminAccount, userAccount, managehub.RoleMember)
func (s *Service) SetRole(ctx context.Context, caller, user string, role Role) error {
	return s.mutate(ctx, "set_role", func(ctx context.Context, tx *txState) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		if err := requireNotPaused(ctx, tx); err != nil {
			return err
		}
		if err := requireNotBlacklisted(ctx, tx, user); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := s.validateRoleAssignment(ctx, tx, user, role); err != nil {
			return err
		}

		previous, _, err := tx.Role(ctx, user)
		if err != nil {
			return err
		}
		if err := tx.SetRole(ctx, user, role); err != nil {
			return err
		}
		return tx.note(ctx, "set_role", caller, user, role.String(), previous.String())
	})
}

// GetRole returns the stored role, or Guest when the user was never
// assigned one.
func (s *Service) GetRole(ctx context.Context, user string) (Role, error) {
	role, _, err := s.store.Role(ctx, user)
	if err != nil {
		return RoleGuest, err
	}
	return role, nil
}

// RemoveRole resets a user back to Guest. The stored single admin cannot be
// stripped, and an admin cannot demote itself.
func (s *Service) RemoveRole(ctx context.Context, caller, user string) error {
	return s.mutate(ctx, "remove_role", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}

		admin, found, err := tx.Admin(ctx)
		if err != nil {
			return err
		}
		if found && user == admin {
			return NewError(ErrRoleHierarchyViolation, "cannot remove the stored admin").WithSubject(user)
		}

		previous, _, err := tx.Role(ctx, user)
		if err != nil {
			return err
		}
		if caller == user && previous == RoleAdmin {
			return NewError(ErrRoleHierarchyViolation, "admin cannot demote itself").WithActor(caller)
		}

		if err := tx.SetRole(ctx, user, RoleGuest); err != nil {
			return err
		}
		return tx.note(ctx, "remove_role", caller, user, RoleGuest.String(), previous.String())
	})
}

// validateRoleAssignment enforces the membership policy on the assignment
// path: Member and Admin need a sufficient external balance when the policy
// requires it, and a missing contract is an error here (unlike the check
// path, which treats it as pass).
func (s *Service) validateRoleAssignment(ctx context.Context, store Store, user string, role Role) error {
	cfg, _, err := store.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.RequireMembershipForRoles || role < RoleMember {
		return nil
	}
	if cfg.MembershipContract == "" {
		return NewError(ErrMembershipContractNotSet, "policy requires membership proof")
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

func (s *Service) lookupMembership(ctx context.Context, contract, user string) (MembershipInfo, error) {
	if s.membership == nil {
		return MembershipInfo{}, NewError(ErrMembershipCallFailed, "no membership source configured")
	}
	balance, err := s.membership.BalanceOf(ctx, contract, user)
	if err != nil {
		return MembershipInfo{}, NewError(ErrMembershipCallFailed, err.Error()).WithSubject(user)
	}
	return MembershipInfo{Account: user, Balance: balance, HasMembership: balance > 0}, nil
}

// ============================================================================
// BLACKLIST
// ============================================================================

// BlacklistUser marks a user as blacklisted. Blacklisted users fail every
// access check and cannot be assigned roles.
func (s *Service) BlacklistUser(ctx context.Context, caller, user string) error {
	return s.mutate(ctx, "blacklist_user", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetBlacklisted(ctx, user, true); err != nil {
			return err
		}
		return tx.note(ctx, "blacklist_user", caller, user, "blacklisted", "")
	})
}

// UnblacklistUser clears a user's blacklist mark.
func (s *Service) UnblacklistUser(ctx context.Context, caller, user string) error {
	return s.mutate(ctx, "unblacklist_user", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetBlacklisted(ctx, user, false); err != nil {
			return err
		}
		return tx.note(ctx, "unblacklist_user", caller, user, "cleared", "blacklisted")
	})
}

// IsBlacklisted reports whether a user is blacklisted.
func (s *Service) IsBlacklisted(ctx context.Context, user string) (bool, error) {
	return s.store.Blacklisted(ctx, user)
}

// ============================================================================
// TIERS
// ============================================================================

// SetUserTier stores a user's subscription tier.
func (s *Service) SetUserTier(ctx context.Context, caller, user string, tier TierLevel) error {
	return s.mutate(ctx, "set_user_tier", func(ctx context.Context, tx *txState) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		previous, _, err := tx.Tier(ctx, user)
		if err != nil {
			return err
		}
		if err := tx.SetTier(ctx, user, tier); err != nil {
			return err
		}
		return tx.note(ctx, "set_user_tier", caller, user, tier.String(), previous.String())
	})
}

// GetUserTier returns the stored tier, or Free when never set.
func (s *Service) GetUserTier(ctx context.Context, user string) (TierLevel, error) {
	tier, _, err := s.store.Tier(ctx, user)
	if err != nil {
		return TierFree, err
	}
	return tier, nil
}

// SetRequiredTierForRole sets the minimum tier a user must hold to pass
// tier validation for a role.
func (s *Service) SetRequiredTierForRole(ctx context.Context, caller string, role Role, tier TierLevel) error {
	return s.mutate(ctx, "set_required_tier", func(ctx context.Context, tx *txState) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetRequiredTier(ctx, role, tier); err != nil {
			return err
		}
		return tx.note(ctx, "set_required_tier", caller, role.String(), tier.String(), "")
	})
}

// GetRequiredTierForRole returns the minimum tier configured for a role, or
// Free when none is set.
func (s *Service) GetRequiredTierForRole(ctx context.Context, role Role) (TierLevel, error) {
	tier, _, err := s.store.RequiredTier(ctx, role)
	if err != nil {
		return TierFree, err
	}
	return tier, nil
}
