package managehub

import (
	"context"
)

// ============================================================================
// SINGLE-ADMIN LIFECYCLE
// ============================================================================

// Admin returns the stored single admin, if one exists. Committee-mode
// deployments have no single admin.
func (s *Service) Admin(ctx context.Context) (string, bool, error) {
	return s.store.Admin(ctx)
}

// ProposeAdminTransfer records a two-step handover of single-admin control.
// Only the current admin may propose, the target must differ, and committee
// mode refuses the operation entirely. The proposal stays acceptable for 24
// hours.
func (s *Service) ProposeAdminTransfer(ctx context.Context, currentAdmin, newAdmin string) error {
	return s.mutate(ctx, "propose_admin_transfer", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, currentAdmin); err != nil {
			return err
		}
		if currentAdmin == newAdmin {
			return NewError(ErrInvalidAccount, "cannot transfer to self").WithActor(currentAdmin)
		}
		enabled, err := multisigEnabled(ctx, tx)
		if err != nil {
			return err
		}
		if enabled {
			return NewError(ErrInvalidAccount, "admin transfer is committee-governed")
		}
		transfer := PendingAdminTransfer{
			ProposedAdmin: newAdmin,
			Proposer:      currentAdmin,
			Expiry:        tx.now + adminTransferLifetime,
		}
		if err := tx.SetPendingTransfer(ctx, transfer); err != nil {
			return err
		}
		return tx.note(ctx, "propose_admin_transfer", currentAdmin, newAdmin, "", "")
	})
}

// AcceptAdminTransfer completes a pending handover. Only the proposed target
// may accept, and only before expiry. The new admin is promoted and the old
// admin demoted to Guest in the same transaction.
func (s *Service) AcceptAdminTransfer(ctx context.Context, newAdmin string) error {
	return s.mutate(ctx, "accept_admin_transfer", func(ctx context.Context, tx *txState) error {
		transfer, err := tx.PendingTransfer(ctx)
		if err != nil {
			return err
		}
		if transfer == nil {
			return NewError(ErrInvalidAccount, "no pending admin transfer")
		}
		if transfer.ProposedAdmin != newAdmin {
			return NewError(ErrUnauthorized, "not the proposed admin").WithActor(newAdmin)
		}
		if tx.now > transfer.Expiry {
			return NewError(ErrInvalidAccount, "admin transfer expired")
		}
		oldAdmin, found, err := tx.Admin(ctx)
		if err != nil {
			return err
		}
		if !found {
			return NewError(ErrAdminRequired, "no stored admin to transfer from")
		}
		if err := tx.SetAdmin(ctx, newAdmin); err != nil {
			return err
		}
		if err := tx.SetRole(ctx, newAdmin, RoleAdmin); err != nil {
			return err
		}
		if err := tx.SetRole(ctx, oldAdmin, RoleGuest); err != nil {
			return err
		}
		if err := tx.DeletePendingTransfer(ctx); err != nil {
			return err
		}
		return tx.note(ctx, "accept_admin_transfer", newAdmin, oldAdmin, RoleAdmin.String(), "")
	})
}

// CancelAdminTransfer discards a pending handover. Only the original
// proposer may cancel.
func (s *Service) CancelAdminTransfer(ctx context.Context, currentAdmin string) error {
	return s.mutate(ctx, "cancel_admin_transfer", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, currentAdmin); err != nil {
			return err
		}
		transfer, err := tx.PendingTransfer(ctx)
		if err != nil {
			return err
		}
		if transfer == nil {
			return NewError(ErrInvalidAccount, "no pending admin transfer")
		}
		if transfer.Proposer != currentAdmin {
			return NewError(ErrUnauthorized, "only the proposer can cancel").WithActor(currentAdmin)
		}
		if err := tx.DeletePendingTransfer(ctx); err != nil {
			return err
		}
		return tx.note(ctx, "cancel_admin_transfer", currentAdmin, transfer.ProposedAdmin, "", "")
	})
}

// PendingAdminTransferRecord returns the pending handover, if any.
func (s *Service) PendingAdminTransferRecord(ctx context.Context) (*PendingAdminTransfer, error) {
	return s.store.PendingTransfer(ctx)
}

// ============================================================================
// PAUSE AND CONFIGURATION
// ============================================================================

// IsPaused reports whether the system is paused.
func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	return s.store.Flag(ctx, FlagPaused)
}

// Pause halts state-changing operations. Direct pausing is single-admin
// only; a committee must route it through a proposal.
func (s *Service) Pause(ctx context.Context, caller string) error {
	return s.mutate(ctx, "pause", func(ctx context.Context, tx *txState) error {
		if err := refuseInCommitteeMode(ctx, tx); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagPaused, true); err != nil {
			return err
		}
		return tx.note(ctx, "pause", caller, "", "paused", "")
	})
}

// Unpause resumes operations. Direct unpausing is single-admin only.
func (s *Service) Unpause(ctx context.Context, caller string) error {
	return s.mutate(ctx, "unpause", func(ctx context.Context, tx *txState) error {
		if err := refuseInCommitteeMode(ctx, tx); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagPaused, false); err != nil {
			return err
		}
		return tx.note(ctx, "unpause", caller, "", "unpaused", "")
	})
}

// GetConfig returns the access-control policy, or the zero policy when
// never set.
func (s *Service) GetConfig(ctx context.Context) (AccessControlConfig, error) {
	cfg, _, err := s.store.Config(ctx)
	return cfg, err
}

// UpdateConfig replaces the access-control policy. Direct updates are
// single-admin only; a committee must route it through a proposal.
func (s *Service) UpdateConfig(ctx context.Context, caller string, cfg AccessControlConfig) error {
	return s.mutate(ctx, "update_config", func(ctx context.Context, tx *txState) error {
		if err := refuseInCommitteeMode(ctx, tx); err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := tx.SetConfig(ctx, cfg); err != nil {
			return err
		}
		return tx.note(ctx, "update_config", caller, "", "", "")
	})
}

// UpdateMultiSigConfig validates a replacement committee configuration and
// then refuses: the mutation itself only ever happens through an
// UpdateMultiSigConfig proposal. Validation errors surface first so callers
// can pre-check a candidate configuration.
func (s *Service) UpdateMultiSigConfig(ctx context.Context, caller string, cfg MultiSigConfig) error {
	if err := requireAdmin(ctx, s.store, caller); err != nil {
		return err
	}
	enabled, err := multisigEnabled(ctx, s.store)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrMultiSigNotEnabled
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return NewError(ErrAdminRequired, "multisig config changes require a proposal").WithActor(caller)
}

// ============================================================================
// EMERGENCY MODE
// ============================================================================

// IsEmergencyMode reports whether an emergency pause set the emergency-mode
// flag.
func (s *Service) IsEmergencyMode(ctx context.Context) (bool, error) {
	return s.store.Flag(ctx, FlagEmergencyMode)
}

// DeactivateEmergencyMode clears the emergency-mode flag. Only available in
// single-admin mode; a committee cannot clear it through this path.
func (s *Service) DeactivateEmergencyMode(ctx context.Context, caller string) error {
	return s.mutate(ctx, "deactivate_emergency_mode", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if err := refuseInCommitteeMode(ctx, tx); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagEmergencyMode, false); err != nil {
			return err
		}
		return tx.note(ctx, "deactivate_emergency_mode", caller, "", "cleared", "")
	})
}

func multisigEnabled(ctx context.Context, store Store) (bool, error) {
	ms, err := store.MultiSigConfig(ctx)
	if err != nil {
		return false, err
	}
	return ms != nil, nil
}

// refuseInCommitteeMode blocks the direct mutation paths once a committee
// exists; those operations must route through proposals.
func refuseInCommitteeMode(ctx context.Context, store Store) error {
	enabled, err := multisigEnabled(ctx, store)
	if err != nil {
		return err
	}
	if enabled {
		return NewError(ErrAdminRequired, "operation is committee-governed")
	}
	return nil
}
