package managehub

import (
	"context"
	"strconv"
)

// ============================================================================
// PROPOSAL ENGINE
// ============================================================================

// CreateProposal opens a governance vote on an action. The proposer must
// hold admin authority and a committee must be configured. The approval
// threshold is snapshotted from the committee at creation, the proposer
// auto-approves, and when the action carries no time-lock and the snapshot
// threshold is already met (threshold 1) execution runs within the same
// call. Returns the new proposal id.
//
// Example:
//
//	id, err := service.CreateProposal(ctx, admin, managehub.PauseAction())
func (s *Service) CreateProposal(ctx context.Context, proposer string, action ProposalAction) (uint64, error) {
	var id uint64
	err := s.mutate(ctx, "create_proposal", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, proposer); err != nil {
			return err
		}
		ms, err := tx.MultiSigConfig(ctx)
		if err != nil {
			return err
		}
		if ms == nil {
			return ErrMultiSigNotEnabled
		}

		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.PendingCount >= ms.MaxPendingProposals {
			return NewError(ErrMaxProposalsReached, "pending proposal limit reached").WithActor(proposer)
		}

		id, err = tx.Counter(ctx)
		if err != nil {
			return err
		}

		pt := action.Classify()
		var timeLockUntil uint64
		if pt.RequiresTimeLock() {
			timeLockUntil = tx.now + ms.TimeLockDuration
		}

		proposal := PendingProposal{
			ID:                 id,
			Proposer:           proposer,
			Action:             action,
			Type:               pt,
			Approvals:          []string{proposer},
			CreatedAt:          tx.now,
			Expiry:             tx.now + ms.ProposalExpiryDuration,
			TimeLockUntil:      timeLockUntil,
			RequiredSignatures: ms.RequiredFor(pt),
		}

		if err := tx.SetProposal(ctx, proposal); err != nil {
			return err
		}
		if err := tx.SetCounter(ctx, id+1); err != nil {
			return err
		}
		if err := tx.AddPending(ctx, id); err != nil {
			return err
		}

		stats.TotalCreated++
		stats.PendingCount++
		if err := tx.SetStats(ctx, stats); err != nil {
			return err
		}

		if err := tx.note(ctx, "create_proposal", proposer, formatProposalID(id), pt.String(), ""); err != nil {
			return err
		}

		if timeLockUntil == 0 && uint32(len(proposal.Approvals)) >= proposal.RequiredSignatures {
			return s.executeLocked(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ApproveProposal records an approval. Guards run in order: admin authority,
// existence, not executed, not expired, no prior vote by this approver in
// either direction. An expired proposal is torn down lazily here; the
// teardown commits even though the call reports the expiry. When the vote
// crosses the snapshot threshold and any time-lock has passed, execution
// runs as part of this call.
func (s *Service) ApproveProposal(ctx context.Context, approver string, id uint64) error {
	var outcome error
	err := s.mutate(ctx, "approve_proposal", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, approver); err != nil {
			return err
		}
		proposal, err := tx.Proposal(ctx, id)
		if err != nil {
			return err
		}
		if proposal == nil {
			return NewError(ErrProposalNotFound, "").WithProposal(id)
		}
		if proposal.Executed {
			return NewError(ErrProposalExecuted, "").WithProposal(id)
		}
		if proposal.Expired(tx.now) {
			if err := teardownExpired(ctx, tx, id); err != nil {
				return err
			}
			outcome = NewError(ErrProposalExpired, "").WithProposal(id)
			return nil
		}
		if proposal.HasApproved(approver) {
			return NewError(ErrAlreadyApproved, "").WithActor(approver).WithProposal(id)
		}
		if proposal.HasRejected(approver) {
			return NewError(ErrAlreadyRejected, "").WithActor(approver).WithProposal(id)
		}

		proposal.Approvals = append(proposal.Approvals, approver)
		if err := tx.SetProposal(ctx, *proposal); err != nil {
			return err
		}
		if err := tx.note(ctx, "approve_proposal", approver, formatProposalID(id), "approve", ""); err != nil {
			return err
		}

		if uint32(len(proposal.Approvals)) >= proposal.RequiredSignatures && proposal.TimeLockPassed(tx.now) {
			return s.executeLocked(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}

// RejectProposal records a rejection under the same guards as approval.
// When the rejection count strictly exceeds max(1, n/3) the proposal is
// torn down immediately and the deciding voter gets ErrProposalRejected;
// the teardown commits alongside that error.
func (s *Service) RejectProposal(ctx context.Context, rejecter string, id uint64) error {
	var outcome error
	err := s.mutate(ctx, "reject_proposal", func(ctx context.Context, tx *txState) error {
		if err := requireAdmin(ctx, tx, rejecter); err != nil {
			return err
		}
		proposal, err := tx.Proposal(ctx, id)
		if err != nil {
			return err
		}
		if proposal == nil {
			return NewError(ErrProposalNotFound, "").WithProposal(id)
		}
		if proposal.Executed {
			return NewError(ErrProposalExecuted, "").WithProposal(id)
		}
		if proposal.Expired(tx.now) {
			if err := teardownExpired(ctx, tx, id); err != nil {
				return err
			}
			outcome = NewError(ErrProposalExpired, "").WithProposal(id)
			return nil
		}
		if proposal.HasRejected(rejecter) {
			return NewError(ErrAlreadyRejected, "").WithActor(rejecter).WithProposal(id)
		}
		if proposal.HasApproved(rejecter) {
			return NewError(ErrAlreadyApproved, "").WithActor(rejecter).WithProposal(id)
		}

		proposal.Rejections = append(proposal.Rejections, rejecter)

		ms, err := tx.MultiSigConfig(ctx)
		if err != nil {
			return err
		}
		if ms == nil {
			return ErrMultiSigNotEnabled
		}

		if uint32(len(proposal.Rejections)) > ms.RejectionThreshold() {
			if err := teardownProposal(ctx, tx, id); err != nil {
				return err
			}
			stats, err := tx.Stats(ctx)
			if err != nil {
				return err
			}
			stats.TotalRejected++
			stats.PendingCount = saturatingDec(stats.PendingCount)
			if err := tx.SetStats(ctx, stats); err != nil {
				return err
			}
			if err := tx.note(ctx, "reject_proposal", rejecter, formatProposalID(id), "rejected", ""); err != nil {
				return err
			}
			outcome = NewError(ErrProposalRejected, "rejection quorum reached").WithActor(rejecter).WithProposal(id)
			return nil
		}

		if err := tx.SetProposal(ctx, *proposal); err != nil {
			return err
		}
		return tx.note(ctx, "reject_proposal", rejecter, formatProposalID(id), "reject", "")
	})
	if err != nil {
		return err
	}
	return outcome
}

// CancelProposal withdraws a proposal. Only the original proposer may
// cancel, and only before execution. No rejection is counted.
func (s *Service) CancelProposal(ctx context.Context, proposer string, id uint64) error {
	return s.mutate(ctx, "cancel_proposal", func(ctx context.Context, tx *txState) error {
		proposal, err := tx.Proposal(ctx, id)
		if err != nil {
			return err
		}
		if proposal == nil {
			return NewError(ErrProposalNotFound, "").WithProposal(id)
		}
		if proposal.Proposer != proposer {
			return NewError(ErrUnauthorized, "only the proposer can cancel").WithActor(proposer).WithProposal(id)
		}
		if proposal.Executed {
			return NewError(ErrProposalExecuted, "").WithProposal(id)
		}
		if err := teardownProposal(ctx, tx, id); err != nil {
			return err
		}
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		stats.PendingCount = saturatingDec(stats.PendingCount)
		if err := tx.SetStats(ctx, stats); err != nil {
			return err
		}
		return tx.note(ctx, "cancel_proposal", proposer, formatProposalID(id), "cancelled", "")
	})
}

// ExecuteProposal explicitly executes a proposal that already has enough
// approvals, typically one whose time-lock has since passed. An expired
// proposal is torn down and the expiry reported; the teardown commits.
func (s *Service) ExecuteProposal(ctx context.Context, id uint64) error {
	var outcome error
	err := s.mutate(ctx, "execute_proposal", func(ctx context.Context, tx *txState) error {
		proposal, err := tx.Proposal(ctx, id)
		if err != nil {
			return err
		}
		if proposal == nil {
			return NewError(ErrProposalNotFound, "").WithProposal(id)
		}
		if !proposal.Executed && proposal.Expired(tx.now) {
			if err := teardownExpired(ctx, tx, id); err != nil {
				return err
			}
			outcome = NewError(ErrProposalExpired, "").WithProposal(id)
			return nil
		}
		return s.executeLocked(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	return outcome
}

// executeLocked performs execution inside the caller's transaction:
// re-validates the guards, marks the proposal executed before dispatch and
// applies the action. Any dispatch failure propagates, rolling back the
// entire surrounding call.
func (s *Service) executeLocked(ctx context.Context, tx *txState, id uint64) error {
	proposal, err := tx.Proposal(ctx, id)
	if err != nil {
		return err
	}
	if proposal == nil {
		return NewError(ErrProposalNotFound, "").WithProposal(id)
	}
	if proposal.Executed {
		return NewError(ErrProposalExecuted, "").WithProposal(id)
	}
	if proposal.Expired(tx.now) {
		return NewError(ErrProposalExpired, "").WithProposal(id)
	}
	if !proposal.TimeLockPassed(tx.now) {
		return NewError(ErrTimeLockActive, "").WithProposal(id)
	}
	if uint32(len(proposal.Approvals)) < proposal.RequiredSignatures {
		return NewError(ErrInsufficientApprovals, "").WithProposal(id)
	}

	// Terminal, one-way: the flag flips before the action so re-entrant
	// reads within the dispatch see an executed proposal.
	proposal.Executed = true
	if err := tx.SetProposal(ctx, *proposal); err != nil {
		return err
	}

	if err := s.dispatchAction(ctx, tx, proposal); err != nil {
		return err
	}

	if err := tx.RemovePending(ctx, id); err != nil {
		return err
	}
	stats, err := tx.Stats(ctx)
	if err != nil {
		return err
	}
	stats.TotalExecuted++
	stats.PendingCount = saturatingDec(stats.PendingCount)
	if err := tx.SetStats(ctx, stats); err != nil {
		return err
	}
	return tx.note(ctx, "execute_proposal", proposal.Proposer, formatProposalID(id), proposal.Action.Kind.String(), "")
}

// dispatchAction is the single point applying a passed proposal's side
// effect. The switch is exhaustive over ActionKind; kinds the committee
// path cannot perform fall through to ErrInvalidProposalType.
func (s *Service) dispatchAction(ctx context.Context, tx *txState, proposal *PendingProposal) error {
	action := proposal.Action
	switch action.Kind {
	case ActionSetRole:
		// Policy may have changed since creation; re-validate.
		if err := s.validateRoleAssignment(ctx, tx, action.Account, action.Role); err != nil {
			return err
		}
		previous, _, err := tx.Role(ctx, action.Account)
		if err != nil {
			return err
		}
		if err := tx.SetRole(ctx, action.Account, action.Role); err != nil {
			return err
		}
		return tx.note(ctx, "set_role", proposal.Proposer, action.Account, action.Role.String(), previous.String())

	case ActionUpdateConfig:
		if action.Config == nil {
			return NewError(ErrInvalidProposalType, "missing config payload").WithProposal(proposal.ID)
		}
		if err := tx.SetConfig(ctx, *action.Config); err != nil {
			return err
		}
		return tx.note(ctx, "update_config", proposal.Proposer, "", "", "")

	case ActionUpdateMultiSigConfig:
		if action.MultiSig == nil {
			return NewError(ErrInvalidProposalType, "missing multisig payload").WithProposal(proposal.ID)
		}
		replacement := *action.MultiSig
		if err := replacement.Validate(); err != nil {
			return err
		}
		if err := tx.SetMultiSigConfig(ctx, replacement); err != nil {
			return err
		}
		return tx.note(ctx, "update_multisig_config", proposal.Proposer, "", "", "")

	case ActionPause:
		if err := tx.SetFlag(ctx, FlagPaused, true); err != nil {
			return err
		}
		return tx.note(ctx, "pause", proposal.Proposer, "", "paused", "")

	case ActionUnpause:
		if err := tx.SetFlag(ctx, FlagPaused, false); err != nil {
			return err
		}
		return tx.note(ctx, "unpause", proposal.Proposer, "", "unpaused", "")

	case ActionEmergencyPause:
		if err := tx.SetFlag(ctx, FlagPaused, true); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagEmergencyMode, true); err != nil {
			return err
		}
		return tx.note(ctx, "emergency_pause", proposal.Proposer, "", action.Reason, "")

	case ActionBatchBlacklist:
		for _, account := range action.Accounts {
			if err := tx.SetBlacklisted(ctx, account, true); err != nil {
				return err
			}
		}
		return tx.note(ctx, "batch_blacklist", proposal.Proposer, "", strconv.Itoa(len(action.Accounts)), "")

	case ActionAddAdmin:
		ms, err := tx.MultiSigConfig(ctx)
		if err != nil {
			return err
		}
		if ms == nil {
			return ErrMultiSigNotEnabled
		}
		if ms.Contains(action.Account) {
			return NewError(ErrDuplicateAdmin, "").WithSubject(action.Account)
		}
		ms.Admins = append(ms.Admins, action.Account)
		if err := tx.SetMultiSigConfig(ctx, *ms); err != nil {
			return err
		}
		if err := tx.SetRole(ctx, action.Account, RoleAdmin); err != nil {
			return err
		}
		return tx.note(ctx, "add_admin", proposal.Proposer, action.Account, RoleAdmin.String(), "")

	case ActionRemoveAdmin:
		ms, err := tx.MultiSigConfig(ctx)
		if err != nil {
			return err
		}
		if ms == nil {
			return ErrMultiSigNotEnabled
		}
		// Never shrink the committee below its ability to pass an
		// emergency action.
		if uint32(len(ms.Admins)) <= ms.EmergencyThreshold {
			return NewError(ErrCannotRemoveAdmin, "").WithSubject(action.Account)
		}
		kept := ms.Admins[:0:0]
		for _, admin := range ms.Admins {
			if admin != action.Account {
				kept = append(kept, admin)
			}
		}
		ms.Admins = kept
		if err := tx.SetMultiSigConfig(ctx, *ms); err != nil {
			return err
		}
		if err := tx.SetRole(ctx, action.Account, RoleGuest); err != nil {
			return err
		}
		return tx.note(ctx, "remove_admin", proposal.Proposer, action.Account, RoleGuest.String(), "")
	}

	// TransferAdmin, ScheduleUpgrade and EmergencyAdminTransfer classify
	// and collect votes like any other action, but the committee execution
	// path cannot perform them.
	return NewError(ErrInvalidProposalType, action.Kind.String()).WithProposal(proposal.ID)
}

// GetProposal returns a proposal by id. Torn-down ids report not found;
// executed proposals remain readable.
func (s *Service) GetProposal(ctx context.Context, id uint64) (*PendingProposal, error) {
	proposal, err := s.store.Proposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, NewError(ErrProposalNotFound, "").WithProposal(id)
	}
	return proposal, nil
}

// PendingProposals returns the ids of all live proposals.
func (s *Service) PendingProposals(ctx context.Context) ([]uint64, error) {
	return s.store.PendingIDs(ctx)
}

// GetProposalStats returns the running lifecycle counters.
func (s *Service) GetProposalStats(ctx context.Context) (ProposalStats, error) {
	return s.store.Stats(ctx)
}

// CleanupExpiredProposals walks the pending index and tears down every
// proposal past its expiry, returning how many were removed. Callable by
// anyone; expiry needs no privilege.
func (s *Service) CleanupExpiredProposals(ctx context.Context) (int, error) {
	var cleaned int
	err := s.mutate(ctx, "cleanup_expired_proposals", func(ctx context.Context, tx *txState) error {
		ids, err := tx.PendingIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			proposal, err := tx.Proposal(ctx, id)
			if err != nil {
				return err
			}
			if proposal == nil || proposal.Executed || !proposal.Expired(tx.now) {
				continue
			}
			if err := teardownExpired(ctx, tx, id); err != nil {
				return err
			}
			cleaned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleaned, nil
}

// IsMultiSigEnabled reports whether a committee is configured.
func (s *Service) IsMultiSigEnabled(ctx context.Context) (bool, error) {
	return multisigEnabled(ctx, s.store)
}

// MultiSigAdmins returns the committee member set, or nil without a
// committee.
func (s *Service) MultiSigAdmins(ctx context.Context) ([]string, error) {
	ms, err := s.store.MultiSigConfig(ctx)
	if err != nil || ms == nil {
		return nil, err
	}
	return ms.Admins, nil
}

// MultiSigThreshold returns the standard approval threshold.
func (s *Service) MultiSigThreshold(ctx context.Context) (uint32, error) {
	ms, err := s.store.MultiSigConfig(ctx)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return 0, ErrMultiSigNotEnabled
	}
	return ms.RequiredSignatures, nil
}

// GetMultiSigConfig returns the committee configuration, or nil without a
// committee.
func (s *Service) GetMultiSigConfig(ctx context.Context) (*MultiSigConfig, error) {
	return s.store.MultiSigConfig(ctx)
}

func teardownProposal(ctx context.Context, tx Store, id uint64) error {
	if err := tx.RemovePending(ctx, id); err != nil {
		return err
	}
	return tx.DeleteProposal(ctx, id)
}

func teardownExpired(ctx context.Context, tx *txState, id uint64) error {
	if err := teardownProposal(ctx, tx, id); err != nil {
		return err
	}
	stats, err := tx.Stats(ctx)
	if err != nil {
		return err
	}
	stats.TotalExpired++
	stats.PendingCount = saturatingDec(stats.PendingCount)
	if err := tx.SetStats(ctx, stats); err != nil {
		return err
	}
	return tx.note(ctx, "proposal_expired", "", formatProposalID(id), "expired", "")
}

func saturatingDec(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return n - 1
}

func formatProposalID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
