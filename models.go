package managehub

import "strings"

// Role is a position in the total-order access hierarchy Guest < Member < Admin.
// A role grants every capability of the roles below it.
type Role uint8

const (
	RoleGuest Role = iota
	RoleMember
	RoleAdmin
)

// HasAccess reports whether this role satisfies the required role.
func (r Role) HasAccess(required Role) bool {
	return r >= required
}

// String returns the canonical name of the role.
func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "Guest"
	case RoleMember:
		return "Member"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch {
	case strings.EqualFold(s, "guest"):
		return RoleGuest, true
	case strings.EqualFold(s, "member"):
		return RoleMember, true
	case strings.EqualFold(s, "admin"):
		return RoleAdmin, true
	}
	return RoleGuest, false
}

// TierLevel is the subscription tier axis, independent of Role.
// A caller may need both a role and a tier to pass a combined check.
type TierLevel uint8

const (
	TierFree TierLevel = iota
	TierBasic
	TierPro
	TierEnterprise
)

// HasTierAccess reports whether this tier satisfies the required tier.
func (t TierLevel) HasTierAccess(required TierLevel) bool {
	return t >= required
}

// String returns the canonical name of the tier.
func (t TierLevel) String() string {
	switch t {
	case TierFree:
		return "Free"
	case TierBasic:
		return "Basic"
	case TierPro:
		return "Pro"
	case TierEnterprise:
		return "Enterprise"
	}
	return "Unknown"
}

// AccessControlConfig holds the policy toggles evaluated on role assignment
// and access checks.
type AccessControlConfig struct {
	// MembershipContract identifies the external membership-balance source.
	// Empty means no contract is configured.
	MembershipContract string `json:"membership_contract" toml:"membership_contract"`

	// RequireMembershipForRoles gates Member/Admin assignment (and checks)
	// on an external balance lookup.
	RequireMembershipForRoles bool `json:"require_membership_for_roles" toml:"require_membership_for_roles"`

	// MinTokenBalance is the balance floor for the membership check.
	MinTokenBalance int64 `json:"min_token_balance" toml:"min_token_balance"`

	// SubscriptionContract identifies the external tier source, if any.
	SubscriptionContract string `json:"subscription_contract" toml:"subscription_contract"`

	// EnforceTierRestrictions enables tier validation for role holders.
	EnforceTierRestrictions bool `json:"enforce_tier_restrictions" toml:"enforce_tier_restrictions"`
}

// MembershipInfo is the result of an external membership-balance lookup.
type MembershipInfo struct {
	Account       string
	Balance       int64
	HasMembership bool
}

// SubscriptionStatus reports a user's cached tier. Activity and expiry come
// from the subscription system when one is wired; until then the cached tier
// is treated as active.
type SubscriptionStatus struct {
	Tier      TierLevel `json:"tier"`
	Active    bool      `json:"active"`
	ExpiresAt uint64    `json:"expires_at"`
}

// Default governance limits applied when a committee is initialized without
// explicit overrides.
const (
	DefaultTimeLockDuration       uint64 = 86400 // 24 hours
	DefaultMaxPendingProposals    uint32 = 50
	DefaultProposalExpiryDuration uint64 = 604800 // 7 days

	// adminTransferLifetime bounds how long a proposed single-admin transfer
	// stays acceptable.
	adminTransferLifetime uint64 = 86400
)

// MultiSigConfig is the committee definition: the admin set, the three
// approval thresholds, and the operational limits. It is only ever stored
// after Validate passes, so partial committee state is never observable.
type MultiSigConfig struct {
	Admins                 []string `json:"admins"`
	RequiredSignatures     uint32   `json:"required_signatures"`
	CriticalThreshold      uint32   `json:"critical_threshold"`
	EmergencyThreshold     uint32   `json:"emergency_threshold"`
	TimeLockDuration       uint64   `json:"time_lock_duration"`
	MaxPendingProposals    uint32   `json:"max_pending_proposals"`
	ProposalExpiryDuration uint64   `json:"proposal_expiry_duration"`
}

// Validate checks the whole structure as a unit:
// 0 < required <= critical <= emergency <= len(admins), all durations and
// limits strictly positive, and no duplicate admins.
func (c *MultiSigConfig) Validate() error {
	if len(c.Admins) == 0 {
		return NewError(ErrInvalidMultiSigConfig, "empty admin set")
	}
	seen := make(map[string]struct{}, len(c.Admins))
	for _, a := range c.Admins {
		if _, dup := seen[a]; dup {
			return NewError(ErrDuplicateAdmin, "duplicate committee member").WithSubject(a)
		}
		seen[a] = struct{}{}
	}
	if c.RequiredSignatures == 0 {
		return NewError(ErrThresholdTooLow, "required signatures must be positive")
	}
	if c.RequiredSignatures > uint32(len(c.Admins)) {
		return NewError(ErrThresholdTooHigh, "required signatures exceed admin count")
	}
	if c.CriticalThreshold < c.RequiredSignatures {
		return NewError(ErrInvalidMultiSigConfig, "critical threshold below standard threshold")
	}
	if c.EmergencyThreshold < c.CriticalThreshold {
		return NewError(ErrInvalidMultiSigConfig, "emergency threshold below critical threshold")
	}
	if c.EmergencyThreshold > uint32(len(c.Admins)) {
		return NewError(ErrThresholdTooHigh, "emergency threshold exceeds admin count")
	}
	if c.TimeLockDuration == 0 || c.MaxPendingProposals == 0 || c.ProposalExpiryDuration == 0 {
		return NewError(ErrInvalidMultiSigConfig, "durations and limits must be positive")
	}
	return nil
}

// Contains reports committee membership.
func (c *MultiSigConfig) Contains(account string) bool {
	for _, a := range c.Admins {
		if a == account {
			return true
		}
	}
	return false
}

// RequiredFor returns the approval threshold for a proposal type.
func (c *MultiSigConfig) RequiredFor(pt ProposalType) uint32 {
	switch pt {
	case ProposalCritical, ProposalTimeLocked:
		return c.CriticalThreshold
	case ProposalEmergency:
		return c.EmergencyThreshold
	}
	return c.RequiredSignatures
}

// RejectionThreshold is the vote count a proposal's rejection set must
// strictly exceed to be torn down: max(1, len(admins)/3), integer division.
// Carried over as observed governance policy; for a 2-admin committee this
// means a second rejection kills a proposal.
func (c *MultiSigConfig) RejectionThreshold() uint32 {
	t := uint32(len(c.Admins)) / 3
	if t < 1 {
		t = 1
	}
	return t
}

// ProposalType is the derived risk classification of a proposal, selecting
// its approval threshold and whether a time-lock applies.
type ProposalType uint8

const (
	ProposalStandard ProposalType = iota
	ProposalCritical
	ProposalEmergency
	ProposalTimeLocked
)

// RequiresTimeLock reports whether proposals of this type mandatorily carry
// a time-lock deadline.
func (pt ProposalType) RequiresTimeLock() bool {
	return pt == ProposalCritical || pt == ProposalTimeLocked
}

func (pt ProposalType) String() string {
	switch pt {
	case ProposalStandard:
		return "Standard"
	case ProposalCritical:
		return "Critical"
	case ProposalEmergency:
		return "Emergency"
	case ProposalTimeLocked:
		return "TimeLocked"
	}
	return "Unknown"
}

// ActionKind discriminates the closed set of proposal actions. Adding a kind
// means adding a constructor, a Classify arm, and an arm in the execution
// dispatch switch, which is the single change point.
type ActionKind uint8

const (
	ActionSetRole ActionKind = iota
	ActionUpdateConfig
	ActionAddAdmin
	ActionRemoveAdmin
	ActionPause
	ActionUnpause
	ActionTransferAdmin
	ActionUpdateMultiSigConfig
	ActionEmergencyPause
	ActionBatchBlacklist
	ActionScheduleUpgrade
	ActionEmergencyAdminTransfer
)

func (k ActionKind) String() string {
	switch k {
	case ActionSetRole:
		return "SetRole"
	case ActionUpdateConfig:
		return "UpdateConfig"
	case ActionAddAdmin:
		return "AddAdmin"
	case ActionRemoveAdmin:
		return "RemoveAdmin"
	case ActionPause:
		return "Pause"
	case ActionUnpause:
		return "Unpause"
	case ActionTransferAdmin:
		return "TransferAdmin"
	case ActionUpdateMultiSigConfig:
		return "UpdateMultiSigConfig"
	case ActionEmergencyPause:
		return "EmergencyPause"
	case ActionBatchBlacklist:
		return "BatchBlacklist"
	case ActionScheduleUpgrade:
		return "ScheduleUpgrade"
	case ActionEmergencyAdminTransfer:
		return "EmergencyAdminTransfer"
	}
	return "Unknown"
}

// ProposalAction is the tagged payload of a proposal. Only the fields for
// the given Kind are meaningful; use the constructors.
type ProposalAction struct {
	Kind ActionKind `json:"kind"`

	// Account is the subject for SetRole, AddAdmin, RemoveAdmin,
	// TransferAdmin, ScheduleUpgrade and EmergencyAdminTransfer.
	Account string `json:"account,omitempty"`

	// Role is the target role for SetRole.
	Role Role `json:"role,omitempty"`

	// Config carries the replacement policy for UpdateConfig.
	Config *AccessControlConfig `json:"config,omitempty"`

	// MultiSig carries the replacement committee for UpdateMultiSigConfig.
	MultiSig *MultiSigConfig `json:"multisig,omitempty"`

	// Reason is the operator-supplied cause for EmergencyPause.
	Reason string `json:"reason,omitempty"`

	// Accounts lists the targets of BatchBlacklist.
	Accounts []string `json:"accounts,omitempty"`

	// ExecuteAt is the scheduled time for ScheduleUpgrade.
	ExecuteAt uint64 `json:"execute_at,omitempty"`
}

// SetRoleAction proposes assigning role to user.
func SetRoleAction(user string, role Role) ProposalAction {
	return ProposalAction{Kind: ActionSetRole, Account: user, Role: role}
}

// UpdateConfigAction proposes replacing the access-control policy.
func UpdateConfigAction(cfg AccessControlConfig) ProposalAction {
	return ProposalAction{Kind: ActionUpdateConfig, Config: &cfg}
}

// AddAdminAction proposes adding a committee member.
func AddAdminAction(admin string) ProposalAction {
	return ProposalAction{Kind: ActionAddAdmin, Account: admin}
}

// RemoveAdminAction proposes removing a committee member.
func RemoveAdminAction(admin string) ProposalAction {
	return ProposalAction{Kind: ActionRemoveAdmin, Account: admin}
}

// PauseAction proposes pausing the system.
func PauseAction() ProposalAction {
	return ProposalAction{Kind: ActionPause}
}

// UnpauseAction proposes resuming the system.
func UnpauseAction() ProposalAction {
	return ProposalAction{Kind: ActionUnpause}
}

// TransferAdminAction proposes handing single-admin control to another
// account. It classifies and collects votes like any critical action, but
// the committee execution path refuses it; use the two-step transfer in
// single-admin mode instead.
func TransferAdminAction(admin string) ProposalAction {
	return ProposalAction{Kind: ActionTransferAdmin, Account: admin}
}

// UpdateMultiSigConfigAction proposes replacing the committee configuration.
func UpdateMultiSigConfigAction(cfg MultiSigConfig) ProposalAction {
	return ProposalAction{Kind: ActionUpdateMultiSigConfig, MultiSig: &cfg}
}

// EmergencyPauseAction proposes an emergency pause with a recorded reason.
func EmergencyPauseAction(reason string) ProposalAction {
	return ProposalAction{Kind: ActionEmergencyPause, Reason: reason}
}

// BatchBlacklistAction proposes blacklisting every listed account.
func BatchBlacklistAction(accounts []string) ProposalAction {
	return ProposalAction{Kind: ActionBatchBlacklist, Accounts: accounts}
}

// ScheduleUpgradeAction proposes a time-locked upgrade handover.
func ScheduleUpgradeAction(target string, executeAt uint64) ProposalAction {
	return ProposalAction{Kind: ActionScheduleUpgrade, Account: target, ExecuteAt: executeAt}
}

// EmergencyAdminTransferAction proposes a forced admin transfer under the
// emergency threshold.
func EmergencyAdminTransferAction(admin string) ProposalAction {
	return ProposalAction{Kind: ActionEmergencyAdminTransfer, Account: admin}
}

// Classify maps the action to its risk tier.
func (a ProposalAction) Classify() ProposalType {
	switch a.Kind {
	case ActionSetRole, ActionUnpause:
		return ProposalStandard
	case ActionUpdateConfig, ActionAddAdmin, ActionRemoveAdmin, ActionPause,
		ActionTransferAdmin, ActionUpdateMultiSigConfig, ActionBatchBlacklist:
		return ProposalCritical
	case ActionEmergencyPause, ActionEmergencyAdminTransfer:
		return ProposalEmergency
	case ActionScheduleUpgrade:
		return ProposalTimeLocked
	}
	return ProposalCritical
}

// Reversible reports whether a later proposal can undo this action.
func (a ProposalAction) Reversible() bool {
	switch a.Kind {
	case ActionSetRole, ActionPause, ActionUnpause, ActionBatchBlacklist:
		return true
	}
	return false
}

// PendingProposal is one in-flight governance vote. The required signature
// count is snapshotted at creation so later committee changes cannot
// retroactively alter the vote.
type PendingProposal struct {
	ID                 uint64         `json:"id"`
	Proposer           string         `json:"proposer"`
	Action             ProposalAction `json:"action"`
	Type               ProposalType   `json:"type"`
	Approvals          []string       `json:"approvals"`
	Rejections         []string       `json:"rejections"`
	Executed           bool           `json:"executed"`
	CreatedAt          uint64         `json:"created_at"`
	Expiry             uint64         `json:"expiry"`
	TimeLockUntil      uint64         `json:"time_lock_until,omitempty"` // zero means no time-lock
	RequiredSignatures uint32         `json:"required_signatures"`
}

// HasApproved reports whether account already approved.
func (p *PendingProposal) HasApproved(account string) bool {
	for _, a := range p.Approvals {
		if a == account {
			return true
		}
	}
	return false
}

// HasRejected reports whether account already rejected.
func (p *PendingProposal) HasRejected(account string) bool {
	for _, a := range p.Rejections {
		if a == account {
			return true
		}
	}
	return false
}

// TimeLockPassed reports whether the time-lock deadline, if any, has passed
// at the given time.
func (p *PendingProposal) TimeLockPassed(now uint64) bool {
	return p.TimeLockUntil == 0 || now >= p.TimeLockUntil
}

// Expired reports whether the proposal's lifetime has elapsed.
func (p *PendingProposal) Expired(now uint64) bool {
	return now > p.Expiry
}

// ProposalStats are running lifecycle counters. The invariant
// PendingCount == TotalCreated - TotalExecuted - TotalRejected - TotalExpired
// holds after every operation; no proposal is counted in two terminal states.
type ProposalStats struct {
	TotalCreated  uint64 `json:"total_created"`
	TotalExecuted uint64 `json:"total_executed"`
	TotalRejected uint64 `json:"total_rejected"`
	TotalExpired  uint64 `json:"total_expired"`
	PendingCount  uint32 `json:"pending_count"`
}

// PendingAdminTransfer is the single-admin two-step handover record.
type PendingAdminTransfer struct {
	ProposedAdmin string `json:"proposed_admin"`
	Proposer      string `json:"proposer"`
	Expiry        uint64 `json:"expiry"`
}
