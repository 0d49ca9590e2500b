package managehub

import "context"

// FlagKey names a persisted boolean switch.
type FlagKey string

const (
	FlagInitialized   FlagKey = "initialized"
	FlagPaused        FlagKey = "paused"
	FlagEmergencyMode FlagKey = "emergency_mode"
)

// AccountStore holds the per-account records: role, blacklist flag, cached
// tier and the access-attempt counter. Absent records read as the documented
// defaults through the (value, found) pattern.
type AccountStore interface {
	Role(ctx context.Context, account string) (Role, bool, error)
	SetRole(ctx context.Context, account string, role Role) error

	Blacklisted(ctx context.Context, account string) (bool, error)
	SetBlacklisted(ctx context.Context, account string, flag bool) error

	Tier(ctx context.Context, account string) (TierLevel, bool, error)
	SetTier(ctx context.Context, account string, tier TierLevel) error

	AccessAttempts(ctx context.Context, account string) (uint64, error)
	SetAccessAttempts(ctx context.Context, account string, count uint64) error
}

// GovernanceStore holds the deployment singletons: admin identity, policy
// config, committee config, per-role tier requirements, flags and the
// pending admin transfer.
type GovernanceStore interface {
	Admin(ctx context.Context) (string, bool, error)
	SetAdmin(ctx context.Context, account string) error

	Config(ctx context.Context) (AccessControlConfig, bool, error)
	SetConfig(ctx context.Context, cfg AccessControlConfig) error

	// MultiSigConfig returns nil when no committee is configured.
	MultiSigConfig(ctx context.Context) (*MultiSigConfig, error)
	SetMultiSigConfig(ctx context.Context, cfg MultiSigConfig) error

	RequiredTier(ctx context.Context, role Role) (TierLevel, bool, error)
	SetRequiredTier(ctx context.Context, role Role, tier TierLevel) error

	Flag(ctx context.Context, key FlagKey) (bool, error)
	SetFlag(ctx context.Context, key FlagKey, value bool) error

	// PendingTransfer returns nil when no transfer is pending.
	PendingTransfer(ctx context.Context) (*PendingAdminTransfer, error)
	SetPendingTransfer(ctx context.Context, t PendingAdminTransfer) error
	DeletePendingTransfer(ctx context.Context) error
}

// ProposalStore holds per-id proposals, the unordered pending index, the
// monotonically increasing id counter and the lifecycle statistics.
type ProposalStore interface {
	// Proposal returns nil when the id is unknown or torn down.
	Proposal(ctx context.Context, id uint64) (*PendingProposal, error)
	SetProposal(ctx context.Context, p PendingProposal) error
	DeleteProposal(ctx context.Context, id uint64) error

	PendingIDs(ctx context.Context) ([]uint64, error)
	AddPending(ctx context.Context, id uint64) error
	RemovePending(ctx context.Context, id uint64) error

	Counter(ctx context.Context) (uint64, error)
	SetCounter(ctx context.Context, n uint64) error

	Stats(ctx context.Context) (ProposalStats, error)
	SetStats(ctx context.Context, s ProposalStats) error
}

// AuditStore persists the audit trail written alongside every state change.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditRecord) error
	AuditLog(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

// Store is the namespaced persistence surface behind the engine. Every
// public entry point runs inside exactly one Transaction, which must be
// atomic: on error no write from fn is observable.
type Store interface {
	AccountStore
	GovernanceStore
	ProposalStore
	AuditStore

	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// MembershipSource answers external membership-balance lookups. The call is
// synchronous; failure fails the whole authorization check, never a partial
// state.
type MembershipSource interface {
	BalanceOf(ctx context.Context, contract, account string) (int64, error)
}

// MembershipSourceFunc adapts a function to MembershipSource.
type MembershipSourceFunc func(ctx context.Context, contract, account string) (int64, error)

// BalanceOf implements MembershipSource.
func (f MembershipSourceFunc) BalanceOf(ctx context.Context, contract, account string) (int64, error) {
	return f(ctx, contract, account)
}

// Notifier receives the structured notification emitted after every
// committed state change. It is a one-way side channel; the engine never
// reads it back.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}
