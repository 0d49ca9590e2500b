package managehub

import (
	"context"
	"time"
)

// Service is the access-control and governance engine. It owns no state of
// its own; everything lives behind the Store so the same engine runs against
// memory in tests and PostgreSQL in production.
//
// Error Handling:
// All operations report failures as sentinel errors, usually wrapped in
// *Error with the acting account and subject attached.
//
// Example error handling:
//
//	err := service.SetRole(ctx, caller, user, managehub.RoleMember)
//	if err != nil {
//	    if errors.Is(err, managehub.ErrAdminRequired) {
//	        // Caller lacks admin authority
//	    }
//	    if managehub.IsMembershipError(err) {
//	        // Membership policy rejected the assignment
//	    }
//	}
type Service struct {
	store      Store
	clock      Clock
	notifier   Notifier
	membership MembershipSource
	monitor    *operationMonitor
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the logical clock. Tests use a ManualClock to step
// through expiries and time-locks.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithNotifier registers a notification sink. Notifications fire only after
// the underlying transaction commits.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMembershipSource wires the external membership-balance lookup used by
// the membership policy.
func WithMembershipSource(m MembershipSource) Option {
	return func(s *Service) { s.membership = m }
}

// New creates a Service over a Store.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := managehub.New(managehub.NewDatabaseStore(db))
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		clock:   SystemClock{},
		monitor: newOperationMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the accumulated operation metrics.
func (s *Service) Metrics() OperationMetrics {
	return s.monitor.getMetrics()
}

// ResetMetrics clears the accumulated operation metrics.
func (s *Service) ResetMetrics() {
	s.monitor.reset()
}

// txState is the per-call view handed to operation bodies: the transactional
// store, the time snapshotted at entry, and the notifications queued for
// emission after commit.
type txState struct {
	Store
	now   uint64
	notes []Notification
}

// note queues a notification and writes its audit record inside the
// transaction.
func (t *txState) note(ctx context.Context, op, actor, subject, value, previous string) error {
	n := newNotification(op, actor, subject, value, previous, t.now)
	if id, ok := GetRequestID(ctx); ok {
		n.RequestID = id
	}
	t.notes = append(t.notes, n)
	return t.AppendAudit(ctx, n.auditRecord())
}

// mutate runs fn inside one store transaction and, on commit, emits the
// queued notifications. A failing fn rolls everything back, queued
// notifications included.
func (s *Service) mutate(ctx context.Context, op string, fn func(ctx context.Context, tx *txState) error) error {
	start := time.Now()
	var notes []Notification
	err := s.store.Transaction(ctx, func(ctx context.Context, tx Store) error {
		st := &txState{Store: tx, now: s.clock.Now()}
		if err := fn(ctx, st); err != nil {
			return err
		}
		notes = st.notes
		return nil
	})
	s.monitor.recordOperation(op, time.Since(start), err == nil)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		for _, n := range notes {
			s.notifier.Notify(n)
		}
	}
	return nil
}

// requireInitialized fails unless Initialize or InitializeMultiSig ran.
func requireInitialized(ctx context.Context, store Store) error {
	ok, err := store.Flag(ctx, FlagInitialized)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

// requireNotPaused fails while the pause flag is set.
func requireNotPaused(ctx context.Context, store Store) error {
	paused, err := store.Flag(ctx, FlagPaused)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

func requireNotBlacklisted(ctx context.Context, store Store, account string) error {
	listed, err := store.Blacklisted(ctx, account)
	if err != nil {
		return err
	}
	if listed {
		return NewError(ErrUnauthorized, "account is blacklisted").WithSubject(account)
	}
	return nil
}

// requireAdmin resolves admin authority for the current mode: committee
// membership when a committee is configured, the stored Admin role
// otherwise. Every privileged entry point funnels through here, which is
// what lets the rest of the engine work unchanged under either mode.
func requireAdmin(ctx context.Context, store Store, caller string) error {
	ms, err := store.MultiSigConfig(ctx)
	if err != nil {
		return err
	}
	if ms != nil {
		if !ms.Contains(caller) {
			return NewError(ErrAdminRequired, "caller is not a committee member").WithActor(caller)
		}
		return nil
	}
	role, _, err := store.Role(ctx, caller)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return NewError(ErrAdminRequired, "caller does not hold the Admin role").WithActor(caller)
	}
	return nil
}

// Initialize sets up single-admin mode: stores the admin, grants it the
// Admin role and applies the given policy (nil means defaults). It succeeds
// exactly once per deployment.
func (s *Service) Initialize(ctx context.Context, admin string, cfg *AccessControlConfig) error {
	if admin == "" {
		return NewError(ErrInvalidAccount, "empty admin account")
	}
	return s.mutate(ctx, "initialize", func(ctx context.Context, tx *txState) error {
		initialized, err := tx.Flag(ctx, FlagInitialized)
		if err != nil {
			return err
		}
		if initialized {
			return NewError(ErrConfiguration, "already initialized")
		}
		if err := tx.SetAdmin(ctx, admin); err != nil {
			return err
		}
		if err := tx.SetRole(ctx, admin, RoleAdmin); err != nil {
			return err
		}
		config := AccessControlConfig{}
		if cfg != nil {
			config = *cfg
		}
		if err := tx.SetConfig(ctx, config); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagInitialized, true); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagPaused, false); err != nil {
			return err
		}
		if err := tx.SetCounter(ctx, 0); err != nil {
			return err
		}
		return tx.note(ctx, "initialize", admin, admin, RoleAdmin.String(), "")
	})
}

// InitializeMultiSig sets up committee mode: validates the admin set,
// derives threshold and lifetime defaults, grants every committee member
// the Admin role and applies the given policy (nil means defaults). It
// succeeds exactly once per deployment.
//
// Default derivation: critical = min(required+1, n), emergency =
// min(critical+1, n), 24h time-lock, 50 max pending proposals, 7d expiry.
func (s *Service) InitializeMultiSig(ctx context.Context, admins []string, requiredSignatures uint32, cfg *AccessControlConfig) error {
	if len(admins) == 0 || requiredSignatures == 0 || requiredSignatures > uint32(len(admins)) {
		return NewError(ErrInvalidAccount, "invalid committee bootstrap parameters")
	}

	critical := requiredSignatures + 1
	if critical > uint32(len(admins)) {
		critical = uint32(len(admins))
	}
	emergency := critical + 1
	if emergency > uint32(len(admins)) {
		emergency = uint32(len(admins))
	}
	ms := MultiSigConfig{
		Admins:                 append([]string(nil), admins...),
		RequiredSignatures:     requiredSignatures,
		CriticalThreshold:      critical,
		EmergencyThreshold:     emergency,
		TimeLockDuration:       DefaultTimeLockDuration,
		MaxPendingProposals:    DefaultMaxPendingProposals,
		ProposalExpiryDuration: DefaultProposalExpiryDuration,
	}
	if err := ms.Validate(); err != nil {
		return err
	}

	return s.mutate(ctx, "initialize_multisig", func(ctx context.Context, tx *txState) error {
		initialized, err := tx.Flag(ctx, FlagInitialized)
		if err != nil {
			return err
		}
		if initialized {
			return NewError(ErrConfiguration, "already initialized")
		}
		if err := tx.SetMultiSigConfig(ctx, ms); err != nil {
			return err
		}
		for _, admin := range ms.Admins {
			if err := tx.SetRole(ctx, admin, RoleAdmin); err != nil {
				return err
			}
		}
		config := AccessControlConfig{}
		if cfg != nil {
			config = *cfg
		}
		if err := tx.SetConfig(ctx, config); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagInitialized, true); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, FlagPaused, false); err != nil {
			return err
		}
		if err := tx.SetCounter(ctx, 0); err != nil {
			return err
		}
		if err := tx.SetStats(ctx, ProposalStats{}); err != nil {
			return err
		}
		return tx.note(ctx, "initialize_multisig", ms.Admins[0], "", "", "")
	})
}

// IsInitialized reports whether either initializer has run.
func (s *Service) IsInitialized(ctx context.Context) (bool, error) {
	return s.store.Flag(ctx, FlagInitialized)
}

// AuditLog retrieves audit entries with optional filters.
func (s *Service) AuditLog(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	return s.store.AuditLog(ctx, filter)
}
