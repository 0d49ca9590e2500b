package managehub

import (
	"context"
	"sort"
	"sync"
)

// memoryState is the whole engine state as plain maps. Clone makes a deep
// copy cheap enough that transactions can snapshot and restore wholesale.
type memoryState struct {
	roles         map[string]Role
	blacklist     map[string]bool
	tiers         map[string]TierLevel
	attempts      map[string]uint64
	requiredTiers map[Role]TierLevel
	flags         map[FlagKey]bool

	admin    string
	hasAdmin bool

	config    AccessControlConfig
	hasConfig bool

	multisig *MultiSigConfig
	transfer *PendingAdminTransfer

	proposals map[uint64]*PendingProposal
	pending   []uint64
	counter   uint64
	stats     ProposalStats

	audit []AuditRecord
}

func newMemoryState() *memoryState {
	return &memoryState{
		roles:         make(map[string]Role),
		blacklist:     make(map[string]bool),
		tiers:         make(map[string]TierLevel),
		attempts:      make(map[string]uint64),
		requiredTiers: make(map[Role]TierLevel),
		flags:         make(map[FlagKey]bool),
		proposals:     make(map[uint64]*PendingProposal),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		roles:         make(map[string]Role, len(s.roles)),
		blacklist:     make(map[string]bool, len(s.blacklist)),
		tiers:         make(map[string]TierLevel, len(s.tiers)),
		attempts:      make(map[string]uint64, len(s.attempts)),
		requiredTiers: make(map[Role]TierLevel, len(s.requiredTiers)),
		flags:         make(map[FlagKey]bool, len(s.flags)),
		admin:         s.admin,
		hasAdmin:      s.hasAdmin,
		config:        s.config,
		hasConfig:     s.hasConfig,
		proposals:     make(map[uint64]*PendingProposal, len(s.proposals)),
		pending:       append([]uint64(nil), s.pending...),
		counter:       s.counter,
		stats:         s.stats,
		audit:         append([]AuditRecord(nil), s.audit...),
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.blacklist {
		c.blacklist[k] = v
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	for k, v := range s.requiredTiers {
		c.requiredTiers[k] = v
	}
	for k, v := range s.flags {
		c.flags[k] = v
	}
	if s.multisig != nil {
		ms := cloneMultiSig(s.multisig)
		c.multisig = &ms
	}
	if s.transfer != nil {
		t := *s.transfer
		c.transfer = &t
	}
	for id, p := range s.proposals {
		cp := cloneProposal(p)
		c.proposals[id] = &cp
	}
	return c
}

func cloneMultiSig(c *MultiSigConfig) MultiSigConfig {
	out := *c
	out.Admins = append([]string(nil), c.Admins...)
	return out
}

func cloneProposal(p *PendingProposal) PendingProposal {
	out := *p
	out.Approvals = append([]string(nil), p.Approvals...)
	out.Rejections = append([]string(nil), p.Rejections...)
	out.Action.Accounts = append([]string(nil), p.Action.Accounts...)
	if p.Action.Config != nil {
		cfg := *p.Action.Config
		out.Action.Config = &cfg
	}
	if p.Action.MultiSig != nil {
		ms := cloneMultiSig(p.Action.MultiSig)
		out.Action.MultiSig = &ms
	}
	return out
}

// MemoryStore is the in-process Store. A single mutex serializes all access;
// Transaction snapshots the whole state and restores it when fn fails, so
// atomicity holds without any write-ahead machinery.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// Transaction runs fn against a transactional view. On error the pre-call
// snapshot is restored and the error is returned unchanged.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(ctx, &memTx{state: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) Role(ctx context.Context, account string) (Role, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Role(ctx, account)
}

func (m *MemoryStore) SetRole(ctx context.Context, account string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetRole(ctx, account, role)
}

func (m *MemoryStore) Blacklisted(ctx context.Context, account string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Blacklisted(ctx, account)
}

func (m *MemoryStore) SetBlacklisted(ctx context.Context, account string, flag bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetBlacklisted(ctx, account, flag)
}

func (m *MemoryStore) Tier(ctx context.Context, account string) (TierLevel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Tier(ctx, account)
}

func (m *MemoryStore) SetTier(ctx context.Context, account string, tier TierLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetTier(ctx, account, tier)
}

func (m *MemoryStore) AccessAttempts(ctx context.Context, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).AccessAttempts(ctx, account)
}

func (m *MemoryStore) SetAccessAttempts(ctx context.Context, account string, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetAccessAttempts(ctx, account, count)
}

func (m *MemoryStore) Admin(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Admin(ctx)
}

func (m *MemoryStore) SetAdmin(ctx context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetAdmin(ctx, account)
}

func (m *MemoryStore) Config(ctx context.Context) (AccessControlConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Config(ctx)
}

func (m *MemoryStore) SetConfig(ctx context.Context, cfg AccessControlConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetConfig(ctx, cfg)
}

func (m *MemoryStore) MultiSigConfig(ctx context.Context) (*MultiSigConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).MultiSigConfig(ctx)
}

func (m *MemoryStore) SetMultiSigConfig(ctx context.Context, cfg MultiSigConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetMultiSigConfig(ctx, cfg)
}

func (m *MemoryStore) RequiredTier(ctx context.Context, role Role) (TierLevel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).RequiredTier(ctx, role)
}

func (m *MemoryStore) SetRequiredTier(ctx context.Context, role Role, tier TierLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetRequiredTier(ctx, role, tier)
}

func (m *MemoryStore) Flag(ctx context.Context, key FlagKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Flag(ctx, key)
}

func (m *MemoryStore) SetFlag(ctx context.Context, key FlagKey, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetFlag(ctx, key, value)
}

func (m *MemoryStore) PendingTransfer(ctx context.Context) (*PendingAdminTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).PendingTransfer(ctx)
}

func (m *MemoryStore) SetPendingTransfer(ctx context.Context, t PendingAdminTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetPendingTransfer(ctx, t)
}

func (m *MemoryStore) DeletePendingTransfer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).DeletePendingTransfer(ctx)
}

func (m *MemoryStore) Proposal(ctx context.Context, id uint64) (*PendingProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Proposal(ctx, id)
}

func (m *MemoryStore) SetProposal(ctx context.Context, p PendingProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetProposal(ctx, p)
}

func (m *MemoryStore) DeleteProposal(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).DeleteProposal(ctx, id)
}

func (m *MemoryStore) PendingIDs(ctx context.Context) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).PendingIDs(ctx)
}

func (m *MemoryStore) AddPending(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).AddPending(ctx, id)
}

func (m *MemoryStore) RemovePending(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).RemovePending(ctx, id)
}

func (m *MemoryStore) Counter(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Counter(ctx)
}

func (m *MemoryStore) SetCounter(ctx context.Context, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetCounter(ctx, n)
}

func (m *MemoryStore) Stats(ctx context.Context) (ProposalStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).Stats(ctx)
}

func (m *MemoryStore) SetStats(ctx context.Context, s ProposalStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).SetStats(ctx, s)
}

func (m *MemoryStore) AppendAudit(ctx context.Context, entry AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).AppendAudit(ctx, entry)
}

func (m *MemoryStore) AuditLog(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).AuditLog(ctx, filter)
}

// memTx is the unlocked view used inside a Transaction. The MemoryStore
// mutex is already held for the whole transaction, so methods touch the
// state directly.
type memTx struct {
	state *memoryState
}

// Transaction on an inner view behaves like a savepoint: it snapshots and
// restores just like the outer one, but reuses the already-held lock.
func (t *memTx) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	snapshot := t.state.clone()
	if err := fn(ctx, t); err != nil {
		*t.state = *snapshot
		return err
	}
	return nil
}

func (t *memTx) Role(_ context.Context, account string) (Role, bool, error) {
	r, ok := t.state.roles[account]
	return r, ok, nil
}

func (t *memTx) SetRole(_ context.Context, account string, role Role) error {
	t.state.roles[account] = role
	return nil
}

func (t *memTx) Blacklisted(_ context.Context, account string) (bool, error) {
	return t.state.blacklist[account], nil
}

func (t *memTx) SetBlacklisted(_ context.Context, account string, flag bool) error {
	if flag {
		t.state.blacklist[account] = true
	} else {
		delete(t.state.blacklist, account)
	}
	return nil
}

func (t *memTx) Tier(_ context.Context, account string) (TierLevel, bool, error) {
	tier, ok := t.state.tiers[account]
	return tier, ok, nil
}

func (t *memTx) SetTier(_ context.Context, account string, tier TierLevel) error {
	t.state.tiers[account] = tier
	return nil
}

func (t *memTx) AccessAttempts(_ context.Context, account string) (uint64, error) {
	return t.state.attempts[account], nil
}

func (t *memTx) SetAccessAttempts(_ context.Context, account string, count uint64) error {
	t.state.attempts[account] = count
	return nil
}

func (t *memTx) Admin(_ context.Context) (string, bool, error) {
	return t.state.admin, t.state.hasAdmin, nil
}

func (t *memTx) SetAdmin(_ context.Context, account string) error {
	t.state.admin = account
	t.state.hasAdmin = true
	return nil
}

func (t *memTx) Config(_ context.Context) (AccessControlConfig, bool, error) {
	return t.state.config, t.state.hasConfig, nil
}

func (t *memTx) SetConfig(_ context.Context, cfg AccessControlConfig) error {
	t.state.config = cfg
	t.state.hasConfig = true
	return nil
}

func (t *memTx) MultiSigConfig(_ context.Context) (*MultiSigConfig, error) {
	if t.state.multisig == nil {
		return nil, nil
	}
	c := cloneMultiSig(t.state.multisig)
	return &c, nil
}

func (t *memTx) SetMultiSigConfig(_ context.Context, cfg MultiSigConfig) error {
	c := cloneMultiSig(&cfg)
	t.state.multisig = &c
	return nil
}

func (t *memTx) RequiredTier(_ context.Context, role Role) (TierLevel, bool, error) {
	tier, ok := t.state.requiredTiers[role]
	return tier, ok, nil
}

func (t *memTx) SetRequiredTier(_ context.Context, role Role, tier TierLevel) error {
	t.state.requiredTiers[role] = tier
	return nil
}

func (t *memTx) Flag(_ context.Context, key FlagKey) (bool, error) {
	return t.state.flags[key], nil
}

func (t *memTx) SetFlag(_ context.Context, key FlagKey, value bool) error {
	t.state.flags[key] = value
	return nil
}

func (t *memTx) PendingTransfer(_ context.Context) (*PendingAdminTransfer, error) {
	if t.state.transfer == nil {
		return nil, nil
	}
	tr := *t.state.transfer
	return &tr, nil
}

func (t *memTx) SetPendingTransfer(_ context.Context, tr PendingAdminTransfer) error {
	t.state.transfer = &tr
	return nil
}

func (t *memTx) DeletePendingTransfer(_ context.Context) error {
	t.state.transfer = nil
	return nil
}

func (t *memTx) Proposal(_ context.Context, id uint64) (*PendingProposal, error) {
	p, ok := t.state.proposals[id]
	if !ok {
		return nil, nil
	}
	cp := cloneProposal(p)
	return &cp, nil
}

func (t *memTx) SetProposal(_ context.Context, p PendingProposal) error {
	cp := cloneProposal(&p)
	t.state.proposals[p.ID] = &cp
	return nil
}

func (t *memTx) DeleteProposal(_ context.Context, id uint64) error {
	delete(t.state.proposals, id)
	return nil
}

func (t *memTx) PendingIDs(_ context.Context) ([]uint64, error) {
	ids := append([]uint64(nil), t.state.pending...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) AddPending(_ context.Context, id uint64) error {
	for _, existing := range t.state.pending {
		if existing == id {
			return nil
		}
	}
	t.state.pending = append(t.state.pending, id)
	return nil
}

func (t *memTx) RemovePending(_ context.Context, id uint64) error {
	for i, existing := range t.state.pending {
		if existing == id {
			t.state.pending = append(t.state.pending[:i], t.state.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *memTx) Counter(_ context.Context) (uint64, error) {
	return t.state.counter, nil
}

func (t *memTx) SetCounter(_ context.Context, n uint64) error {
	t.state.counter = n
	return nil
}

func (t *memTx) Stats(_ context.Context) (ProposalStats, error) {
	return t.state.stats, nil
}

func (t *memTx) SetStats(_ context.Context, s ProposalStats) error {
	t.state.stats = s
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, entry AuditRecord) error {
	t.state.audit = append(t.state.audit, entry)
	return nil
}

func (t *memTx) AuditLog(_ context.Context, filter AuditFilter) ([]AuditRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var out []AuditRecord
	skipped := 0
	// Newest first.
	for i := len(t.state.audit) - 1; i >= 0; i-- {
		entry := t.state.audit[i]
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}
		if filter.Subject != "" && entry.Subject != filter.Subject {
			continue
		}
		if filter.Op != "" && entry.Op != filter.Op {
			continue
		}
		if filter.Since != 0 && entry.At < filter.Since {
			continue
		}
		if filter.Until != 0 && entry.At > filter.Until {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, entry)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
