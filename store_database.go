package managehub

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// AccountRole is the persisted role assignment for one account.
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:ar"`

	Account string `bun:"account,pk"`
	Role    Role   `bun:"role,notnull"`
}

// BlacklistEntry marks an account as blacklisted. Presence of the row is the
// flag.
type BlacklistEntry struct {
	bun.BaseModel `bun:"table:blacklist,alias:bl"`

	Account string `bun:"account,pk"`
}

// AccountTier is the cached subscription tier for one account.
type AccountTier struct {
	bun.BaseModel `bun:"table:account_tiers,alias:at"`

	Account string    `bun:"account,pk"`
	Tier    TierLevel `bun:"tier,notnull"`
}

// AccessAttempt is the running access-check counter for one account.
type AccessAttempt struct {
	bun.BaseModel `bun:"table:access_attempts,alias:aa"`

	Account string `bun:"account,pk"`
	Count   uint64 `bun:"count,notnull"`
}

// RequiredTierEntry is the minimum tier required to hold a role.
type RequiredTierEntry struct {
	bun.BaseModel `bun:"table:required_tiers,alias:rt"`

	Role Role      `bun:"role,pk"`
	Tier TierLevel `bun:"tier,notnull"`
}

// GovernanceFlag is one persisted boolean switch.
type GovernanceFlag struct {
	bun.BaseModel `bun:"table:governance_flags,alias:gf"`

	Key   string `bun:"key,pk"`
	Value bool   `bun:"value,notnull"`
}

// GovernanceState is the JSON key/value row backing the governance
// singletons: admin, config, committee, pending transfer, counter, stats.
type GovernanceState struct {
	bun.BaseModel `bun:"table:governance_state,alias:gs"`

	Key   string          `bun:"key,pk"`
	Value json.RawMessage `bun:"value,type:jsonb,notnull"`
}

// ProposalRecord is the persisted form of a PendingProposal. The full
// structure lives in the JSON column; id and the pending flag are lifted out
// for indexing.
type ProposalRecord struct {
	bun.BaseModel `bun:"table:proposals,alias:pp"`

	ID      uint64          `bun:"id,pk"`
	Pending bool            `bun:"pending,notnull"`
	Data    json.RawMessage `bun:"data,type:jsonb,notnull"`
}

const (
	stateKeyAdmin    = "admin"
	stateKeyConfig   = "config"
	stateKeyMultiSig = "multisig"
	stateKeyTransfer = "pending_transfer"
	stateKeyCounter  = "proposal_counter"
	stateKeyStats    = "proposal_stats"
)

// DatabaseStore is the PostgreSQL-backed Store built on dbkit. Atomicity
// comes from real database transactions; nested Transaction calls become
// savepoints.
type DatabaseStore struct {
	db dbkit.IDB
}

// NewDatabaseStore creates a Store over an existing dbkit handle.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := managehub.NewDatabaseStore(db)
func NewDatabaseStore(db dbkit.IDB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Transaction executes fn within a database transaction with automatic
// commit/rollback. If fn returns an error, the transaction is rolled back;
// otherwise it is committed. When already inside a transaction a savepoint
// is used instead.
func (s *DatabaseStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if tx, ok := s.db.(*dbkit.Tx); ok {
		return tx.Transaction(ctx, func(inner *dbkit.Tx) error {
			return fn(ctx, &DatabaseStore{db: inner})
		})
	}
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, &DatabaseStore{db: tx})
		})
	}
	return NewError(ErrStorage, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

func (s *DatabaseStore) Role(ctx context.Context, account string) (Role, bool, error) {
	var rec AccountRole
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("account = ?", account).Scan(ctx), "GetAccountRole").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return RoleGuest, false, nil
		}
		return RoleGuest, false, err
	}
	return rec.Role, true, nil
}

func (s *DatabaseStore) SetRole(ctx context.Context, account string, role Role) error {
	rec := &AccountRole{Account: account, Role: role}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (account) DO UPDATE").
		Set("role = EXCLUDED.role").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetAccountRole").Err()
}

func (s *DatabaseStore) Blacklisted(ctx context.Context, account string) (bool, error) {
	return dbkit.Exists[BlacklistEntry](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("account = ?", account)
	})
}

func (s *DatabaseStore) SetBlacklisted(ctx context.Context, account string, flag bool) error {
	if flag {
		rec := &BlacklistEntry{Account: account}
		result, err := s.db.NewInsert().Model(rec).
			On("CONFLICT (account) DO NOTHING").
			Exec(ctx)
		return dbkit.WithErr(result, err, "Blacklist").Err()
	}
	result, err := s.db.NewDelete().Table("blacklist").Where("account = ?", account).Exec(ctx)
	return dbkit.WithErr(result, err, "Unblacklist").Err()
}

func (s *DatabaseStore) Tier(ctx context.Context, account string) (TierLevel, bool, error) {
	var rec AccountTier
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("account = ?", account).Scan(ctx), "GetAccountTier").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return TierFree, false, nil
		}
		return TierFree, false, err
	}
	return rec.Tier, true, nil
}

func (s *DatabaseStore) SetTier(ctx context.Context, account string, tier TierLevel) error {
	rec := &AccountTier{Account: account, Tier: tier}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (account) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetAccountTier").Err()
}

func (s *DatabaseStore) AccessAttempts(ctx context.Context, account string) (uint64, error) {
	var rec AccessAttempt
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("account = ?", account).Scan(ctx), "GetAccessAttempts").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Count, nil
}

func (s *DatabaseStore) SetAccessAttempts(ctx context.Context, account string, count uint64) error {
	rec := &AccessAttempt{Account: account, Count: count}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (account) DO UPDATE").
		Set("count = EXCLUDED.count").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetAccessAttempts").Err()
}

func (s *DatabaseStore) Admin(ctx context.Context) (string, bool, error) {
	var admin string
	found, err := s.getState(ctx, stateKeyAdmin, &admin)
	return admin, found, err
}

func (s *DatabaseStore) SetAdmin(ctx context.Context, account string) error {
	return s.putState(ctx, stateKeyAdmin, account)
}

func (s *DatabaseStore) Config(ctx context.Context) (AccessControlConfig, bool, error) {
	var cfg AccessControlConfig
	found, err := s.getState(ctx, stateKeyConfig, &cfg)
	return cfg, found, err
}

func (s *DatabaseStore) SetConfig(ctx context.Context, cfg AccessControlConfig) error {
	return s.putState(ctx, stateKeyConfig, cfg)
}

func (s *DatabaseStore) MultiSigConfig(ctx context.Context) (*MultiSigConfig, error) {
	var cfg MultiSigConfig
	found, err := s.getState(ctx, stateKeyMultiSig, &cfg)
	if err != nil || !found {
		return nil, err
	}
	return &cfg, nil
}

func (s *DatabaseStore) SetMultiSigConfig(ctx context.Context, cfg MultiSigConfig) error {
	return s.putState(ctx, stateKeyMultiSig, cfg)
}

func (s *DatabaseStore) RequiredTier(ctx context.Context, role Role) (TierLevel, bool, error) {
	var rec RequiredTierEntry
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("role = ?", role).Scan(ctx), "GetRequiredTier").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return TierFree, false, nil
		}
		return TierFree, false, err
	}
	return rec.Tier, true, nil
}

func (s *DatabaseStore) SetRequiredTier(ctx context.Context, role Role, tier TierLevel) error {
	rec := &RequiredTierEntry{Role: role, Tier: tier}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (role) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetRequiredTier").Err()
}

func (s *DatabaseStore) Flag(ctx context.Context, key FlagKey) (bool, error) {
	var rec GovernanceFlag
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("key = ?", string(key)).Scan(ctx), "GetFlag").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return rec.Value, nil
}

func (s *DatabaseStore) SetFlag(ctx context.Context, key FlagKey, value bool) error {
	rec := &GovernanceFlag{Key: string(key), Value: value}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetFlag").Err()
}

func (s *DatabaseStore) PendingTransfer(ctx context.Context) (*PendingAdminTransfer, error) {
	var t PendingAdminTransfer
	found, err := s.getState(ctx, stateKeyTransfer, &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func (s *DatabaseStore) SetPendingTransfer(ctx context.Context, t PendingAdminTransfer) error {
	return s.putState(ctx, stateKeyTransfer, t)
}

func (s *DatabaseStore) DeletePendingTransfer(ctx context.Context) error {
	result, err := s.db.NewDelete().Table("governance_state").Where("key = ?", stateKeyTransfer).Exec(ctx)
	return dbkit.WithErr(result, err, "DeletePendingTransfer").Err()
}

func (s *DatabaseStore) Proposal(ctx context.Context, id uint64) (*PendingProposal, error) {
	var rec ProposalRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("id = ?", id).Scan(ctx), "GetProposal").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var p PendingProposal
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return nil, NewError(ErrStorage, "corrupt proposal record").WithProposal(id)
	}
	return &p, nil
}

func (s *DatabaseStore) SetProposal(ctx context.Context, p PendingProposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return NewError(ErrStorage, "encode proposal").WithProposal(p.ID)
	}
	rec := &ProposalRecord{ID: p.ID, Pending: true, Data: data}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return dbkit.WithErr(result, err, "SetProposal").Err()
}

func (s *DatabaseStore) DeleteProposal(ctx context.Context, id uint64) error {
	result, err := s.db.NewDelete().Table("proposals").Where("id = ?", id).Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteProposal").Err()
}

func (s *DatabaseStore) PendingIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := dbkit.WithErr1(s.db.NewRaw("SELECT id FROM proposals WHERE pending ORDER BY id").Scan(ctx, &ids), "GetPendingIDs").Err()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *DatabaseStore) AddPending(ctx context.Context, id uint64) error {
	result, err := s.db.NewUpdate().Table("proposals").Set("pending = ?", true).Where("id = ?", id).Exec(ctx)
	return dbkit.WithErr(result, err, "AddPending").Err()
}

func (s *DatabaseStore) RemovePending(ctx context.Context, id uint64) error {
	result, err := s.db.NewUpdate().Table("proposals").Set("pending = ?", false).Where("id = ?", id).Exec(ctx)
	return dbkit.WithErr(result, err, "RemovePending").Err()
}

func (s *DatabaseStore) Counter(ctx context.Context) (uint64, error) {
	var n uint64
	_, err := s.getState(ctx, stateKeyCounter, &n)
	return n, err
}

func (s *DatabaseStore) SetCounter(ctx context.Context, n uint64) error {
	return s.putState(ctx, stateKeyCounter, n)
}

func (s *DatabaseStore) Stats(ctx context.Context) (ProposalStats, error) {
	var st ProposalStats
	_, err := s.getState(ctx, stateKeyStats, &st)
	return st, err
}

func (s *DatabaseStore) SetStats(ctx context.Context, st ProposalStats) error {
	return s.putState(ctx, stateKeyStats, st)
}

func (s *DatabaseStore) AppendAudit(ctx context.Context, entry AuditRecord) error {
	result, err := s.db.NewInsert().Model(&entry).Exec(ctx)
	return dbkit.WithErr(result, err, "AppendAudit").Err()
}

func (s *DatabaseStore) AuditLog(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	var entries []AuditRecord
	q := s.db.NewSelect().Model(&entries)
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if filter.Subject != "" {
		q = q.Where("subject = ?", filter.Subject)
	}
	if filter.Op != "" {
		q = q.Where("op = ?", filter.Op)
	}
	if filter.Since != 0 {
		q = q.Where("at >= ?", filter.Since)
	}
	if filter.Until != 0 {
		q = q.Where("at <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("at DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DatabaseStore) getState(ctx context.Context, key string, out any) (bool, error) {
	var rec GovernanceState
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("key = ?", key).Scan(ctx), "GetGovernanceState").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(rec.Value, out); err != nil {
		return false, NewError(ErrStorage, "corrupt governance state: "+key)
	}
	return true, nil
}

func (s *DatabaseStore) putState(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return NewError(ErrStorage, "encode governance state: "+key)
	}
	rec := &GovernanceState{Key: key, Value: data}
	result, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return dbkit.WithErr(result, err, "PutGovernanceState").Err()
}
