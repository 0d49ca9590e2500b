package managehub

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management for the database-backed
// store as an extension to Service.
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension.
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required by the engine.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "managehub-001",
			Description: "Create account_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS account_roles (
                    account TEXT PRIMARY KEY,
                    role SMALLINT NOT NULL
                )`,
		},
		{
			ID:          "managehub-002",
			Description: "Create blacklist table",
			SQL: `
                CREATE TABLE IF NOT EXISTS blacklist (
                    account TEXT PRIMARY KEY
                )`,
		},
		{
			ID:          "managehub-003",
			Description: "Create account_tiers table",
			SQL: `
                CREATE TABLE IF NOT EXISTS account_tiers (
                    account TEXT PRIMARY KEY,
                    tier SMALLINT NOT NULL
                )`,
		},
		{
			ID:          "managehub-004",
			Description: "Create access_attempts table",
			SQL: `
                CREATE TABLE IF NOT EXISTS access_attempts (
                    account TEXT PRIMARY KEY,
                    count BIGINT NOT NULL DEFAULT 0
                )`,
		},
		{
			ID:          "managehub-005",
			Description: "Create required_tiers table",
			SQL: `
                CREATE TABLE IF NOT EXISTS required_tiers (
                    role SMALLINT PRIMARY KEY,
                    tier SMALLINT NOT NULL
                )`,
		},
		{
			ID:          "managehub-006",
			Description: "Create governance_flags table",
			SQL: `
                CREATE TABLE IF NOT EXISTS governance_flags (
                    key TEXT PRIMARY KEY,
                    value BOOLEAN NOT NULL DEFAULT false
                )`,
		},
		{
			ID:          "managehub-007",
			Description: "Create governance_state table",
			SQL: `
                CREATE TABLE IF NOT EXISTS governance_state (
                    key TEXT PRIMARY KEY,
                    value JSONB NOT NULL
                )`,
		},
		{
			ID:          "managehub-008",
			Description: "Create proposals table",
			SQL: `
                CREATE TABLE IF NOT EXISTS proposals (
                    id BIGINT PRIMARY KEY,
                    pending BOOLEAN NOT NULL DEFAULT true,
                    data JSONB NOT NULL
                )`,
		},
		{
			ID:          "managehub-009",
			Description: "Create audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS audit_log (
                    id UUID PRIMARY KEY,
                    op TEXT NOT NULL,
                    actor TEXT NOT NULL,
                    subject TEXT,
                    value TEXT,
                    previous TEXT,
                    at BIGINT NOT NULL,
                    request_id TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "managehub-010",
			Description: "Create proposals pending index",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_proposals_pending
                    ON proposals (id) WHERE pending`,
		},
	}
}
