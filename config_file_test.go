package managehub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "managehub.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadFileConfig tests a fully populated configuration file.
func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
database_url = "postgres://localhost:5432/managehub"
time_lock_duration = 3600
max_pending_proposals = 10
proposal_expiry_duration = 7200

[policy]
membership_contract = "token-1"
require_membership_for_roles = true
min_token_balance = 25
subscription_contract = "subs-1"
enforce_tier_restrictions = true
`)

	cfg, err := LoadFileConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/managehub", cfg.DatabaseURL)
	assert.Equal(t, uint64(3600), cfg.TimeLockDuration)
	assert.Equal(t, uint32(10), cfg.MaxPendingProposals)
	assert.Equal(t, uint64(7200), cfg.ProposalExpiryDuration)
	assert.Equal(t, "token-1", cfg.Policy.MembershipContract)
	assert.True(t, cfg.Policy.RequireMembershipForRoles)
	assert.Equal(t, int64(25), cfg.Policy.MinTokenBalance)
	assert.Equal(t, "subs-1", cfg.Policy.SubscriptionContract)
	assert.True(t, cfg.Policy.EnforceTierRestrictions)
}

// TestLoadFileConfigDefaults tests that unset governance fields fall back
// to the engine defaults.
func TestLoadFileConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `database_url = ""`)

	cfg, err := LoadFileConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(DefaultTimeLockDuration), cfg.TimeLockDuration)
	assert.Equal(t, uint32(DefaultMaxPendingProposals), cfg.MaxPendingProposals)
	assert.Equal(t, uint64(DefaultProposalExpiryDuration), cfg.ProposalExpiryDuration)
	assert.Empty(t, cfg.Policy.MembershipContract)
	assert.False(t, cfg.Policy.RequireMembershipForRoles)
}

// TestLoadFileConfigErrors tests missing and malformed files.
func TestLoadFileConfigErrors(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfiguration)

	path := writeConfigFile(t, `time_lock_duration = "not a number"`)
	_, err = LoadFileConfig(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}
