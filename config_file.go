package managehub

import (
	"github.com/BurntSushi/toml"
)

// FileConfig is the TOML bootstrap configuration for a deployment: the
// database URL plus optional overrides of the governance defaults applied
// by InitializeMultiSig.
type FileConfig struct {
	// DatabaseURL is the Postgres connection string for the database-backed
	// store. Empty selects the in-memory store.
	DatabaseURL string `toml:"database_url"`

	// TimeLockDuration overrides the default 24h time-lock, in seconds.
	TimeLockDuration uint64 `toml:"time_lock_duration"`

	// MaxPendingProposals overrides the default pending-proposal limit.
	MaxPendingProposals uint32 `toml:"max_pending_proposals"`

	// ProposalExpiryDuration overrides the default 7d proposal lifetime,
	// in seconds.
	ProposalExpiryDuration uint64 `toml:"proposal_expiry_duration"`

	// Policy is the initial access-control policy.
	Policy AccessControlConfig `toml:"policy"`
}

// LoadFileConfig reads a TOML configuration file and fills unset governance
// fields with the engine defaults.
func LoadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, NewError(ErrConfiguration, err.Error())
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *FileConfig) applyDefaults() {
	if c.TimeLockDuration == 0 {
		c.TimeLockDuration = DefaultTimeLockDuration
	}
	if c.MaxPendingProposals == 0 {
		c.MaxPendingProposals = DefaultMaxPendingProposals
	}
	if c.ProposalExpiryDuration == 0 {
		c.ProposalExpiryDuration = DefaultProposalExpiryDuration
	}
}
