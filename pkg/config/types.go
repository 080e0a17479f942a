// Package config pkg/config/types.go
package config

import "time"

// Core is the top-level configuration for the monitoring core process.
// Fields are loaded from a JSON file and then overridden by environment
// variables (ApplyEnv) per spec.md §6; LoadCore drives both steps.
type Core struct {
	DatabaseURL string `json:"databaseUrl"`

	HTTPAddr string `json:"httpAddr"`

	MIBFiles []string `json:"mibFiles"`

	TrapPort             int    `json:"trapPort"`
	TrapFallbackPort     int    `json:"trapFallbackPort"`
	TrapRequirePrivileged bool  `json:"trapRequirePrivileged"`
	TrapAutoFallback     bool   `json:"trapAutoFallback"`

	AssetsDir string `json:"assetsDir"`

	DefaultPollInterval Duration `json:"defaultPollInterval"`

	// RetentionWindow bounds how long metric and trap rows are kept before
	// PruneOldData deletes them. Validate replaces zero with 90 days; a
	// negative value disables pruning.
	RetentionWindow Duration `json:"retentionWindow"`
	// PruneInterval controls how often the retention sweep runs.
	PruneInterval Duration `json:"pruneInterval"`

	// MaxPollRate caps the fleet-wide rate of outgoing SNMP GETs, in
	// requests per second. Validate replaces zero with 50.
	MaxPollRate float64 `json:"maxPollRate"`
	// MaxPollBurst is the token bucket burst allowance paired with
	// MaxPollRate. Ignored when MaxPollRate is zero.
	MaxPollBurst int `json:"maxPollBurst"`

	// MaxConnections bounds the number of simultaneous HTTP connections the
	// core's REST/SSE listener accepts. Validate replaces zero with 200; a
	// negative value disables the cap.
	MaxConnections int `json:"maxConnections"`
}

// Validate checks that DatabaseURL is set and fills in defaults for every
// other field left at its zero value.
func (c *Core) Validate() error {
	if c.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	if c.TrapPort == 0 {
		c.TrapPort = 162
	}

	if c.TrapFallbackPort == 0 {
		c.TrapFallbackPort = 10162
	}

	if c.AssetsDir == "" {
		c.AssetsDir = "attached_assets"
	}

	if time.Duration(c.DefaultPollInterval) == 0 {
		c.DefaultPollInterval = Duration(10 * time.Second)
	}

	if time.Duration(c.RetentionWindow) == 0 {
		c.RetentionWindow = Duration(90 * 24 * time.Hour)
	}

	if time.Duration(c.PruneInterval) == 0 {
		c.PruneInterval = Duration(1 * time.Hour)
	}

	if c.MaxPollRate == 0 {
		c.MaxPollRate = 50
	}

	if c.MaxPollBurst == 0 {
		c.MaxPollBurst = 10
	}

	if c.MaxConnections == 0 {
		c.MaxConnections = 200
	}

	return nil
}
