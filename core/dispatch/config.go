package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/routing"
)

// Config defines dispatch-related settings.
type Config struct {
	// LedgerCapacity bounds the number of undoable operations.
	LedgerCapacity int `json:"ledger_capacity"`
	// MaxPathNodes bounds the length of a route; longer routes count as not found.
	MaxPathNodes int `json:"max_path_nodes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LedgerCapacity == 0 {
		c.LedgerCapacity = rollback.DefaultCapacity
	}
	if c.MaxPathNodes == 0 {
		c.MaxPathNodes = routing.DefaultMaxPathNodes
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if c.LedgerCapacity < 0 {
		return fmt.Errorf("ledger_capacity must be positive, got %d", c.LedgerCapacity)
	}
	if c.MaxPathNodes < 0 {
		return fmt.Errorf("max_path_nodes must be positive, got %d", c.MaxPathNodes)
	}
	return nil
}
