package config

import (
	"fmt"
	"time"
)

// DriverSeed places a driver when the service starts.
type DriverSeed struct {
	ID   int    `json:"id"`
	Node string `json:"node"`
	Zone string `json:"zone"`
}

// SimulationConfig drives the service's movement loop.
type SimulationConfig struct {
	// TickInterval is the delay between two simulation rounds.
	TickInterval time.Duration `json:"tick_interval"`
	// Drivers are registered at startup.
	Drivers []DriverSeed `json:"drivers"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
}

// Validate checks the interval and that driver ids are unique.
func (c SimulationConfig) Validate() error {
	if c.TickInterval < 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	seen := make(map[int]bool, len(c.Drivers))
	for _, d := range c.Drivers {
		if seen[d.ID] {
			return fmt.Errorf("duplicate driver id %d", d.ID)
		}
		seen[d.ID] = true
		if d.Node == "" {
			return fmt.Errorf("driver %d: node is required", d.ID)
		}
	}
	return nil
}
