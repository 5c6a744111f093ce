package config

import "fmt"

// GraphConfig locates the CSV tables the city graph is loaded from.
type GraphConfig struct {
	// Locations is the nodes table.
	Locations string `json:"locations"`
	// Paths is the street connections table.
	Paths string `json:"paths"`
}

// SetDefaults applies the conventional file names.
func (c *GraphConfig) SetDefaults() {
	if c.Locations == "" {
		c.Locations = "data/locations.csv"
	}
	if c.Paths == "" {
		c.Paths = "data/paths.csv"
	}
}

// Validate checks mandatory fields.
func (c GraphConfig) Validate() error {
	if c.Locations == c.Paths {
		return fmt.Errorf("locations and paths must be different files")
	}
	return nil
}
