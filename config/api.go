package config

import (
	"fmt"
	"net"
)

// APIConfig configures the read-only report API.
type APIConfig struct {
	// Addr is the listen address; empty disables the API.
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}

// Enabled reports whether the API should be served.
func (c APIConfig) Enabled() bool { return c.Addr != "" }

// Validate checks the listen address.
func (c APIConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Addr, err)
	}
	return nil
}
