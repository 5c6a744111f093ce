package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/infra/mqtt"
)

type Config struct {
	LogLevel   string           `json:"log_level"`
	Graph      GraphConfig      `json:"graph"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Audit      audit.Config     `json:"audit"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
	API        APIConfig        `json:"api"`
	Simulation SimulationConfig `json:"simulation"`
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Graph.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Audit.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Simulation.SetDefaults()
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	if !logLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	checks := []struct {
		section string
		check   func() error
	}{
		{"graph", c.Graph.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"audit", c.Audit.Validate},
		{"mqtt", c.MQTT.Validate},
		{"api", c.API.Validate},
		{"simulation", c.Simulation.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
