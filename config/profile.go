package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the optional YAML client profile read by tooling built on the
// runtime (the teco-call CLI reads one). It never overrides values a caller
// sets programmatically.
type Profile struct {
	// Region is the default region for calls.
	Region string `yaml:"region"`
	// Language selects response text language.
	Language string `yaml:"language"`
	// Endpoint pins a custom endpoint URL when set.
	Endpoint string `yaml:"endpoint"`
	// TimeoutSeconds bounds a single call end to end.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Logging controls the CLI's slog setup.
	Logging LoggingProfile `yaml:"logging"`
}

// LoggingProfile holds log settings for tooling.
type LoggingProfile struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// LoadProfile reads a YAML profile and applies defaults for unset values.
// A missing file is not an error; the zero profile with defaults applied is
// returned instead.
func LoadProfile(path string) (*Profile, error) {
	p := defaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	applyProfileDefaults(p)
	return p, nil
}

// Apply transfers the profile onto a ServiceConfig.
func (p *Profile) Apply(c ServiceConfig) ServiceConfig {
	if p.Region != "" {
		c.Region = Region(p.Region)
	}
	if p.Language != "" {
		c.Language = p.Language
	}
	if p.Endpoint != "" {
		c.Endpoint = CustomEndpoint(p.Endpoint)
	}
	if p.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	return c
}

// defaultProfile returns a Profile with sensible defaults.
func defaultProfile() *Profile {
	return &Profile{
		Logging: LoggingProfile{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyProfileDefaults fills in any fields still at their zero value after
// YAML unmarshaling.
func applyProfileDefaults(p *Profile) {
	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}
	if p.Logging.Format == "" {
		p.Logging.Format = "text"
	}
}
