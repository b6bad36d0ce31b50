// Package config loads and validates the YAML configuration of the Lancet
// pipeline. Values are tunables only; every component falls back to safe
// defaults when a field is zero.
package config

import (
	"fmt"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
	"github.com/k-shibuki/lyra-sub001/pkg/logging"
)

// SanitizerConfig tunes the input sanitizer.
type SanitizerConfig struct {
	MaxInputLength int    `yaml:"max_input_length"`
	TagPrefix      string `yaml:"tag_prefix"`
}

// ValidatorConfig tunes the output validator.
type ValidatorConfig struct {
	MaxOutputMultiplier int `yaml:"max_output_multiplier"`
}

// TrustConfig tunes the verification state machine.
type TrustConfig struct {
	PromotionThreshold     int     `yaml:"promotion_threshold"`
	RejectionRateThreshold float64 `yaml:"rejection_rate_threshold"`
}

// SchemaConfig locates the per-tool response schemas.
type SchemaConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Config is the root configuration document.
type Config struct {
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Validator ValidatorConfig `yaml:"validator"`
	Trust     TrustConfig     `yaml:"trust"`
	Schema    SchemaConfig    `yaml:"schema"`
	Logging   logging.Config  `yaml:"logging"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Sanitizer: SanitizerConfig{
			MaxInputLength: 10000,
			TagPrefix:      "LYRA",
		},
		Validator: ValidatorConfig{
			MaxOutputMultiplier: 10,
		},
		Trust: TrustConfig{
			PromotionThreshold:     2,
			RejectionRateThreshold: 0.3,
		},
		Schema: SchemaConfig{
			Dir:   "schemas",
			Watch: true,
		},
		Logging: logging.Config{
			Level: "info",
		},
	}
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	if c.Sanitizer.MaxInputLength < 0 {
		return fmt.Errorf("%w: sanitizer.max_input_length must not be negative", domain.ErrConfigInvalid)
	}
	if c.Validator.MaxOutputMultiplier < 0 {
		return fmt.Errorf("%w: validator.max_output_multiplier must not be negative", domain.ErrConfigInvalid)
	}
	if c.Trust.RejectionRateThreshold < 0 || c.Trust.RejectionRateThreshold >= 1 {
		return fmt.Errorf("%w: trust.rejection_rate_threshold must be in [0, 1)", domain.ErrConfigInvalid)
	}
	if c.Trust.PromotionThreshold < 0 {
		return fmt.Errorf("%w: trust.promotion_threshold must not be negative", domain.ErrConfigInvalid)
	}
	return nil
}
