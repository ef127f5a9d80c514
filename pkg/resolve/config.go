package resolve

import "time"

// Config holds tuning parameters for the resolution pipeline. The confidence
// arithmetic constants are fixed (see confidence.go); only the matcher
// thresholds and concurrency limits are configurable.
type Config struct {
	// FuzzyThreshold is the minimum score on the internal 0-100 scale for
	// the fuzzy stage to be considered conclusive.
	FuzzyThreshold int `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`

	// AmbiguityMargin is the band, in internal score points, within which
	// the top two fuzzy candidates are considered tied. A tie forces review
	// with both candidates surfaced as alternatives.
	AmbiguityMargin int `yaml:"ambiguity_margin" json:"ambiguity_margin"`

	// MaxAlternatives bounds the alternatives list on a review result.
	MaxAlternatives int `yaml:"max_alternatives" json:"max_alternatives"`

	// MaxConcurrent bounds per-mention fan-out in ResolveAll. Each mention
	// may trigger up to one inference call plus one call per verifier.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// VerifyTimeout bounds each verification call. A verifier that does not
	// answer in time is treated as not consulted.
	VerifyTimeout time.Duration `yaml:"verify_timeout" json:"verify_timeout"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:  60,
		AmbiguityMargin: 5,
		MaxAlternatives: 5,
		MaxConcurrent:   8,
		VerifyTimeout:   10 * time.Second,
	}
}

// Validate fills zero values with defaults.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 100 {
		c.FuzzyThreshold = def.FuzzyThreshold
	}
	if c.AmbiguityMargin <= 0 {
		c.AmbiguityMargin = def.AmbiguityMargin
	}
	if c.MaxAlternatives <= 0 {
		c.MaxAlternatives = def.MaxAlternatives
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = def.VerifyTimeout
	}
	return nil
}
