package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Strategy names accepted in configuration.
var ValidStrategies = []string{"preserve", "by-file", "squash", "llm", "hierarchical"}

// Providers accepted in configuration.
var ValidProviders = []string{"claude", "openai", "gemini"}

// Config holds repository-level configuration loaded from .reabsorb.yaml.
type Config struct {
	Strategy     string             `yaml:"strategy"     json:"strategy,omitempty" validate:"omitempty,oneof=preserve by-file squash llm hierarchical"`
	Base         string             `yaml:"base"         json:"base,omitempty"`
	LLM          LLMConfig          `yaml:"llm"          json:"llm"`
	Hierarchical HierarchicalConfig `yaml:"hierarchical" json:"hierarchical"`
	Apply        ApplyConfig        `yaml:"apply"        json:"apply"`
	Assessment   AssessmentConfig   `yaml:"assessment"   json:"assessment"`
}

// LLMConfig selects and tunes the language model provider.
type LLMConfig struct {
	Provider          string        `yaml:"provider"            json:"provider,omitempty" validate:"omitempty,oneof=claude openai gemini"`
	Model             string        `yaml:"model"               json:"model,omitempty"`
	BaseURL           string        `yaml:"base_url"            json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey            string        `yaml:"-"                   json:"-"`
	Timeout           time.Duration `yaml:"timeout"             json:"timeout,omitempty" validate:"gte=0"`
	RequestBudget     int           `yaml:"request_budget"      json:"request_budget,omitempty" validate:"gte=0"`
	ContentThreshold  int           `yaml:"content_threshold"   json:"content_threshold,omitempty" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute,omitempty" validate:"gte=0"`
	// NoRepair sends every invalid grouping back to the model instead of
	// first fixing reference errors locally.
	NoRepair          bool          `yaml:"no_repair"           json:"no_repair,omitempty"`
}

// HierarchicalConfig bounds phase partitioning.
type HierarchicalConfig struct {
	// Threshold is the maximum serialized request size per phase. Zero means
	// use llm.request_budget.
	Threshold int `yaml:"threshold" json:"threshold,omitempty" validate:"gte=0"`
	MaxDepth  int `yaml:"max_depth" json:"max_depth,omitempty" validate:"gte=0,lte=16"`
}

type ApplyConfig struct {
	NoVerify bool `yaml:"no_verify" json:"no_verify,omitempty"`
}

type AssessmentConfig struct {
	Weights map[string]float64 `yaml:"weights" json:"weights,omitempty" validate:"dive,gte=0,lte=1"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Strategy: "preserve",
		LLM: LLMConfig{
			Provider:          "claude",
			Timeout:           2 * time.Minute,
			RequestBudget:     60000,
			ContentThreshold:  2000,
			RequestsPerMinute: 30,
		},
		Hierarchical: HierarchicalConfig{MaxDepth: 6},
	}
}

// PhaseThreshold is the effective per-phase request bound.
func (c Config) PhaseThreshold() int {
	if c.Hierarchical.Threshold > 0 {
		return c.Hierarchical.Threshold
	}
	return c.LLM.RequestBudget
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return describeFieldError(verrs[0])
		}
		return err
	}

	for k := range c.Assessment.Weights {
		if !isValidCriterion(k) {
			return fmt.Errorf("unknown criterion %q in assessment.weights", k)
		}
	}

	if len(c.Assessment.Weights) == len(Criteria) {
		sum := 0.0
		for _, w := range c.Assessment.Weights {
			sum += w
		}
		if sum < 0.95 || sum > 1.05 {
			return fmt.Errorf("assessment.weights sum to %.2f (must be between 0.95 and 1.05)", sum)
		}
	}

	return nil
}

func describeFieldError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Namespace())
	field = strings.TrimPrefix(field, "config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s: unknown value %q (valid: %s)", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Errorf("%s: %q is not a valid URL", field, fe.Value())
	case "gte", "lte":
		return fmt.Errorf("%s: value %v out of range (%s %s)", field, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s: failed %s validation", field, fe.Tag())
}

func isValidCriterion(name string) bool {
	for _, c := range Criteria {
		if string(c) == name {
			return true
		}
	}
	return false
}

// EffectiveWeight returns the configured weight for a criterion,
// falling back to defaultWeight if not specified.
func (c Config) EffectiveWeight(criterion Criterion, defaultWeight float64) float64 {
	if w, ok := c.Assessment.Weights[string(criterion)]; ok {
		return w
	}
	return defaultWeight
}
