// Package config loads and validates the LLM configuration fields spec
// §6 names, layered exactly as the teacher's pkg/config does it: a base
// YAML file, environment variable overrides (including ${VAR} expansion
// and a .env file via godotenv), and optional remote config providers
// (consul, etcd, zookeeper) merged with koanf.
package config

import (
	"fmt"

	"github.com/kadirpekel/hector-core/pkg/secret"
)

// ReasoningEffort mirrors llm.ReasoningEffort without importing pkg/llm,
// so pkg/config has no dependency on the gateway package; callers convert
// with llm.ReasoningEffort(cfg.ReasoningEffort).
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// LLMConfig carries every field spec §6 names for one configured LLM
// service. Secret-bearing fields use secret.Value so they redact
// correctly wherever the config is logged or persisted.
type LLMConfig struct {
	ServiceID string `yaml:"service_id" json:"service_id"`

	Model      string       `yaml:"model" json:"model"`
	APIKey     secret.Value `yaml:"api_key" json:"api_key"`
	BaseURL    string       `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIVersion string       `yaml:"api_version,omitempty" json:"api_version,omitempty"`

	AWSAccessKeyID     secret.Value `yaml:"aws_access_key_id,omitempty" json:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey secret.Value `yaml:"aws_secret_access_key,omitempty" json:"aws_secret_access_key,omitempty"`
	AWSRegion          string       `yaml:"aws_region,omitempty" json:"aws_region,omitempty"`

	NumRetries      int     `yaml:"num_retries,omitempty" json:"num_retries,omitempty"`
	RetryMinWait    float64 `yaml:"retry_min_wait,omitempty" json:"retry_min_wait,omitempty"` // seconds
	RetryMaxWait    float64 `yaml:"retry_max_wait,omitempty" json:"retry_max_wait,omitempty"` // seconds
	RetryMultiplier float64 `yaml:"retry_multiplier,omitempty" json:"retry_multiplier,omitempty"`
	Timeout         float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds, per-attempt

	MaxMessageChars int `yaml:"max_message_chars,omitempty" json:"max_message_chars,omitempty"`

	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP        *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	TopK        *int     `yaml:"top_k,omitempty" json:"top_k,omitempty"`
	Seed        *int     `yaml:"seed,omitempty" json:"seed,omitempty"`

	MaxInputTokens  int `yaml:"max_input_tokens,omitempty" json:"max_input_tokens,omitempty"`
	MaxOutputTokens int `yaml:"max_output_tokens,omitempty" json:"max_output_tokens,omitempty"`

	InputCostPerToken  float64 `yaml:"input_cost_per_token,omitempty" json:"input_cost_per_token,omitempty"`
	OutputCostPerToken float64 `yaml:"output_cost_per_token,omitempty" json:"output_cost_per_token,omitempty"`

	DropParams   bool `yaml:"drop_params,omitempty" json:"drop_params,omitempty"`
	ModifyParams bool `yaml:"modify_params,omitempty" json:"modify_params,omitempty"`

	DisableVision bool `yaml:"disable_vision,omitempty" json:"disable_vision,omitempty"`
	CachingPrompt bool `yaml:"caching_prompt,omitempty" json:"caching_prompt,omitempty"`
	LogCompletions bool `yaml:"log_completions,omitempty" json:"log_completions,omitempty"`

	CustomTokenizer   string `yaml:"custom_tokenizer,omitempty" json:"custom_tokenizer,omitempty"`
	NativeToolCalling *bool  `yaml:"native_tool_calling,omitempty" json:"native_tool_calling,omitempty"`

	ReasoningEffort        ReasoningEffort `yaml:"reasoning_effort,omitempty" json:"reasoning_effort,omitempty"`
	ExtendedThinkingBudget int             `yaml:"extended_thinking_budget,omitempty" json:"extended_thinking_budget,omitempty"`

	SafetySettings map[string]string `yaml:"safety_settings,omitempty" json:"safety_settings,omitempty"`
	Metadata       map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// SetDefaults fills in every field spec §6 gives a default for. Mirrors
// teacher's LLMConfig.SetDefaults shape (env-driven API key, provider
// defaults) generalized to the spec's field set rather than hector's
// four-provider enum.
func (c *LLMConfig) SetDefaults() {
	if c.NumRetries == 0 {
		c.NumRetries = 5
	}
	if c.RetryMultiplier == 0 {
		c.RetryMultiplier = 1.0
	}
	if c.RetryMinWait == 0 {
		c.RetryMinWait = 1
	}
	if c.RetryMaxWait == 0 {
		c.RetryMaxWait = 30
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxMessageChars == 0 {
		c.MaxMessageChars = 50_000
	}
	if c.Temperature == nil {
		t := 0.0
		c.Temperature = &t
	}
	if c.ReasoningEffort == "" {
		c.ReasoningEffort = ReasoningNone
	}
	if c.NativeToolCalling == nil {
		enabled := true
		c.NativeToolCalling = &enabled
	}
}

// Validate checks the fields spec §6's invariants constrain, collecting
// every violation rather than stopping at the first (teacher's
// strict_validator.go "collect all violations" style, applied to value
// constraints instead of structural typos).
func (c *LLMConfig) Validate() error {
	var errs []string

	if c.Model == "" {
		errs = append(errs, "model is required")
	}
	if !c.APIKey.IsSet() && !c.AWSAccessKeyID.IsSet() && c.BaseURL == "" {
		errs = append(errs, "api_key is required unless aws credentials or a local base_url are configured")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		errs = append(errs, "top_p must be between 0 and 1")
	}
	if c.NumRetries < 0 {
		errs = append(errs, "num_retries must be >= 0")
	}
	if c.RetryMinWait > 0 && c.RetryMaxWait > 0 && c.RetryMinWait > c.RetryMaxWait {
		errs = append(errs, "retry_min_wait must be <= retry_max_wait")
	}
	switch c.ReasoningEffort {
	case "", ReasoningNone, ReasoningLow, ReasoningMedium, ReasoningHigh:
	default:
		errs = append(errs, fmt.Sprintf("reasoning_effort %q is not one of none, low, medium, high", c.ReasoningEffort))
	}
	if c.ServiceID == "" {
		errs = append(errs, "service_id is required")
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Violations: errs}
}

// ValidationError reports every violation Validate found, instead of
// only the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	msg := "config: invalid LLM configuration:"
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}
