package config

import (
	"fmt"
	"sync"

	"github.com/kadirpekel/hector-core/pkg/registry"
	"github.com/kadirpekel/hector-core/pkg/secret"
)

// Registry maps service_id -> LLMConfig, the "registry maps service_id →
// LLM" spec §6 describes. Building the corresponding llm.Gateway from a
// resolved LLMConfig is left to the caller (cmd/hector, pkg/server),
// since that wiring needs a concrete Provider implementation and this
// package has no dependency on pkg/llm.
type Registry struct {
	base *registry.BaseRegistry[LLMConfig]
	mu   sync.Mutex
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[LLMConfig]()}
}

// Register adds cfg under its ServiceID, applying defaults and
// validating first. Returns an error if ServiceID is already registered
// or cfg fails validation.
func (r *Registry) Register(cfg LLMConfig) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: register %q: %w", cfg.ServiceID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base.Register(cfg.ServiceID, cfg)
}

// Resolve looks up the LLMConfig registered under serviceID.
func (r *Registry) Resolve(serviceID string) (LLMConfig, error) {
	cfg, ok := r.base.Get(serviceID)
	if !ok {
		return LLMConfig{}, fmt.Errorf("config: service %q is not registered", serviceID)
	}
	return cfg, nil
}

// ReinjectSecrets substitutes runtime-provided plaintext values into the
// named credential fields of serviceID's config, the load-time step spec
// §6.2 describes for a persisted config whose secret fields deserialized
// to the "****" placeholder. Recognized keys: "api_key",
// "aws_access_key_id", "aws_secret_access_key"; an unknown key is an
// error rather than silently ignored.
func (r *Registry) ReinjectSecrets(serviceID string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.base.Get(serviceID)
	if !ok {
		return fmt.Errorf("config: service %q is not registered", serviceID)
	}

	for key, plaintext := range values {
		switch key {
		case "api_key":
			cfg.APIKey = secret.New(plaintext)
		case "aws_access_key_id":
			cfg.AWSAccessKeyID = secret.New(plaintext)
		case "aws_secret_access_key":
			cfg.AWSSecretAccessKey = secret.New(plaintext)
		default:
			return fmt.Errorf("config: unknown secret field %q", key)
		}
	}

	if err := r.base.Remove(serviceID); err != nil {
		return fmt.Errorf("config: reinject secrets: %w", err)
	}
	if err := r.base.Register(serviceID, cfg); err != nil {
		return fmt.Errorf("config: reinject secrets: %w", err)
	}
	return nil
}
