package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hector-core/pkg/secret"
)

func validLLMConfig(serviceID string) LLMConfig {
	return LLMConfig{
		ServiceID: serviceID,
		Model:     "gpt-4o",
		APIKey:    secret.New("sk-test-123"),
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validLLMConfig("chat")))

	cfg, err := r.Resolve("chat")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 5, cfg.NumRetries, "Register should apply defaults")
}

func TestRegistryRejectsDuplicateServiceID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validLLMConfig("chat")))
	assert.Error(t, r.Register(validLLMConfig("chat")))
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	r := NewRegistry()
	err := r.Register(LLMConfig{ServiceID: "broken"})
	assert.Error(t, err)
}

func TestRegistryResolveUnknownService(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("missing")
	assert.Error(t, err)
}
