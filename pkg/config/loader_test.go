package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "llm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoaderLoadsFileAndAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
service_id: chat
model: gpt-4o
api_key: sk-test-123
`)

	l, err := NewLoader(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "chat", cfg.ServiceID)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.True(t, cfg.APIKey.IsSet())
	assert.Equal(t, "sk-test-123", cfg.APIKey.Reveal())
	assert.Equal(t, 5, cfg.NumRetries)
	assert.Equal(t, 120.0, cfg.Timeout)
	assert.Equal(t, ReasoningNone, cfg.ReasoningEffort)
}

func TestLoaderExpandsAndCoercesEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-from-env")
	t.Setenv("TEST_NUM_RETRIES", "7")
	t.Setenv("TEST_BASE_URL_HOST", "inference.internal")

	path := writeTempConfig(t, `
service_id: chat
model: gpt-4o
api_key: ${TEST_API_KEY}
num_retries: ${TEST_NUM_RETRIES}
base_url: "https://${TEST_BASE_URL_HOST}/v1"
`)

	l, err := NewLoader(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.APIKey.Reveal())
	assert.Equal(t, 7, cfg.NumRetries)
	assert.Equal(t, "https://inference.internal/v1", cfg.BaseURL)
}

func TestLoaderRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
service_id: chat
model: gpt-4o
api_key: sk-test-123
nonexistent_field: true
`)

	l, err := NewLoader(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	_, err = l.Load()
	require.Error(t, err)

	var structErr *StructuralError
	require.ErrorAs(t, err, &structErr)
	assert.NotEmpty(t, structErr.Violations)
}

func TestLoaderCollectsAllValidationViolations(t *testing.T) {
	path := writeTempConfig(t, `
model: gpt-4o
temperature: 5.0
num_retries: -1
`)

	l, err := NewLoader(LoaderOptions{Type: SourceFile, Path: path})
	require.NoError(t, err)

	_, err = l.Load()
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.GreaterOrEqual(t, len(valErr.Violations), 3)
}

func TestNewLoaderRequiresPath(t *testing.T) {
	_, err := NewLoader(LoaderOptions{Type: SourceFile})
	assert.Error(t, err)
}

func TestParseSourceType(t *testing.T) {
	tests := map[string]SourceType{
		"file":      SourceFile,
		"Consul":    SourceConsul,
		"etcd":      SourceEtcd,
		"zookeeper": SourceZookeeper,
		"zk":        SourceZookeeper,
	}
	for input, want := range tests {
		got, err := ParseSourceType(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSourceType("bogus")
	assert.Error(t, err)
}
