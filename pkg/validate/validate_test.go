package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSuccess(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []any{"text"},
	}
	err := v.Validate("echo", schema, `{"text":"hi"}`)
	require.NoError(t, err)
}

func TestValidateMissingRequired(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []any{"text"},
	}
	err := v.Validate("echo", schema, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arguments failed to validate")
}

func TestValidateBadJSON(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{"type": "object"}
	err := v.Validate("echo", schema, `not json`)
	require.Error(t, err)
}

func TestValidateNilSchemaAllowsAnything(t *testing.T) {
	v := NewSchemaValidator()
	require.NoError(t, v.Validate("noop", nil, `{"whatever":1}`))
}

func TestValidateCachesCompiledSchema(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{"type": "object"}
	require.NoError(t, v.Validate("x", schema, `{}`))
	require.NoError(t, v.Validate("x", schema, `{}`))
	assert.Len(t, v.cache, 1)
}
