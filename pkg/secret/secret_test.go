package secret

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONRedactsSetValue(t *testing.T) {
	v := New("sk-live-abc123")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"****"`, string(data))
}

func TestMarshalJSONUnsetValueIsEmptyString(t *testing.T) {
	v := New("")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestStringNeverLeaksPlaintext(t *testing.T) {
	v := New("sk-live-abc123")
	assert.Equal(t, "****", v.String())
	assert.Equal(t, "sk-live-abc123", v.Reveal())
}

func TestUnmarshalJSONPlaceholderMarksRedacted(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"****"`), &v))
	assert.True(t, v.IsSet())
	assert.True(t, v.WasRedacted())
	assert.Equal(t, "", v.Reveal())
}

func TestUnmarshalJSONRealSecretIsNotRedacted(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"sk-live-abc123"`), &v))
	assert.False(t, v.WasRedacted())
	assert.Equal(t, "sk-live-abc123", v.Reveal())
}

func TestRoundTripThroughJSONRedactsThenRequiresReinjection(t *testing.T) {
	original := New("sk-live-abc123")
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Value
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.True(t, restored.WasRedacted())
	assert.NotEqual(t, original.Reveal(), restored.Reveal())
}
