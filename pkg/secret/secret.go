// Package secret provides a redaction handle for config fields that must
// never be logged or persisted in the clear, such as an LLM provider's
// api_key. A Value serializes as "****" and is re-injected from a
// runtime-provided config on load rather than round-tripped through
// storage, the same trade-off the original implementation's
// resolve_diff_from_deserialized makes for SecretStr fields.
package secret

import "encoding/json"

const redacted = "****"

// Value wraps a sensitive string so it never appears in a log line, an
// error message, or a JSON/YAML dump by accident - only Reveal returns the
// underlying value.
type Value struct {
	plaintext string
	set       bool
}

// New wraps s as a Value. An empty string is a valid, unset Value.
func New(s string) Value {
	return Value{plaintext: s, set: s != ""}
}

// IsSet reports whether the value holds a non-empty secret.
func (v Value) IsSet() bool { return v.set }

// Reveal returns the underlying plaintext. Callers must not log or persist
// the result; it exists only to hand the secret to the thing that needs
// it (an HTTP header, a provider SDK constructor).
func (v Value) Reveal() string { return v.plaintext }

// String implements fmt.Stringer, so accidentally passing a Value to a
// logger or Printf redacts rather than leaks.
func (v Value) String() string {
	if !v.set {
		return ""
	}
	return redacted
}

// MarshalJSON redacts the secret in any JSON encoding (config dumps,
// persisted conversation state) per spec: "Secrets serialize as \"****\"".
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return json.Marshal("")
	}
	return json.Marshal(redacted)
}

// UnmarshalJSON accepts either a real secret or the "****" placeholder. A
// placeholder decodes to a set-but-empty Value; WasRedacted tells the
// caller such a Value needs the runtime-provided secret substituted back
// in before use, since "****" is not a usable credential.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == redacted {
		*v = Value{plaintext: "", set: true}
		return nil
	}
	*v = New(s)
	return nil
}

// WasRedacted reports whether this Value was decoded from the "****"
// placeholder rather than a real secret - the signal pkg/config uses to
// know a field needs the runtime-provided value substituted back in
// before the config is usable.
func (v Value) WasRedacted() bool {
	return v.set && v.plaintext == ""
}
