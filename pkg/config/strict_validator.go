package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/hector-core/pkg/secret"
)

// stringToSecretValueHook lets a plain YAML string decode straight into a
// secret.Value field, since the config file author writes api_key as a
// normal string, not a {plaintext,set} struct literal.
func stringToSecretValueHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(secret.Value{}) {
		return data, nil
	}
	if from.Kind() != reflect.String {
		return data, nil
	}
	return secret.New(data.(string)), nil
}

// StructuralError reports every unknown-field/type violation a strict
// decode found, rather than only the first - teacher's
// strict_validator.go collects all such violations before failing so a
// user fixing a config file sees every typo in one pass, not one per
// edit-reload cycle. This trims teacher's fuzzy did-you-mean field
// suggestions (Levenshtein matching against reflected struct tags),
// which addressed hector's much larger nested agent-graph config surface;
// LLMConfig's flat field set makes a plain list of offending keys
// sufficient.
type StructuralError struct {
	Violations []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("config: invalid structure:\n  - %s", strings.Join(e.Violations, "\n  - "))
}

// decodeStrict decodes raw into an LLMConfig, rejecting unknown keys
// instead of silently ignoring them.
func decodeStrict(raw map[string]any) (LLMConfig, error) {
	var cfg LLMConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		TagName:          "yaml",
		WeaklyTypedInput: false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToSecretValueHook,
		),
	})
	if err != nil {
		return LLMConfig{}, fmt.Errorf("config: build decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		if merr, ok := err.(*mapstructure.Error); ok {
			return LLMConfig{}, &StructuralError{Violations: merr.Errors}
		}
		return LLMConfig{}, &StructuralError{Violations: []string{err.Error()}}
	}
	return cfg, nil
}
