// Package validate checks tool-call arguments against a tool's declared
// JSON-Schema when the step engine parses a tool call, per the parsing
// contract in spec §4.3: on failure the step emits an ObservationEvent,
// so the tool's executor is never called.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator compiles and caches JSON-Schema validators keyed by a
// stable identity for the schema (the tool name), since the same tool's
// schema is validated against on every step.
type SchemaValidator struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

// NewSchemaValidator creates an empty validator cache.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks argumentsJSON against schema (a JSON-Schema document),
// compiling and caching the schema under cacheKey. Returns a
// human-readable error describing every violation on failure, matching
// spec wording "arguments failed to validate: …".
func (v *SchemaValidator) Validate(cacheKey string, schema map[string]any, argumentsJSON string) error {
	if schema == nil {
		return nil // tools with no declared schema accept any arguments
	}

	compiled, err := v.compiled(cacheKey, schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(argumentsJSON), &value); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("arguments failed to validate: %s", formatValidationError(err))
	}
	return nil
}

func (v *SchemaValidator) compiled(cacheKey string, schema map[string]any) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache[cacheKey]; ok {
		return s, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	resourceName := cacheKey + ".json"
	if err := compiler.AddResource(resourceName, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}

	v.cache[cacheKey] = compiled
	return compiled, nil
}

// formatValidationError flattens a jsonschema.ValidationError tree into a
// single line, collecting every violation rather than only the first
// (mirroring the "collect all violations" style of the teacher's
// strict config validator).
func formatValidationError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	var messages []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			messages = append(messages, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(messages, "; ")
}
