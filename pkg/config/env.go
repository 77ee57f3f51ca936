package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envSimple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

	// fullEnvRef matches a string leaf that is nothing but a single env
	// reference, e.g. "${NUM_RETRIES}" or "$NUM_RETRIES" - parseValue
	// only coerces these, never a reference embedded in a larger string
	// like "https://${HOST}/v1", which must stay a string.
	fullEnvRef = regexp.MustCompile(`^\$(\{[A-Z_][A-Z0-9_]*(:-.*?)?\}|[A-Z_][A-Z0-9_]*)$`)
)

// expandEnvVars resolves ${VAR}, ${VAR:-default}, and $VAR references in
// s against the process environment, the three forms teacher's
// pkg/config/env.go supports.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})
	s = envSimple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envSimple.FindStringSubmatch(match)[1])
	})
	return s
}

// expandEnvVarsInData walks a decoded YAML/JSON tree (as produced by
// koanf) and expands every string leaf in place, coercing a leaf that was
// a bare env reference (not embedded in a larger string) into a bool,
// int, or float so downstream strict decoding sees a typed value instead
// of a quoted string - teacher's env.go does this same coercion so a
// file can say `num_retries: ${NUM_RETRIES}` and still decode into an
// int field.
func expandEnvVarsInData(data any) any {
	switch v := data.(type) {
	case string:
		wasFullRef := fullEnvRef.MatchString(v)
		expanded := expandEnvVars(v)
		if wasFullRef {
			return parseValue(expanded)
		}
		return expanded
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = expandEnvVarsInData(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = expandEnvVarsInData(item)
		}
		return out
	default:
		return v
	}
}

// parseValue coerces an expanded env-var string into a bool, int64, or
// float64 when it parses cleanly as one, otherwise returns the string
// unchanged.
func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// ignoring a missing file, so ${VAR} expansion can see developer-local
// overrides without requiring them to export anything first.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
