package config

import "fmt"

// LoggerConfig configures logging behavior, layered the same way as
// LLMConfig: CLI flags > environment variables > config file > defaults.
//
// Example:
//
//	logger:
//	  level: info
//	  file: hectord.log
//	  format: simple
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty"`

	// File is a log file path; empty means stderr.
	File string `yaml:"file,omitempty"`

	// Format is "simple" (level + message), "verbose" (time + level +
	// message + attributes), or any custom value passed through to
	// slog.TextHandler's default formatting.
	Format string `yaml:"format,omitempty"`
}

// SetDefaults fills in an info-level, simple-format, stderr logger.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks Level against the set of levels pkg/logging understands.
func (c *LoggerConfig) Validate() error {
	if c.Level == "" {
		return nil
	}
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("config: invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
}
