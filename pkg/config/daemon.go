package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/hector-core/pkg/observability"
)

// DaemonConfig is cmd/hectord's process-wide configuration: every LLM
// service the daemon exposes, the HTTP server surface, logging, and
// observability - the file layout a single hectord process reads on
// startup, layered the same way LLMConfig is (YAML file, ${VAR}
// expansion, then defaults+validation).
type DaemonConfig struct {
	Services      []LLMConfig          `yaml:"services"`
	Server        ServerConfig         `yaml:"server"`
	Logger        LoggerConfig         `yaml:"logger"`
	Observability observability.Config `yaml:"observability"`
	MCPServers    []MCPServerConfig    `yaml:"mcp_servers,omitempty"`

	// StorageDir roots a durable, file-backed event store when set.
	// Empty (the default) runs with an in-memory store: conversations do
	// not survive a restart.
	StorageDir string `yaml:"storage_dir,omitempty"`
}

// MCPServerConfig configures one remote MCP server whose tools are
// registered into the process-wide tool registry at startup. Field names
// mirror pkg/mcp.Config; this package carries its own plain-data copy so
// pkg/config has no dependency on pkg/mcp.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Filter    []string          `yaml:"filter,omitempty"`
}

// SetDefaults applies each section's own SetDefaults.
func (c *DaemonConfig) SetDefaults() {
	for i := range c.Services {
		c.Services[i].SetDefaults()
	}
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section and requires at least one configured
// service and unique service_ids.
func (c *DaemonConfig) Validate() error {
	var errs []string

	if len(c.Services) == 0 {
		errs = append(errs, "at least one service must be configured")
	}
	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if err := svc.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if seen[svc.ServiceID] {
			errs = append(errs, fmt.Sprintf("duplicate service_id %q", svc.ServiceID))
		}
		seen[svc.ServiceID] = true
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Logger.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	mcpNames := make(map[string]bool, len(c.MCPServers))
	for _, m := range c.MCPServers {
		if m.Name == "" {
			errs = append(errs, "mcp_servers entries require a name")
			continue
		}
		if mcpNames[m.Name] {
			errs = append(errs, fmt.Sprintf("duplicate mcp server name %q", m.Name))
		}
		mcpNames[m.Name] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Violations: errs}
}

// LoadDaemonConfig reads path as YAML, expands ${VAR} references against
// the process environment, strictly decodes the result into a
// DaemonConfig, and applies SetDefaults + Validate.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return DaemonConfig{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	expanded := expandEnvVarsInData(k.Raw())
	expandedMap, ok := expanded.(map[string]any)
	if !ok {
		return DaemonConfig{}, fmt.Errorf("config: unexpected shape after env expansion")
	}

	var cfg DaemonConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &cfg,
		ErrorUnused: true,
		TagName:     "yaml",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToSecretValueHook,
		),
	})
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(expandedMap); err != nil {
		if merr, ok := err.(*mapstructure.Error); ok {
			return DaemonConfig{}, &StructuralError{Violations: merr.Errors}
		}
		return DaemonConfig{}, &StructuralError{Violations: []string{err.Error()}}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}
