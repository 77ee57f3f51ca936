package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the agent-server HTTP surface (cmd/hectord).
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	Auth *AuthConfig `yaml:"auth,omitempty"`
	CORS *CORSConfig `yaml:"cors,omitempty"`
}

// AuthConfig configures JWT-based authentication for the server.
// Disabled by default; when enabled, every route except ExcludedPaths
// requires a valid bearer token.
//
//	server:
//	  auth:
//	    enabled: true
//	    jwks_url: "https://auth.example.com/.well-known/jwks.json"
//	    issuer: "https://auth.example.com"
//	    audience: "hector-core-api"
type AuthConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	JWKSURL  string `yaml:"jwks_url,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`

	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	ExcludedPaths   []string      `yaml:"excluded_paths,omitempty"`
}

// CORSConfig configures cross-origin request handling.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	AllowedMethods []string `yaml:"allowed_methods,omitempty"`
	AllowedHeaders []string `yaml:"allowed_headers,omitempty"`
}

// SetDefaults fills in the bind address and, when auth is enabled, its
// refresh interval and the paths that bypass it.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Auth != nil {
		if c.Auth.RefreshInterval == 0 {
			c.Auth.RefreshInterval = 15 * time.Minute
		}
		if len(c.Auth.ExcludedPaths) == 0 {
			c.Auth.ExcludedPaths = []string{"/health", "/metrics"}
		}
	}
}

// Validate checks that an enabled AuthConfig carries the fields a
// JWTValidator needs.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: server port %d is out of range", c.Port)
	}
	if c.Auth != nil && c.Auth.Enabled {
		if c.Auth.JWKSURL == "" {
			return fmt.Errorf("config: server.auth.jwks_url is required when auth is enabled")
		}
		if c.Auth.Issuer == "" {
			return fmt.Errorf("config: server.auth.issuer is required when auth is enabled")
		}
		if c.Auth.Audience == "" {
			return fmt.Errorf("config: server.auth.audience is required when auth is enabled")
		}
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
