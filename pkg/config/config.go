// Package config provides unified configuration for the torhaus gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TORHAUS_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the torhaus gateway. It is read at
// process start and immutable thereafter.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Entitlement   EntitlementConfig   `yaml:"entitlement"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// AuthConfig holds token verification settings. Two alternative signing
// secrets are accepted; secret A is required, secret B optional.
type AuthConfig struct {
	SecretA     string `yaml:"secret_a"`
	SecretAFile string `yaml:"secret_a_file"` // _file variant for secret_a
	SecretB     string `yaml:"secret_b"`
	SecretBFile string `yaml:"secret_b_file"` // _file variant for secret_b

	// ClockSkew is the leeway applied to token expiry checks.
	ClockSkew time.Duration `yaml:"clock_skew"` // default: 30s

	// ShortTokenTTL is the lifetime of the derived short-lived token.
	ShortTokenTTL time.Duration `yaml:"short_token_ttl"` // default: 5m
}

// EntitlementConfig holds collaborator endpoint settings.
type EntitlementConfig struct {
	Billing     CollaboratorConfig `yaml:"billing"`
	Permissions CollaboratorConfig `yaml:"permissions"`
}

// CollaboratorConfig describes one external collaborator endpoint.
type CollaboratorConfig struct {
	URL     string        `yaml:"url"`     // required
	Timeout time.Duration `yaml:"timeout"` // default: 3s
}

// AuditConfig holds chain-outcome audit log settings.
type AuditConfig struct {
	Type       string         `yaml:"type"`        // "none", "memory", or "postgres", default: "memory"
	MaxRecords int            `yaml:"max_records"` // for memory sink, default: 1024
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific audit settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			ClockSkew:     30 * time.Second,
			ShortTokenTTL: 5 * time.Minute,
		},
		Entitlement: EntitlementConfig{
			Billing:     CollaboratorConfig{Timeout: 3 * time.Second},
			Permissions: CollaboratorConfig{Timeout: 3 * time.Second},
		},
		Audit: AuditConfig{
			Type:       "memory",
			MaxRecords: 1024,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
