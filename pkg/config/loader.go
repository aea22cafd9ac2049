package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TORHAUS_CONFIG env, ./config.yaml,
//     /etc/torhaus/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. TORHAUS_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/torhaus/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("TORHAUS_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/torhaus/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps TORHAUS_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TORHAUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TORHAUS_SECRET_A"); v != "" {
		cfg.Auth.SecretA = v
	}
	if v := os.Getenv("TORHAUS_SECRET_B"); v != "" {
		cfg.Auth.SecretB = v
	}
	if v := os.Getenv("TORHAUS_CLOCK_SKEW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.ClockSkew = d
		}
	}
	if v := os.Getenv("TORHAUS_BILLING_URL"); v != "" {
		cfg.Entitlement.Billing.URL = v
	}
	if v := os.Getenv("TORHAUS_PERMISSIONS_URL"); v != "" {
		cfg.Entitlement.Permissions.URL = v
	}
	if v := os.Getenv("TORHAUS_AUDIT"); v != "" {
		cfg.Audit.Type = v
	}
	if v := os.Getenv("TORHAUS_AUDIT_DSN"); v != "" {
		cfg.Audit.Postgres.DSN = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.secret_a_file -> auth.secret_a
	if cfg.Auth.SecretAFile != "" && cfg.Auth.SecretA == "" {
		val, err := readSecretFile(cfg.Auth.SecretAFile)
		if err != nil {
			return fmt.Errorf("auth.secret_a_file: %w", err)
		}
		cfg.Auth.SecretA = val
	}

	// auth.secret_b_file -> auth.secret_b
	if cfg.Auth.SecretBFile != "" && cfg.Auth.SecretB == "" {
		val, err := readSecretFile(cfg.Auth.SecretBFile)
		if err != nil {
			return fmt.Errorf("auth.secret_b_file: %w", err)
		}
		cfg.Auth.SecretB = val
	}

	// audit.postgres.dsn_file -> audit.postgres.dsn
	if cfg.Audit.Postgres.DSNFile != "" && cfg.Audit.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Audit.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("audit.postgres.dsn_file: %w", err)
		}
		cfg.Audit.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
