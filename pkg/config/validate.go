package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// Secret A is the primary signing secret; secret B is optional.
	if c.Auth.SecretA == "" && c.Auth.SecretAFile == "" {
		errs = append(errs, fmt.Errorf("auth.secret_a or auth.secret_a_file is required"))
	}
	if c.Auth.ClockSkew < 0 {
		errs = append(errs, fmt.Errorf("auth.clock_skew must be >= 0, got %s", c.Auth.ClockSkew))
	}
	if c.Auth.ShortTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.short_token_ttl must be > 0, got %s", c.Auth.ShortTokenTTL))
	}

	if c.Entitlement.Billing.URL == "" {
		errs = append(errs, fmt.Errorf("entitlement.billing.url is required"))
	}
	if c.Entitlement.Permissions.URL == "" {
		errs = append(errs, fmt.Errorf("entitlement.permissions.url is required"))
	}
	if c.Entitlement.Billing.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("entitlement.billing.timeout must be > 0, got %s", c.Entitlement.Billing.Timeout))
	}
	if c.Entitlement.Permissions.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("entitlement.permissions.timeout must be > 0, got %s", c.Entitlement.Permissions.Timeout))
	}

	switch c.Audit.Type {
	case "none", "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("audit.type must be \"none\", \"memory\", or \"postgres\", got %q", c.Audit.Type))
	}

	if c.Audit.Type == "postgres" {
		if c.Audit.Postgres.DSN == "" && c.Audit.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("audit.postgres.dsn or audit.postgres.dsn_file is required when audit.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}
