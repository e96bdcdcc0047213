package core

import (
	"net/url"
	"path/filepath"
	"strings"
)

const (
	LedgerDriverSQLite   = "sqlite3"
	LedgerDriverPostgres = "postgres"
)

type IdentityConfig struct {
	Domain       string `koanf:"domain" mapstructure:"domain"`
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	Audience     string `koanf:"audience" mapstructure:"audience"`
}

type LedgerConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

func (c LedgerConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type Config struct {
	ServiceName            string         `koanf:"service_name" mapstructure:"service_name"`
	FHIREndpoint           string         `koanf:"fhir_endpoint" mapstructure:"fhir_endpoint"`
	UserManagementEndpoint string         `koanf:"user_mgmt_endpoint" mapstructure:"user_mgmt_endpoint"`
	SeedUsersFilePath      string         `koanf:"seed_users_filepath" mapstructure:"seed_users_filepath"`
	LogLevel               string         `koanf:"log_level" mapstructure:"log_level"`
	Identity               IdentityConfig `koanf:"identity" mapstructure:"identity"`
	Ledger                 LedgerConfig   `koanf:"ledger" mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:       "fhir-seed",
		SeedUsersFilePath: filepath.Join("config", "users.json"),
		LogLevel:          "info",
		Ledger: LedgerConfig{
			Driver: LedgerDriverSQLite,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return configError("core: service_name is required")
	}
	for key, value := range map[string]string{
		"fhir_endpoint":      c.FHIREndpoint,
		"user_mgmt_endpoint": c.UserManagementEndpoint,
		"identity.domain":    c.Identity.Domain,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if !isAbsoluteHTTPURL(value) {
			return configError("core: " + key + " must be an absolute http(s) url")
		}
	}
	if c.Ledger.Enabled() {
		switch strings.TrimSpace(c.Ledger.Driver) {
		case LedgerDriverSQLite, LedgerDriverPostgres:
		default:
			return configError("core: ledger.driver must be sqlite3 or postgres")
		}
	}
	return nil
}

// ValidateForSeeding checks the settings the user reconciliation flow needs.
func (c Config) ValidateForSeeding() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.UserManagementEndpoint) == "" {
		return configError("core: user_mgmt_endpoint is required (USER_MGMNT_ENDPOINT)")
	}
	return nil
}

// ValidateForSandbox checks the settings the token acquisition flow needs.
// The alternate flow posts to {fhir_endpoint}/auth/token and skips discovery.
func (c Config) ValidateForSandbox(alternate bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.FHIREndpoint) == "" {
		return configError("core: fhir_endpoint is required (FHIR_ENDPOINT)")
	}
	if !alternate && strings.TrimSpace(c.Identity.Domain) == "" {
		return configError("core: identity.domain is required (IDENTITY_DOMAIN)")
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
