// Package config loads and validates the ewsync YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/njoerd114/ewsync/internal/model"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// Accounts lists the remote mailboxes to sync. At least one is required.
	Accounts []AccountConfig `yaml:"accounts"`

	// StateDB overrides the path of the sync-state database.
	// Defaults to ~/.local/share/ewsync/state.db.
	StateDB string `yaml:"state_db,omitempty"`

	// LocalDB overrides the path of the local mail store database.
	// Defaults to ~/.local/share/ewsync/local.db.
	LocalDB string `yaml:"local_db,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// AccountConfig describes one Exchange account.
type AccountConfig struct {
	// ID is a stable identifier, unique across accounts. Defaults to Email.
	ID string `yaml:"id,omitempty"`

	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name,omitempty"`

	// Endpoint is the EWS endpoint URL
	// (e.g. "https://outlook.office365.com/EWS/Exchange.asmx").
	Endpoint string `yaml:"endpoint"`

	// Auth selects the authentication method: "oauth2" or "basic".
	Auth string `yaml:"auth"`

	// Username and Password are required for basic auth. Username defaults
	// to Email.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// ClientID and Tenant configure the OAuth2 app registration. Tenant
	// defaults to "common".
	ClientID string `yaml:"client_id,omitempty"`
	Tenant   string `yaml:"tenant,omitempty"`

	// Sync toggles per entity type. All default to true.
	SyncMail     *bool `yaml:"sync_mail,omitempty"`
	SyncContacts *bool `yaml:"sync_contacts,omitempty"`
	SyncCalendar *bool `yaml:"sync_calendar,omitempty"`

	// SyncInterval is the period of the account's recurring sync timer.
	// Minimum 1m, maximum 1h. Defaults to 5m.
	SyncInterval time.Duration `yaml:"sync_interval,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "ewsync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/ewsync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ewsync", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Account converts a validated account config to its model form.
func (a *AccountConfig) Account() model.Account {
	return model.Account{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Endpoint:    a.Endpoint,
		AuthMethod:  model.AuthMethod(a.Auth),
		Settings: model.SyncSettings{
			Mail:     a.SyncMail == nil || *a.SyncMail,
			Contacts: a.SyncContacts == nil || *a.SyncContacts,
			Calendar: a.SyncCalendar == nil || *a.SyncCalendar,
			Interval: a.SyncInterval,
		},
	}
}

// validate checks that all required fields are present and well-formed, and
// fills in defaults.
func (c *Config) validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("accounts must contain at least one entry")
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if err := a.validate(); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("accounts[%d]: duplicate account id %q", i, a.ID)
		}
		seen[a.ID] = true
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}

func (a *AccountConfig) validate() error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if a.ID == "" {
		a.ID = a.Email
	}

	if a.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.ParseRequestURI(a.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("endpoint %q must be a valid http or https URL", a.Endpoint)
	}

	switch model.AuthMethod(a.Auth) {
	case model.AuthBasic:
		if a.Username == "" {
			a.Username = a.Email
		}
		if a.Password == "" {
			return fmt.Errorf("password is required for basic auth")
		}
	case model.AuthOAuth2:
		if a.ClientID == "" {
			return fmt.Errorf("client_id is required for oauth2 auth")
		}
	default:
		return fmt.Errorf("auth %q must be %q or %q", a.Auth, model.AuthOAuth2, model.AuthBasic)
	}

	if a.SyncInterval == 0 {
		a.SyncInterval = 5 * time.Minute
	}
	if a.SyncInterval < time.Minute {
		return fmt.Errorf("sync_interval %v is too short (minimum 1m)", a.SyncInterval)
	}
	if a.SyncInterval > time.Hour {
		return fmt.Errorf("sync_interval %v is too long (maximum 1h)", a.SyncInterval)
	}

	return nil
}
