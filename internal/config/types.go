package config

import "time"

// RelayConfig is the top-level configuration structure for relay.
type RelayConfig struct {
	Store      StoreConfig      `yaml:"store"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Protocol   ProtocolConfig   `yaml:"protocol"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Watch      WatchConfig      `yaml:"watch"`
	LogLevel   string           `yaml:"logLevel,omitempty"`
}

// Store drivers.
const (
	StoreDriverYAML     = "yaml"
	StoreDriverPostgres = "postgres"
)

// StoreConfig selects where server definitions and profiles are persisted.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // yaml (default) or postgres
	DSN    string `yaml:"dsn,omitempty"`    // Connection string for the postgres driver
}

// Secret policies.
const (
	SecretPolicyFailOpen   = "fail-open"
	SecretPolicyFailClosed = "fail-closed"
)

// SecretsConfig configures the secret vault and how missing secrets are treated.
type SecretsConfig struct {
	Policy string `yaml:"policy,omitempty"` // fail-open (default) or fail-closed
	File   string `yaml:"file,omitempty"`   // Vault file, relative to the config directory unless absolute
}

// ProtocolConfig holds the handshake parameters used when talking to a server.
type ProtocolConfig struct {
	ProtocolVersion string        `yaml:"protocolVersion,omitempty"`
	ClientName      string        `yaml:"clientName,omitempty"`
	ClientVersion   string        `yaml:"clientVersion,omitempty"`
	AttemptBudget   int           `yaml:"attemptBudget,omitempty"` // Lines read per phase before giving up
	LineWait        time.Duration `yaml:"lineWait,omitempty"`      // Longest wait for a single line
	InitTimeout     time.Duration `yaml:"initTimeout,omitempty"`
	ListTimeout     time.Duration `yaml:"listTimeout,omitempty"`
	CallTimeout     time.Duration `yaml:"callTimeout,omitempty"`
}

// SupervisorConfig configures process termination.
type SupervisorConfig struct {
	StopGracePeriod time.Duration `yaml:"stopGracePeriod,omitempty"` // Time between SIGTERM and SIGKILL
}

// WatchConfig controls the store directory watcher used by serve.
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// IsEnabled reports whether the watcher should run; unset means enabled.
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}
