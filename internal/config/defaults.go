package config

import "time"

const (
	DefaultProtocolVersion = "2024-11-05"
	DefaultClientName      = "Relay-Inspector"
	DefaultClientVersion   = "1.0.0"
	DefaultAttemptBudget   = 20
	DefaultLineWait        = 300 * time.Millisecond
	DefaultInitTimeout     = 15 * time.Second
	DefaultListTimeout     = 10 * time.Second
	DefaultCallTimeout     = 30 * time.Second

	DefaultStopGracePeriod = 5 * time.Second
	DefaultWatchDebounce   = 500 * time.Millisecond

	DefaultSecretsFile = "secrets.yaml"
	DefaultLogLevel    = "info"
)

// GetDefaultConfig returns the configuration used when config.yaml is absent.
func GetDefaultConfig() RelayConfig {
	return RelayConfig{
		Store: StoreConfig{
			Driver: StoreDriverYAML,
		},
		Secrets: SecretsConfig{
			Policy: SecretPolicyFailOpen,
			File:   DefaultSecretsFile,
		},
		Protocol: DefaultProtocolConfig(),
		Supervisor: SupervisorConfig{
			StopGracePeriod: DefaultStopGracePeriod,
		},
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
		LogLevel: DefaultLogLevel,
	}
}

// DefaultProtocolConfig returns the handshake defaults.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		ProtocolVersion: DefaultProtocolVersion,
		ClientName:      DefaultClientName,
		ClientVersion:   DefaultClientVersion,
		AttemptBudget:   DefaultAttemptBudget,
		LineWait:        DefaultLineWait,
		InitTimeout:     DefaultInitTimeout,
		ListTimeout:     DefaultListTimeout,
		CallTimeout:     DefaultCallTimeout,
	}
}
