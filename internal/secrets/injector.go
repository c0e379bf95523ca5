package secrets

import (
	"fmt"

	"relay/internal/api"
	"relay/pkg/logging"
)

// Policy decides what happens when a declared secret has no stored value.
type Policy string

const (
	// PolicyFailOpen omits missing secrets from the environment.
	PolicyFailOpen Policy = "fail-open"
	// PolicyFailClosed refuses to build an environment with missing secrets.
	PolicyFailClosed Policy = "fail-closed"
)

// ParsePolicy maps a configuration value to a Policy, defaulting to fail-open.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyFailClosed {
		return PolicyFailClosed
	}
	return PolicyFailOpen
}

// Injector merges vault secrets into a server's launch environment.
type Injector struct {
	vault  Vault
	policy Policy
}

func NewInjector(vault Vault, policy Policy) *Injector {
	return &Injector{vault: vault, policy: policy}
}

// Vault returns the underlying vault.
func (i *Injector) Vault() Vault { return i.vault }

// Resolve returns a copy of baseEnv with the value of every secret key found
// in the vault added. Secrets take precedence over baseEnv entries.
func (i *Injector) Resolve(serverID string, secretKeys []string, baseEnv map[string]string) (map[string]string, error) {
	env := make(map[string]string, len(baseEnv)+len(secretKeys))
	for k, v := range baseEnv {
		env[k] = v
	}

	for _, key := range secretKeys {
		value, ok, err := i.vault.Get(serverID, key)
		if err != nil {
			if i.policy == PolicyFailClosed {
				return nil, fmt.Errorf("failed to read secret %s for server %s: %w", key, serverID, err)
			}
			logging.Warn("Secrets", "Omitting secret %s for server %s: %v", key, serverID, err)
			continue
		}
		if !ok {
			if i.policy == PolicyFailClosed {
				return nil, &api.MissingSecretError{ServerID: serverID, Key: key}
			}
			logging.Debug("Secrets", "No value stored for secret %s of server %s, omitting", key, serverID)
			continue
		}
		env[key] = value
	}
	return env, nil
}
