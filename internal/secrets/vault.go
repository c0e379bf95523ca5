package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Vault stores opaque secret values scoped by server id and key name.
type Vault interface {
	// Get returns the value of key for serverID. ok is false when no value
	// is stored; err is reserved for vault failures.
	Get(serverID, key string) (value string, ok bool, err error)
	Set(serverID, key, value string) error
	// Delete removes a value. Deleting a missing value is not an error.
	Delete(serverID, key string) error
}

// DeleteAll removes every listed secret of a server.
func DeleteAll(v Vault, serverID string, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := v.Delete(serverID, key); err != nil {
			errs = append(errs, fmt.Errorf("secret %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// MemoryVault keeps secrets in process memory.
type MemoryVault struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{values: make(map[string]map[string]string)}
}

func (m *MemoryVault) Get(serverID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[serverID][key]
	return v, ok, nil
}

func (m *MemoryVault) Set(serverID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[serverID] == nil {
		m.values[serverID] = make(map[string]string)
	}
	m.values[serverID][key] = value
	return nil
}

func (m *MemoryVault) Delete(serverID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[serverID], key)
	if len(m.values[serverID]) == 0 {
		delete(m.values, serverID)
	}
	return nil
}

// FileVault keeps secrets in a YAML file readable only by the owner.
// The file is read on every access so separate relay invocations see each
// other's writes.
type FileVault struct {
	mu   sync.Mutex
	path string
}

func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

// Path returns the vault file location.
func (f *FileVault) Path() string { return f.path }

type vaultFile struct {
	Servers map[string]map[string]string `yaml:"servers"`
}

func (f *FileVault) load() (vaultFile, error) {
	var vf vaultFile
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return vaultFile{Servers: map[string]map[string]string{}}, nil
		}
		return vf, fmt.Errorf("failed to read vault %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return vf, fmt.Errorf("failed to parse vault %s: %w", f.path, err)
	}
	if vf.Servers == nil {
		vf.Servers = map[string]map[string]string{}
	}
	return vf, nil
}

func (f *FileVault) save(vf vaultFile) error {
	data, err := yaml.Marshal(vf)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create vault directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".vault-*")
	if err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tmpName, f.path)
}

func (f *FileVault) Get(serverID, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vf, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := vf.Servers[serverID][key]
	return v, ok, nil
}

func (f *FileVault) Set(serverID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vf, err := f.load()
	if err != nil {
		return err
	}
	if vf.Servers[serverID] == nil {
		vf.Servers[serverID] = map[string]string{}
	}
	vf.Servers[serverID][key] = value
	return f.save(vf)
}

func (f *FileVault) Delete(serverID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vf, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := vf.Servers[serverID][key]; !ok {
		return nil
	}
	delete(vf.Servers[serverID], key)
	if len(vf.Servers[serverID]) == 0 {
		delete(vf.Servers, serverID)
	}
	return f.save(vf)
}

var (
	_ Vault = (*MemoryVault)(nil)
	_ Vault = (*FileVault)(nil)
)
