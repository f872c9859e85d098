package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// WiFiCredentials mirrors spec.md §6.5's namespaced key-value record
// ({ssid[32], password[64]}). Field lengths are documented, not enforced
// by a fixed-size array, since Go strings are already bounds-safe; callers
// that need the ESP-NVS-style hard cap should check len() before Save.
type WiFiCredentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// CredentialStore persists WiFiCredentials to a single JSON file, standing
// in for the namespaced NVS key-value store spec.md treats as an external
// collaborator (§1 "credentials load/save" is the only observable contract
// specified; the storage medium itself is out of scope).
type CredentialStore struct {
	path string
}

// NewCredentialStore returns a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Exists reports whether credentials have ever been saved.
func (s *CredentialStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the stored credentials. Callers should check Exists first;
// Load on a missing file returns an error (spec.md's ConfigurationInvalid
// path: "missing credentials at boot, device enters captive-portal mode").
func (s *CredentialStore) Load() (WiFiCredentials, error) {
	var c WiFiCredentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		return c, fmt.Errorf("config: load credentials: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse credentials: %w", err)
	}
	return c, nil
}

// Save persists c, overwriting any previous value.
func (s *CredentialStore) Save(c WiFiCredentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes any saved credentials. Missing file is not an error.
func (s *CredentialStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Identity mirrors spec.md §6.5's {owner_name[32], serial[32]} record.
type Identity struct {
	OwnerName string `json:"owner_name"`
	Serial    string `json:"serial"`
}

// IdentityStore persists the device owner name and serial.
type IdentityStore struct {
	path string
}

// NewIdentityStore returns a store backed by path.
func NewIdentityStore(path string) *IdentityStore {
	return &IdentityStore{path: path}
}

// Get reads the stored identity, returning the zero value if none has been
// set yet.
func (s *IdentityStore) Get() (Identity, error) {
	var id Identity
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return id, nil
		}
		return id, fmt.Errorf("config: load identity: %w", err)
	}
	if err := json.Unmarshal(data, &id); err != nil {
		return id, fmt.Errorf("config: parse identity: %w", err)
	}
	return id, nil
}

// Set persists id, overwriting any previous value.
func (s *IdentityStore) Set(id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// FactoryReset removes the stored identity. Missing file is not an error.
func (s *IdentityStore) FactoryReset() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
