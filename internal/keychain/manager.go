// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for hextract.
// It stores the last good session credentials and the report archive DSN in the
// OS credential store so that neither ends up in the plain-text config file.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "hextract"

// Keys used for storing secrets in the OS keychain.
const (
	KeySessionCredentials = "session_credentials"
	KeyArchiveDSN         = "archive_dsn"
)

// ErrNotFound is returned when a key holds no secret.
var ErrNotFound = errors.New("keychain: secret not found")

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// There is no encrypted-file fallback: without a native store nothing is persisted.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	default:
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}

	return keyring.Open(cfg)
}

// SaveSecret stores data under key.
// This method is thread-safe.
func (m *Manager) SaveSecret(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: data, Label: ServiceName + " " + key})
}

// LoadSecret returns the data stored under key, or ErrNotFound.
// This method is thread-safe.
func (m *Manager) LoadSecret(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(item.Data) == 0 {
		return nil, ErrNotFound
	}
	return item.Data, nil
}

// DeleteSecret removes key. Removing a missing key returns ErrNotFound.
func (m *Manager) DeleteSecret(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SaveArchiveDSN stores the report archive connection string.
func (m *Manager) SaveArchiveDSN(dsn string) error {
	return m.SaveSecret(KeyArchiveDSN, []byte(dsn))
}

// LoadArchiveDSN returns the stored archive connection string.
func (m *Manager) LoadArchiveDSN() (string, error) {
	b, err := m.LoadSecret(KeyArchiveDSN)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClearAll removes every secret hextract stores.
func (m *Manager) ClearAll() error {
	for _, key := range []string{KeySessionCredentials, KeyArchiveDSN} {
		if err := m.DeleteSecret(key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// IsNotFound reports whether err means the secret does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
