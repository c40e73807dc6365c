// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotStored is returned by a Store that holds no credentials.
var ErrNotStored = errors.New("no stored credentials")

// Store persists the last good credentials between runs.
type Store interface {
	SaveCredentials(Credentials) error
	LoadCredentials() (Credentials, error)
	ClearCredentials() error
}

// SecretStore is the raw secret storage a SecretBackedStore writes to.
// keychain.Manager satisfies it.
type SecretStore interface {
	SaveSecret(key string, data []byte) error
	LoadSecret(key string) ([]byte, error)
	DeleteSecret(key string) error
}

// SecretKey is the secret name under which credentials are stored.
const SecretKey = "session_credentials"

// SecretBackedStore serialises credentials as JSON into a SecretStore.
type SecretBackedStore struct {
	Secrets SecretStore
	// IsNotFound reports whether a LoadSecret error means "nothing stored".
	IsNotFound func(error) bool
}

func (s SecretBackedStore) SaveCredentials(c Credentials) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.Secrets.SaveSecret(SecretKey, b)
}

func (s SecretBackedStore) LoadCredentials() (Credentials, error) {
	var c Credentials
	b, err := s.Secrets.LoadSecret(SecretKey)
	if err != nil {
		if s.IsNotFound != nil && s.IsNotFound(err) {
			return c, ErrNotStored
		}
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("decode stored credentials: %w", err)
	}
	return c, nil
}

func (s SecretBackedStore) ClearCredentials() error {
	err := s.Secrets.DeleteSecret(SecretKey)
	if err != nil && s.IsNotFound != nil && s.IsNotFound(err) {
		return nil
	}
	return err
}

// StoredStrategy replays the last persisted credentials.
type StoredStrategy struct {
	Store Store
}

func (StoredStrategy) Name() string { return "keychain" }

func (s StoredStrategy) Extract(ctx context.Context) (Credentials, error) {
	c, err := s.Store.LoadCredentials()
	if errors.Is(err, ErrNotStored) {
		return Credentials{}, nil
	}
	return c, err
}

// StaticStrategy yields credentials supplied by configuration or environment.
type StaticStrategy struct {
	Label       string
	Credentials Credentials
}

func (s StaticStrategy) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s StaticStrategy) Extract(ctx context.Context) (Credentials, error) {
	return s.Credentials, nil
}
