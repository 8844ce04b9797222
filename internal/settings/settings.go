// Package settings persists small key/value overrides that players change at
// runtime, currently the grading API credential.
//
// Three [Store] backends are provided: [Memory] for tests and single-process
// deployments, [SQLite] for a local file and [Postgres] for shared
// deployments. Both SQL backends use the same one-table schema and create it
// on open.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by [Store.Get] and [Store.Delete] when the key is
// absent.
var ErrNotFound = errors.New("settings: not found")

// ErrInvalidAPIKey is returned by [ValidateAPIKey] and [SetAPIKey].
var ErrInvalidAPIKey = errors.New("settings: invalid api key")

// CredentialKey is the key under which the grading credential override is
// stored.
const CredentialKey = "openrouter_api_key"

// APIKeyPrefix is the prefix every OpenRouter key carries.
const APIKeyPrefix = "sk-or-v1-"

// Store is a string key/value store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// ValidateAPIKey checks the shape of a credential. It does not contact the
// backend.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAPIKey)
	}
	if !strings.HasPrefix(key, APIKeyPrefix) || len(key) == len(APIKeyPrefix) {
		return fmt.Errorf("%w: must start with %q", ErrInvalidAPIKey, APIKeyPrefix)
	}
	return nil
}

// SetAPIKey validates and stores a credential override.
func SetAPIKey(ctx context.Context, s Store, key string) error {
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	return s.Set(ctx, CredentialKey, strings.TrimSpace(key))
}

// Credentials resolves the credential used for grading calls: the stored
// override when one exists, otherwise the configured default.
type Credentials struct {
	store    Store
	fallback string
}

// NewCredentials returns a resolver over store. fallback is returned when no
// override is stored; it may be empty. A nil store always yields fallback.
func NewCredentials(store Store, fallback string) *Credentials {
	return &Credentials{store: store, fallback: fallback}
}

// APIKey returns the effective credential. A store failure is returned
// together with the fallback so callers may decide to proceed.
func (c *Credentials) APIKey(ctx context.Context) (string, error) {
	if c == nil {
		return "", nil
	}
	if c.store == nil {
		return c.fallback, nil
	}
	v, err := c.store.Get(ctx, CredentialKey)
	switch {
	case err == nil && v != "":
		return v, nil
	case err == nil, errors.Is(err, ErrNotFound):
		return c.fallback, nil
	default:
		return c.fallback, fmt.Errorf("settings: read credential: %w", err)
	}
}

// HasOverride reports whether a credential override is stored.
func (c *Credentials) HasOverride(ctx context.Context) bool {
	if c == nil || c.store == nil {
		return false
	}
	v, err := c.store.Get(ctx, CredentialKey)
	return err == nil && v != ""
}

// Memory is an in-process [Store].
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
