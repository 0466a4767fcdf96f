// Package store provides hrm.CredentialStore implementations.
//
// Memory is the default: process-scoped, lost on exit, never shared between
// processes, the analog of per-tab storage in the browser client this API
// was designed for. File persists across runs for CLI use. Neither ever
// holds the rotation credential; only the access-token Credential is stored.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	hrm "github.com/openhrms/hrm-go"
)

// Memory is an in-memory CredentialStore.
type Memory struct {
	mu   sync.RWMutex
	cred *hrm.Credential
}

// compile-time check
var _ hrm.CredentialStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the stored Credential, or (nil, nil) if none exists.
func (m *Memory) Load() (*hrm.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.Clone(), nil
}

// Save replaces the stored Credential.
func (m *Memory) Save(cred *hrm.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred.Clone()
	return nil
}

// Clear removes the stored Credential.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}

// File is a CredentialStore backed by a JSON file with 0600 permissions.
type File struct {
	path string
	mu   sync.Mutex
}

// compile-time check
var _ hrm.CredentialStore = (*File)(nil)

// NewFile creates a file-backed store at path. The file is created lazily on
// the first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load returns the stored Credential. A missing file is (nil, nil);
// unreadable or malformed content is an error the caller treats as
// "no session".
func (f *File) Load() (*hrm.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hrm/store: read %s: %w", f.path, err)
	}

	var cred hrm.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("hrm/store: malformed credential in %s: %w", f.path, err)
	}
	return &cred, nil
}

// Save writes the Credential to the backing file.
func (f *File) Save(cred *hrm.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("hrm/store: encode credential: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("hrm/store: write %s: %w", f.path, err)
	}
	return nil
}

// Clear removes the backing file. A missing file is not an error.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hrm/store: remove %s: %w", f.path, err)
	}
	return nil
}
