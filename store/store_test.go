package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	hrm "github.com/openhrms/hrm-go"
	"github.com/openhrms/hrm-go/store"
)

func sampleCredential() *hrm.Credential {
	return &hrm.Credential{
		AccessToken: "tok-abc",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour).Truncate(time.Second),
		User: hrm.User{
			ID:       "u1",
			Username: "alice",
			Roles:    []string{"Admin", "Employee"},
			IsActive: true,
		},
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	m := store.NewMemory()

	cred, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cred != nil {
		t.Fatalf("Load() on empty store = %+v, want nil", cred)
	}

	want := sampleCredential()
	if err := m.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got == nil || got.AccessToken != want.AccessToken {
		t.Errorf("Load() = %+v, want token %q", got, want.AccessToken)
	}
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	m := store.NewMemory()
	if err := m.Save(sampleCredential()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	first, _ := m.Load()
	first.AccessToken = "mutated"
	first.User.Roles[0] = "Superuser"

	second, _ := m.Load()
	if second.AccessToken != "tok-abc" {
		t.Errorf("stored token = %q, caller mutation leaked in", second.AccessToken)
	}
	if second.User.Roles[0] != "Admin" {
		t.Errorf("stored roles = %v, caller mutation leaked in", second.User.Roles)
	}
}

func TestMemory_ClearIdempotent(t *testing.T) {
	m := store.NewMemory()
	_ = m.Save(sampleCredential())

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}

	cred, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cred != nil {
		t.Errorf("Load() after Clear = %+v, want nil", cred)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	f := store.NewFile(path)

	want := sampleCredential()
	if err := f.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.User.Username != want.User.Username {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
}

func TestFile_MissingFileIsNoSession(t *testing.T) {
	f := store.NewFile(filepath.Join(t.TempDir(), "nope.json"))

	cred, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cred != nil {
		t.Errorf("Load() = %+v, want nil for a missing file", cred)
	}
}

func TestFile_MalformedContentIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	f := store.NewFile(path)
	if _, err := f.Load(); err == nil {
		t.Error("Load() expected error for malformed content")
	}
}

func TestFile_ClearRemovesAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	f := store.NewFile(path)
	_ = f.Save(sampleCredential())

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Clear")
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}
}
