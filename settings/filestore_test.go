package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/settings"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)

	require.NoError(t, fs.Set("auth/refreshToken", "rt-123"))
	require.NoError(t, fs.Set("auth/lastIdentity", "john.doe@example.com"))

	got, err := fs.Get("auth/refreshToken")
	require.NoError(t, err)
	require.Equal(t, "rt-123", got)
}

func TestFileStore_ReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, fs.Set("auth/refreshToken", "rt-123"))

	reloaded, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)

	got, err := reloaded.Get("auth/refreshToken")
	require.NoError(t, err)
	require.Equal(t, "rt-123", got)
}

func TestFileStore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, fs.Set("auth/refreshToken", "rt-123"))

	_, err = settings.NewFileStore(path, "other-passphrase")
	require.Error(t, err)
}

func TestFileStore_TamperedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, fs.Set("auth/refreshToken", "rt-123"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = settings.NewFileStore(path, "passphrase")
	require.Error(t, err)
}

func TestFileStore_RemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, fs.Set("auth/refreshToken", "rt-123"))

	require.NoError(t, fs.Remove("auth/refreshToken"))
	require.NoError(t, fs.Remove("auth/refreshToken"))

	_, err = fs.Get("auth/refreshToken")
	require.True(t, errors.Is(err, settings.ErrNotFound))
}

func TestFileStore_MissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.enc")

	fs, err := settings.NewFileStore(path, "passphrase")
	require.NoError(t, err)

	_, err = fs.Get("auth/accessToken")
	require.True(t, errors.Is(err, settings.ErrNotFound))
}
