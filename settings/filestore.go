package settings

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore persists settings as a single encrypted-at-rest file:
// salt||nonce||ciphertext, where the ciphertext is the AES-256-GCM sealed
// JSON encoding of the key/value map and the key is derived from a
// passphrase with PBKDF2.
type FileStore struct {
	path   string
	key    []byte
	salt   []byte
	mu     sync.Mutex
	values map[string]string
}

// NewFileStore opens or creates the encrypted settings file at path.
// An existing file is decrypted eagerly so a wrong passphrase fails here
// rather than on first access.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fs.salt = make([]byte, saltLength)
		if _, err := rand.Read(fs.salt); err != nil {
			return nil, errors.Wrap(err, "[NewFileStore] rand.Read")
		}
		fs.key = deriveKey(passphrase, fs.salt)
		return fs, nil
	case err != nil:
		return nil, errors.Wrap(err, "[NewFileStore] read settings file")
	}

	if len(raw) < saltLength {
		return nil, errors.New("[NewFileStore] settings file truncated")
	}
	fs.salt = raw[:saltLength]
	fs.key = deriveKey(passphrase, fs.salt)

	plaintext, err := decryptAESGCM(fs.key, raw[saltLength:])
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] decrypt settings file")
	}
	if err := json.Unmarshal(plaintext, &fs.values); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] decode settings file")
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	value, ok := fs.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.values[key] = value
	return fs.flush()
}

// Remove deletes a key. Removing an absent key is not an error so that
// logout stays idempotent.
func (fs *FileStore) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.values[key]; !ok {
		return nil
	}
	delete(fs.values, key)
	return fs.flush()
}

// flush writes the whole map back to disk. Caller holds fs.mu.
func (fs *FileStore) flush() error {
	plaintext, err := json.Marshal(fs.values)
	if err != nil {
		return errors.Wrap(err, "[FileStore.flush] encode")
	}
	sealed, err := encryptAESGCM(fs.key, plaintext)
	if err != nil {
		return errors.Wrap(err, "[FileStore.flush] encrypt")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.flush] mkdir")
	}
	if err := os.WriteFile(fs.path, append(append([]byte{}, fs.salt...), sealed...), 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.flush] write")
	}
	return nil
}
