package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength    = 16
	keyLength     = 32
	kdfIterations = 100_000
)

// additional authenticated data binds ciphertexts to this store format
var settingsAAD = []byte("dh-importer/settings/v1")

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keyLength, sha256.New)
}

// encryptAESGCM seals plaintext with AES-256-GCM. The returned slice is
// nonce||ciphertext where nonce has length gcm.NonceSize().
func encryptAESGCM(key, plaintext []byte) ([]byte, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(blk)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, settingsAAD)
	return append(nonce, ciphertext...), nil
}

// decryptAESGCM opens data produced by encryptAESGCM with the same key.
func decryptAESGCM(key, ciphertext []byte) ([]byte, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(blk)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	ct := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, settingsAAD)
}
