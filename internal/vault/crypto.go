// Package vault seals secrets kept on the local device and issues the daemon's
// self-signed TLS certificate.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

var (
	// ErrTooShort is returned for ciphertext shorter than the GCM nonce.
	ErrTooShort = errors.New("ciphertext too short")
	// ErrOpen is returned when the key is wrong or the data was tampered with.
	ErrOpen = errors.New("decryption failed (wrong key or tampered data)")
)

// DeriveKey stretches an operator-supplied seed into a 32-byte AES-256 key.
func DeriveKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

// Seal encrypts plaintext with key and returns hex(nonce || ciphertext).
func Seal(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// Open reverses Seal.
func Open(sealed string, key []byte) (string, error) {
	raw, err := hex.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrTooShort
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrOpen
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
