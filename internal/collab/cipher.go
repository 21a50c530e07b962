package collab

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrNoKey = errors.New("no room key")

// Cipher encrypts room payloads with the symmetric key shared through the
// collaboration link. The relay only ever sees ciphertext.
type Cipher interface {
	Encrypt(plain []byte, key string) (ciphertext, iv []byte, err error)
	Decrypt(ciphertext []byte, key string, iv []byte) ([]byte, error)
}

const (
	keySize = 16
	ivSize  = 12
)

// AESGCM is AES-128-GCM keyed by a base64url (unpadded) 16-byte key.
type AESGCM struct{}

// NewKey returns a fresh random room key.
func NewKey() (string, error) {
	raw := make([]byte, keySize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (AESGCM) aead(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(raw), keySize)
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c AESGCM) Encrypt(plain []byte, key string) ([]byte, []byte, error) {
	gcm, err := c.aead(key)
	if err != nil {
		return nil, nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	return gcm.Seal(nil, iv, plain, nil), iv, nil
}

func (c AESGCM) Decrypt(ciphertext []byte, key string, iv []byte) ([]byte, error) {
	gcm, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("iv is %d bytes, want %d", len(iv), gcm.NonceSize())
	}
	plain, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
