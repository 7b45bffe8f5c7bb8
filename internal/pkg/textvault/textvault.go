// Package textvault encrypts journal text at rest. Entries store only
// ciphertext; plaintext exists in memory for the duration of a request.
package textvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/gabrielonicala/quillia/internal/pkg/env"
)

// Vault seals and opens journal text. Implementations must be safe for
// concurrent use.
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type aesVault struct {
	aead cipher.AEAD
}

// New creates a vault from a 32-byte key.
func New(key []byte) (Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("textvault: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aesVault{aead: aead}, nil
}

// NewFromEnv derives the vault key from TEXT_VAULT_KEY. The raw value is
// hashed so operators can use any passphrase.
func NewFromEnv() (Vault, error) {
	secret := env.GetEnv("TEXT_VAULT_KEY", "")
	if secret == "" {
		return nil, errors.New("textvault: TEXT_VAULT_KEY is not set")
	}
	key := sha256.Sum256([]byte(secret))
	return New(key[:])
}

func (v *aesVault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *aesVault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("textvault: decode: %w", err)
	}
	if len(raw) < v.aead.NonceSize() {
		return "", errors.New("textvault: ciphertext too short")
	}
	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("textvault: open: %w", err)
	}
	return string(plain), nil
}
