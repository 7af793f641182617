package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrKeySize          = errors.New("mfa: encryption key must be 32 bytes")
	ErrDecryptionFailed = errors.New("mfa: decryption failed")
)

// SecretBox encrypts TOTP secrets at rest with AES-256-GCM. The nonce is
// prepended to the ciphertext and the whole value is base64url encoded.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox returns a SecretBox for the given 32-byte key.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretBox{aead: aead}, nil
}

// Seal encrypts plaintext.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (b *SecretBox) Open(encrypted string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(raw) < b.aead.NonceSize() {
		return "", ErrDecryptionFailed
	}
	nonce, ciphertext := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
