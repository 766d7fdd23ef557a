// Package crypto seals short text values (message bodies) at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks values written by AesGcmService. Values without it are
// treated as plaintext so rows written before a key was configured stay readable.
const sealedPrefix = "enc:v1:"

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Service interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NewService returns an AES-GCM service for a 64-hex-char key, or a
// passthrough service when the key is empty.
func NewService(hexKey string) (Service, error) {
	if hexKey == "" {
		return Passthrough{}, nil
	}
	return NewAesGcmService(hexKey)
}

// Passthrough stores values unchanged.
type Passthrough struct{}

func (Passthrough) Encrypt(plaintext string) (string, error) { return plaintext, nil }

func (Passthrough) Decrypt(ciphertext string) (string, error) {
	if strings.HasPrefix(ciphertext, sealedPrefix) {
		return "", errors.New("value is encrypted but no key is configured")
	}
	return ciphertext, nil
}

type AesGcmService struct {
	gcm cipher.AEAD
}

func NewAesGcmService(hexKey string) (*AesGcmService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AesGcmService{gcm: gcm}, nil
}

func (c *AesGcmService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext || tag
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *AesGcmService) Decrypt(ciphertext string) (string, error) {
	encoded, ok := strings.CutPrefix(ciphertext, sealedPrefix)
	if !ok {
		return ciphertext, nil
	}

	buffer, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(buffer) < nonceSize+c.gcm.Overhead() {
		return "", ErrCiphertextTooShort
	}

	nonce, cipherBytes := buffer[:nonceSize], buffer[nonceSize:]
	plainBytes, err := c.gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plainBytes), nil
}
