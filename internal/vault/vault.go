// Package vault encrypts and decrypts mailbox credentials with AES-256-GCM.
// Accounts store only ciphertext; the key never leaves process memory.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

// Vault holds the symmetric key used for credential encryption
type Vault struct {
	key []byte
}

// New creates a vault from a 32-byte key
func New(key string) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(key))
	}
	return &Vault{key: []byte(key)}, nil
}

// Encrypt encrypts a credential using AES-256-GCM
func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a credential previously produced by Encrypt
func (v *Vault) Decrypt(encrypted string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Credentials returns the decrypted mailbox login pair for an account.
// Failure here aborts that account's poll cycle only.
func (v *Vault) Credentials(account *models.Account) (user, password string, err error) {
	user, err = v.Decrypt(account.IMAPUser)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt IMAP user: %w", err)
	}
	password, err = v.Decrypt(account.IMAPPassword)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt IMAP password: %w", err)
	}
	return user, password, nil
}
