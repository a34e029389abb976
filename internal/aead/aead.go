// Package aead seals credential values with AES-256-GCM under the vault's
// master key. Ciphertexts are laid out as nonce || sealed || tag.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/dtroode/credvault/internal/kdf"
	"github.com/dtroode/credvault/internal/model"
)

// Cipher encrypts and decrypts opaque payloads. Safe for concurrent use.
type Cipher struct {
	key  *kdf.MasterKey
	aead cipher.AEAD
}

// New builds a Cipher bound to key.
func New(key *kdf.MasterKey) (*Cipher, error) {
	raw := key.Bytes()
	if raw == nil {
		return nil, model.NewError(model.KindEncryption, "init cipher", "", fmt.Errorf("master key destroyed"))
	}
	defer clear(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, model.NewError(model.KindEncryption, "init cipher", "", fmt.Errorf("aes cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, model.NewError(model.KindEncryption, "init cipher", "", fmt.Errorf("gcm: %w", err))
	}
	return &Cipher{key: key, aead: gcm}, nil
}

// Overhead is the number of bytes Encrypt adds to a plaintext.
func (c *Cipher) Overhead() int {
	return c.aead.NonceSize() + c.aead.Overhead()
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if c.key.Destroyed() {
		return nil, model.NewError(model.KindEncryption, "encrypt", "", fmt.Errorf("master key destroyed"))
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, model.NewError(model.KindEncryption, "encrypt", "", fmt.Errorf("generate nonce: %w", err))
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt authenticates and opens a ciphertext produced by Encrypt. No
// plaintext is returned unless the tag verifies.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if c.key.Destroyed() {
		return nil, model.NewError(model.KindDecryption, "decrypt", "", fmt.Errorf("master key destroyed"))
	}
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize+c.aead.Overhead() {
		return nil, model.NewError(model.KindDecryption, "decrypt", "", fmt.Errorf("ciphertext too short"))
	}
	plaintext, err := c.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, model.NewError(model.KindDecryption, "decrypt", "", err)
	}
	return plaintext, nil
}
