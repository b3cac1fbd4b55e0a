package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptionSalt   = "queuecast-store-v1"
	keySize          = 32
	nonceSize        = 12
	pbkdf2Iterations = 100000

	envEnableEncryption = "QUEUECAST_ENABLE_ENCRYPTION"
	envEncryptionSecret = "QUEUECAST_ENCRYPTION_SECRET"
)

// encryptor seals whole persisted documents with AES-GCM. With encryption
// disabled it passes bytes through untouched.
type encryptor struct {
	gcm cipher.AEAD
}

func newEncryptor() (*encryptor, error) {
	if !isEncryptionEnabled() {
		return &encryptor{gcm: nil}, nil
	}

	key, err := deriveKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) encryptIfEnabled(plaintext []byte) ([]byte, error) {
	if e.gcm == nil {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Nonce is prepended to the ciphertext for storage
	return append(nonce, e.gcm.Seal(nil, nonce, plaintext, nil)...), nil
}

func (e *encryptor) decryptIfEnabled(data []byte) ([]byte, error) {
	if e.gcm == nil {
		return data, nil
	}

	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func deriveKey() ([]byte, error) {
	secret := os.Getenv(envEncryptionSecret)
	if secret == "" {
		return nil, fmt.Errorf("%s environment variable is required when encryption is enabled", envEncryptionSecret)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("encryption secret must be at least 32 characters long")
	}

	return pbkdf2.Key([]byte(secret), []byte(encryptionSalt), pbkdf2Iterations, keySize, sha256.New), nil
}

func isEncryptionEnabled() bool {
	return os.Getenv(envEnableEncryption) == "true"
}
