package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	keyIterations = 100000
	keyLength     = 32
)

// machine-scoped salt for the derived key; not a secret, just binds the
// ciphertext to this host and user
var keySalt = []byte("snowdash-credential-v1")

// getEncryptionKey derives an encryption key from environment or machine ID
func getEncryptionKey() []byte {
	if key := os.Getenv("SNOWDASH_ENCRYPTION_KEY"); key != "" {
		return pbkdf2.Key([]byte(key), keySalt, keyIterations, keyLength, sha256.New)
	}

	hostname, _ := os.Hostname()
	homeDir, _ := os.UserHomeDir()
	machineID := fmt.Sprintf("%s-%s-snowdash", hostname, homeDir)
	return pbkdf2.Key([]byte(machineID), keySalt, keyIterations, keyLength, sha256.New)
}

// EncryptPassword encrypts a password using AES-256-GCM
func EncryptPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}

	if IsEncrypted(password) {
		return password, nil
	}

	block, err := aes.NewCipher(getEncryptionKey())
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

	ciphertext := gcm.Seal(nonce, nonce, []byte(password), nil)
	encoded := base64.StdEncoding.EncodeToString(ciphertext)

	return fmt.Sprintf("%s%s%s", encryptedPrefix, encoded, encryptedSuffix), nil
}

// DecryptPassword decrypts a password encrypted with EncryptPassword
func DecryptPassword(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	if !IsEncrypted(encrypted) {
		return encrypted, nil
	}

	encoded := strings.TrimPrefix(encrypted, encryptedPrefix)
	encoded = strings.TrimSuffix(encoded, encryptedSuffix)

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted password: %w", err)
	}

	block, err := aes.NewCipher(getEncryptionKey())
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted checks if a string carries the encrypted marker
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}
