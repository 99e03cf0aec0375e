package sqlite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12
)

// loadOrGenerateKey loads the AES key from disk, generating one when absent.
func loadOrGenerateKey(keyPath string) ([]byte, error) {
	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != keySize {
			return nil, fmt.Errorf("key file %s has invalid size %d", keyPath, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("could not create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("could not write key file: %w", err)
	}

	return key, nil
}

// EncryptPayload serializes and encrypts a payload with AES-GCM, prefixing
// the result with the nonce.
func (s *Store) EncryptPayload(payload map[string]interface{}) ([]byte, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal payload: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return append(nonce, aead.Seal(nil, nonce, plaintext, nil)...), nil
}

// DecryptPayload reverses EncryptPayload.
func (s *Store) DecryptPayload(encrypted []byte) (map[string]interface{}, error) {
	if len(encrypted) <= nonceSize {
		return nil, fmt.Errorf("encrypted payload too short")
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create gcm: %w", err)
	}

	plaintext, err := aead.Open(nil, encrypted[:nonceSize], encrypted[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt payload: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("could not unmarshal payload: %w", err)
	}
	return payload, nil
}

// anonymizedUserID generates an anonymized 8 hex char user id per record.
func anonymizedUserID() (string, error) {
	random := make([]byte, 16)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("could not generate user id: %w", err)
	}
	sum := sha256.Sum256(random)
	return hex.EncodeToString(sum[:])[:8], nil
}

// embeddingDigest is the stored fingerprint of a context embedding, the raw
// vector never leaves the process.
func embeddingDigest(embedding []byte) string {
	sum := sha256.Sum256(embedding)
	return hex.EncodeToString(sum[:])[:16]
}
