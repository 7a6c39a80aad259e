package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

const pemType = "ELEVIDEO SEALING KEY"

// ErrInvalidKeyLength is returned for key files that do not hold a 32-byte key.
var ErrInvalidKeyLength = errors.New("invalid key length")

// SealingKey is the local secret used to seal the stored credential.
type SealingKey []byte

// GenerateKey creates a new random sealing key
func GenerateKey() (SealingKey, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	return key, nil
}

// SaveKey atomically writes the key in PEM format with owner-only permissions
func SaveKey(path string, key SealingKey) error {
	if len(key) != chacha20poly1305.KeySize {
		return ErrInvalidKeyLength
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: key})
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save sealing key: %w", err)
	}
	return nil
}

// LoadKey reads a key written by SaveKey
func LoadKey(path string) (SealingKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemType {
		return nil, fmt.Errorf("failed to decode PEM block in %s", path)
	}
	if len(block.Bytes) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeyLength
	}
	return SealingKey(block.Bytes), nil
}

// KeyExists checks if the key file exists
func KeyExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveKey deletes the key file. A missing file is not an error.
func RemoveKey(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sealing key: %w", err)
	}
	return nil
}

// Fingerprint returns a short, non-secret identifier for the key
func (k SealingKey) Fingerprint() string {
	sum := sha256.Sum256(k)
	return hex.EncodeToString(sum[:8])
}
