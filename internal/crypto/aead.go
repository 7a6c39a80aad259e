package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrCiphertextTooShort is returned when a sealed payload cannot hold a nonce and tag.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// credentialInfo binds derived keys to their single use.
var credentialInfo = []byte("elevideo credential v1")

// Encrypt encrypts plaintext using the provided AEAD cipher and associated data.
// The random nonce is prepended to the output.
func Encrypt(aead cipher.AEAD, plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt expects nonce-prefixed ciphertext and returns plaintext or an error.
func Decrypt(aead cipher.AEAD, in, aad []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(in) < ns+aead.Overhead() {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrCiphertextTooShort, len(in), ns+aead.Overhead())
	}
	nonce, ciphertext := in[:ns], in[ns:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("aead.Open failed: %w", err)
	}
	return plaintext, nil
}

// DeriveAEAD derives an XChaCha20-Poly1305 cipher from key material using HKDF-SHA256.
func DeriveAEAD(key, salt, info []byte) (cipher.AEAD, error) {
	hk := hkdf.New(sha256.New, key, salt, info)
	aeadKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hk, aeadKey); err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(aeadKey)
}

// SealCredential encrypts a bearer credential under the sealing key.
func SealCredential(key SealingKey, token string) ([]byte, error) {
	aead, err := DeriveAEAD(key, nil, credentialInfo)
	if err != nil {
		return nil, err
	}
	return Encrypt(aead, []byte(token), credentialInfo)
}

// OpenCredential reverses SealCredential.
func OpenCredential(key SealingKey, sealed []byte) (string, error) {
	aead, err := DeriveAEAD(key, nil, credentialInfo)
	if err != nil {
		return "", err
	}
	plain, err := Decrypt(aead, sealed, credentialInfo)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
