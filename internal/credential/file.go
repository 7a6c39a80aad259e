package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/jhorman9/elevideo/internal/crypto"
)

// document is the on-disk form of the credential file
type document struct {
	Token   string    `json:"token,omitempty"`
	Sealed  []byte    `json:"sealed,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// FileStore persists the credential in a single owner-only JSON file.
// With a key path set, the token is sealed before it touches the disk.
type FileStore struct {
	path    string
	keyPath string
	logger  zerolog.Logger
	mu      sync.Mutex
}

// FileOption configures a FileStore
type FileOption func(*FileStore)

// WithSealingKey seals the stored token with the key file at path.
func WithSealingKey(path string) FileOption {
	return func(s *FileStore) { s.keyPath = path }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) FileOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the credential file location
func (s *FileStore) Path() string { return s.path }

// Sealed reports whether tokens are sealed at rest
func (s *FileStore) Sealed() bool { return s.keyPath != "" }

// Get loads the credential. A missing file, or a sealed file that can no longer be
// opened, reads as no credential so the user is asked to sign in again.
func (s *FileStore) Get(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to decode credential file: %w", err)
	}

	if len(doc.Sealed) == 0 {
		return doc.Token, nil
	}
	if s.keyPath == "" {
		s.logger.Warn().Str("path", s.path).Msg("credential is sealed but sealing is disabled; ignoring it")
		return "", nil
	}
	key, err := crypto.LoadKey(s.keyPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sealing key unavailable; ignoring stored credential")
		return "", nil
	}
	token, err := crypto.OpenCredential(key, doc.Sealed)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored credential could not be opened; ignoring it")
		return "", nil
	}
	return token, nil
}

// Set saves the credential atomically, replacing any previous one
func (s *FileStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{SavedAt: time.Now().UTC()}
	if s.keyPath != "" {
		key, err := s.loadOrCreateKey()
		if err != nil {
			return err
		}
		sealed, err := crypto.SealCredential(key, token)
		if err != nil {
			return fmt.Errorf("failed to seal credential: %w", err)
		}
		doc.Sealed = sealed
	} else {
		doc.Token = token
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. A missing file is not an error.
func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// Exists reports whether a credential file is present, without opening it
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *FileStore) loadOrCreateKey() (crypto.SealingKey, error) {
	if crypto.KeyExists(s.keyPath) {
		return crypto.LoadKey(s.keyPath)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveKey(s.keyPath, key); err != nil {
		return nil, err
	}
	s.logger.Info().Str("path", s.keyPath).Msg("generated credential sealing key")
	return key, nil
}
