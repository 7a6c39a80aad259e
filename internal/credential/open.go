package credential

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jhorman9/elevideo/internal/config"
)

// Open builds the store selected by cfg.Credential.Backend.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Credential.Backend {
	case config.BackendMemory:
		return NewMemoryStore(""), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr: cfg.Credential.RedisAddr,
			Key:  cfg.Credential.RedisKey,
		}, logger)
	case config.BackendFile, "":
		path, err := cfg.CredentialPath()
		if err != nil {
			return nil, err
		}
		opts := []FileOption{WithLogger(logger)}
		if cfg.Credential.Seal {
			opts = append(opts, WithSealingKey(SealingKeyPath(path)))
		}
		return NewFileStore(path, opts...), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Credential.Backend)
	}
}

// SealingKeyPath returns the key file that sits next to the credential file.
func SealingKeyPath(credentialPath string) string {
	return filepath.Join(filepath.Dir(credentialPath), config.SealingKeyFile)
}
