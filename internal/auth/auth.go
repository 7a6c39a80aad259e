// Package auth reports and manages the local sign-in artifacts: the stored credential
// and, for sealed file storage, the sealing key.
package auth

import (
	"context"

	"github.com/jhorman9/elevideo/internal/config"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/crypto"
)

// Status is a snapshot of the local authentication state
type Status struct {
	SignedIn       bool   `json:"signed_in"`
	Backend        string `json:"backend"`
	Location       string `json:"location,omitempty"`
	Sealed         bool   `json:"sealed"`
	KeyPresent     bool   `json:"key_present"`
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
	BackendURL     string `json:"backend_url"`
	Error          string `json:"error,omitempty"`
}

// Artifacts locates the files that make up a file-backed sign-in.
type Artifacts struct {
	CredentialPath string
	KeyPath        string
}

// ArtifactsFor resolves the artifact locations for cfg. Non-file backends have none.
func ArtifactsFor(cfg config.Config) (Artifacts, error) {
	if cfg.Credential.Backend != config.BackendFile && cfg.Credential.Backend != "" {
		return Artifacts{}, nil
	}
	path, err := cfg.CredentialPath()
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{CredentialPath: path, KeyPath: credential.SealingKeyPath(path)}, nil
}

// GetStatus reads the credential through store and inspects the sealing key.
// The credential itself is never included.
func GetStatus(ctx context.Context, cfg config.Config, store credential.Store) Status {
	st := Status{
		Backend:    cfg.Credential.Backend,
		Sealed:     cfg.Credential.Seal,
		BackendURL: cfg.BackendURL,
	}
	if st.Backend == "" {
		st.Backend = config.BackendFile
	}

	switch st.Backend {
	case config.BackendRedis:
		st.Location = cfg.Credential.RedisAddr + "/" + cfg.Credential.RedisKey
	case config.BackendFile:
		if a, err := ArtifactsFor(cfg); err == nil {
			st.Location = a.CredentialPath
			if crypto.KeyExists(a.KeyPath) {
				st.KeyPresent = true
				if key, err := crypto.LoadKey(a.KeyPath); err == nil {
					st.KeyFingerprint = key.Fingerprint()
				}
			}
		}
	}

	token, err := store.Get(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.SignedIn = token != ""
	return st
}
