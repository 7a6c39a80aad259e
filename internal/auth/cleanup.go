package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/crypto"
)

// CleanupResult represents the result of a cleanup operation
type CleanupResult struct {
	CredentialCleared bool
	KeyRemoved        bool
	Errors            []string
}

// String returns a human-readable summary of the cleanup result
func (cr *CleanupResult) String() string {
	var b strings.Builder
	b.WriteString("Cleanup summary:\n")
	if cr.CredentialCleared {
		b.WriteString("  ✓ credential removed\n")
	}
	if cr.KeyRemoved {
		b.WriteString("  ✓ sealing key removed\n")
	}
	if len(cr.Errors) > 0 {
		b.WriteString("  Warnings:\n")
		for _, e := range cr.Errors {
			fmt.Fprintf(&b, "    - %s\n", e)
		}
	}
	if !cr.CredentialCleared && !cr.KeyRemoved && len(cr.Errors) == 0 {
		b.WriteString("  No artifacts found to remove\n")
	}
	return b.String()
}

// Err collapses the warnings into one error, or nil.
func (cr *CleanupResult) Err() error {
	if len(cr.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup completed with errors: %s", strings.Join(cr.Errors, "; "))
}

// CleanupOptions selects what Cleanup removes besides the credential.
type CleanupOptions struct {
	Artifacts  Artifacts
	RemoveKey  bool
	SecureWipe bool // overwrite the credential file before removal
}

// Cleanup clears the stored credential and optionally the sealing key.
func Cleanup(ctx context.Context, store credential.Store, opts CleanupOptions) *CleanupResult {
	result := &CleanupResult{}

	if opts.SecureWipe && opts.Artifacts.CredentialPath != "" {
		if err := wipeFile(opts.Artifacts.CredentialPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to wipe credential: %v", err))
		}
	}

	if err := store.Clear(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to clear credential: %v", err))
	} else {
		result.CredentialCleared = true
	}

	if opts.RemoveKey && opts.Artifacts.KeyPath != "" && crypto.KeyExists(opts.Artifacts.KeyPath) {
		if err := crypto.RemoveKey(opts.Artifacts.KeyPath); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.KeyRemoved = true
		}
	}
	return result
}

// wipeFile overwrites a file's bytes with random data in place.
func wipeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, info.Size())
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	if _, err := f.WriteAt(buf, 0); err != nil {
		return err
	}
	return f.Sync()
}
