package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/crypto"
)

// RollbackAction represents a single rollback action
type RollbackAction struct {
	Name          string
	Action        func() error
	CriticalError bool // If true, rollback stops at this action's failure
}

// RollbackManager undoes the artifacts of a failed sign-in in reverse order.
type RollbackManager struct {
	actions []RollbackAction
	out     io.Writer
}

// NewRollbackManager creates a rollback manager. Progress goes to out; nil is silent.
func NewRollbackManager(out io.Writer) *RollbackManager {
	if out == nil {
		out = io.Discard
	}
	return &RollbackManager{out: out}
}

// Len returns the number of registered actions
func (rm *RollbackManager) Len() int { return len(rm.actions) }

// AddAction adds a rollback action
func (rm *RollbackManager) AddAction(name string, action func() error, critical bool) {
	rm.actions = append(rm.actions, RollbackAction{Name: name, Action: action, CriticalError: critical})
}

// AddCredentialRollback clears the credential just stored.
func (rm *RollbackManager) AddCredentialRollback(ctx context.Context, store credential.Store) {
	rm.AddAction("Clear stored credential", func() error {
		return store.Clear(context.WithoutCancel(ctx))
	}, false)
}

// AddKeyRollback removes a sealing key created during sign-in.
func (rm *RollbackManager) AddKeyRollback(path string) {
	rm.AddAction("Remove sealing key", func() error {
		return crypto.RemoveKey(path)
	}, false)
}

// Execute performs all rollback actions, last added first.
func (rm *RollbackManager) Execute() error {
	if len(rm.actions) == 0 {
		return nil
	}
	fmt.Fprintf(rm.out, "Performing rollback (%d actions)...\n", len(rm.actions))

	var warnings []error
	for i := len(rm.actions) - 1; i >= 0; i-- {
		action := rm.actions[i]
		fmt.Fprintf(rm.out, "  %s...", action.Name)

		err := action.Action()
		switch {
		case err == nil:
			fmt.Fprintln(rm.out, " ✓")
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintln(rm.out, " (already cleaned)")
		case action.CriticalError:
			fmt.Fprintln(rm.out, " FAILED (critical)")
			return fmt.Errorf("critical rollback failure: %s failed: %w", action.Name, err)
		default:
			fmt.Fprintln(rm.out, " FAILED (non-critical)")
			warnings = append(warnings, fmt.Errorf("%s failed: %w", action.Name, err))
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintf(rm.out, "Rollback completed with %d warnings\n", len(warnings))
		return errors.Join(warnings...)
	}
	fmt.Fprintln(rm.out, "Rollback completed successfully")
	return nil
}
