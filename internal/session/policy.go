// Package session implements the forced sign-in that follows an expired credential.
package session

import (
	"github.com/rs/zerolog"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/ports"
)

// TitleExpired is the notification title shown when a session expires.
const TitleExpired = "session expired"

// Policy reacts to 401 failures. The HTTP client has already cleared the credential by
// the time an expired error reaches it.
type Policy struct {
	notifier  ports.Notifier
	navigator ports.Navigator
	logger    zerolog.Logger
}

// NewPolicy builds a policy; nil ports are replaced by ports.Discard.
func NewPolicy(n ports.Notifier, nav ports.Navigator, logger zerolog.Logger) Policy {
	if n == nil {
		n = ports.Discard
	}
	if nav == nil {
		nav = ports.Discard
	}
	return Policy{notifier: n, navigator: nav, logger: logger}
}

// Handle notifies and navigates to the sign-in route when err is an expired session.
// It reports whether it did so; other errors are left to the caller.
func (p Policy) Handle(err error) bool {
	if !api.IsSessionExpired(err) {
		return false
	}
	p.logger.Info().Msg("session expired; redirecting to sign-in")
	p.notifier.Notify(ports.Notification{
		Title:       TitleExpired,
		Description: err.Error(),
		Severity:    ports.SeverityDestructive,
	})
	p.navigator.Navigate(ports.LoginPath)
	return true
}
