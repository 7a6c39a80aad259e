package session

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/ports"
	"github.com/jhorman9/elevideo/internal/ports/portstest"
)

func TestPolicy_HandlesExpiredSession(t *testing.T) {
	rec := &portstest.Recorder{}
	p := NewPolicy(rec, rec, zerolog.Nop())

	handled := p.Handle(api.NewError(http.StatusUnauthorized, api.SessionExpiredMessage))
	assert.True(t, handled)
	assert.Equal(t, []ports.Notification{{
		Title:       "session expired",
		Description: "session expired",
		Severity:    ports.SeverityDestructive,
	}}, rec.Notifications())
	assert.Equal(t, []string{"/login"}, rec.Navigations())
}

func TestPolicy_IgnoresOtherErrors(t *testing.T) {
	rec := &portstest.Recorder{}
	p := NewPolicy(rec, rec, zerolog.Nop())

	for _, err := range []error{
		api.NewError(http.StatusForbidden, "nope"),
		api.NewError(0, "dial failed"),
		errors.New("plain"),
	} {
		assert.False(t, p.Handle(err))
	}
	assert.Empty(t, rec.Notifications())
	assert.Empty(t, rec.Navigations())
}

func TestPolicy_NilPortsAreSafe(t *testing.T) {
	p := NewPolicy(nil, nil, zerolog.Nop())
	assert.True(t, p.Handle(api.NewError(http.StatusUnauthorized, "x")))
}
