package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/models"
)

// MinPasswordLength is the shortest password accepted by reset.
const MinPasswordLength = 6

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrMissingToken     = errors.New("token is required")
	ErrNoSessionToken   = errors.New("sign-in response carried no token")
)

// Auth is the gateway for /api/v1/auth. Its calls never carry the credential.
type Auth struct {
	client *api.Client
	store  credential.Store
}

// NewAuth creates the auth gateway. Successful sign-ins are written to store.
func NewAuth(client *api.Client, store credential.Store) *Auth {
	return &Auth{client: client, store: store}
}

// Login signs in and stores the returned token.
func (g *Auth) Login(ctx context.Context, email, password string) (models.Session, error) {
	var env models.Envelope[models.Session]
	req := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := g.post(ctx, "/login", req, &env); err != nil {
		return models.Session{}, err
	}
	if env.Data.Token == "" {
		return models.Session{}, ErrNoSessionToken
	}
	if err := g.store.Set(ctx, env.Data.Token); err != nil {
		return models.Session{}, fmt.Errorf("failed to store credential: %w", err)
	}
	return env.Data, nil
}

// Register creates an account. The returned string is the service's message.
func (g *Auth) Register(ctx context.Context, in models.RegisterRequest) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	return g.message(ctx, "/register", in)
}

// ForgotPassword requests a reset link for email.
func (g *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	return g.message(ctx, "/forgot-password", models.ForgotPasswordRequest{Email: strings.TrimSpace(email)})
}

// ResetPassword sets a new password using a reset token. Short passwords are rejected
// without a request.
func (g *Auth) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	return g.message(ctx, "/reset-password", models.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

// VerifyEmail confirms an address with the token mailed to it.
func (g *Auth) VerifyEmail(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return g.message(ctx, "/verify-email", models.VerifyEmailRequest{Token: token})
}

// Logout forgets the credential. The service has no sign-out endpoint.
func (g *Auth) Logout(ctx context.Context) error {
	return g.store.Clear(ctx)
}

func (g *Auth) message(ctx context.Context, path string, body any) (string, error) {
	var env models.Envelope[json.RawMessage]
	if err := g.post(ctx, path, body, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

func (g *Auth) post(ctx context.Context, path string, body, out any) error {
	return g.client.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "/api/v1/auth" + path,
		Body:      body,
		Anonymous: true,
	}, out)
}
