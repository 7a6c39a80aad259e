// Package api talks to the Elevideo HTTP/JSON service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jhorman9/elevideo/internal/credential"
	xlog "github.com/jhorman9/elevideo/internal/log"
	"github.com/jhorman9/elevideo/internal/version"
)

const (
	headerRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
)

// Client issues requests against one Elevideo base URL and attaches the stored credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credential.Store
	logger     zerolog.Logger
	timeout    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a whole-request timeout. Zero keeps the platform default (none).
// The timeout applies to a copy, so a client passed to WithHTTPClient is left as is.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. store may be nil, in which case no credential is ever attached.
func New(baseURL string, store credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(),
		store:      store,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// NewHTTPClient returns an http.Client whose transport is traced with OpenTelemetry.
func NewHTTPClient() *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{
		Transport: otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "elevideo " + r.Method + " " + r.URL.Path
			}),
		),
	}
}

// BaseURL returns the normalised base URL
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient exposes the underlying HTTP client for callers that fetch outside the API,
// such as the liveness pinger or downloads of secure URLs.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Request describes one JSON call.
type Request struct {
	Method string
	Path   string
	Body   any
	// Anonymous requests carry no credential, and a 401 is reported as an ordinary failure.
	Anonymous bool
	Header    http.Header
}

// Get makes a GET request
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post makes a POST request
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put makes a PUT request
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete makes a DELETE request
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes a successful response into out.
//
// out is left untouched for 204 and empty responses. A *string receives the raw body of
// non-JSON responses. A nil out discards the payload.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, requestID, err := c.newRequest(ctx, req.Method, req.Path, body)
	if err != nil {
		return err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if !req.Anonymous {
		if err := c.authorize(ctx, httpReq); err != nil {
			return err
		}
	}

	status, respBody, header, err := c.send(httpReq, requestID)
	if err != nil {
		return err
	}

	if status < 200 || status > 299 {
		return c.fail(ctx, status, respBody, requestID, req.Anonymous)
	}
	return decodeSuccess(status, header, respBody, out, requestID)
}

// newRequest builds an http.Request with the headers every call carries.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, string, error) {
	requestID := xlog.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("User-Agent", version.UserAgent())
	return httpReq, requestID, nil
}

// authorize attaches the bearer credential when the store holds one.
func (c *Client) authorize(ctx context.Context, httpReq *http.Request) error {
	if c.store == nil {
		return nil
	}
	token, err := c.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// send performs the round trip and reads the whole body.
func (c *Client) send(httpReq *http.Request, requestID string) (int, []byte, http.Header, error) {
	logger := c.logger.With().
		Str(xlog.FieldRequestID, requestID).
		Str(xlog.FieldMethod, httpReq.Method).
		Str(xlog.FieldPath, httpReq.URL.Path).
		Logger()

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observeRequest(httpReq.Method, 0, started)
		logger.Debug().Err(err).Msg("request failed")
		return 0, nil, nil, transportError(err, requestID)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	observeRequest(httpReq.Method, resp.StatusCode, started)
	if err != nil {
		logger.Debug().Err(err).Int(xlog.FieldStatus, resp.StatusCode).Msg("reading response failed")
		return 0, nil, nil, transportError(fmt.Errorf("failed to read response: %w", err), requestID)
	}

	logger.Debug().
		Int(xlog.FieldStatus, resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("request completed")
	return resp.StatusCode, data, resp.Header, nil
}

// fail turns a non-2xx response into an *Error. A 401 on an authenticated request clears
// the credential before returning.
func (c *Client) fail(ctx context.Context, status int, body []byte, requestID string, anonymous bool) error {
	if status == http.StatusUnauthorized && !anonymous {
		c.expireSession(ctx)
		return sessionExpired(requestID)
	}
	apiErr := remoteError(status, body, requestID)
	if status == http.StatusUnauthorized {
		apiErr.sentinel = ErrRemote
	}
	return apiErr
}

func (c *Client) expireSession(ctx context.Context) {
	sessionExpiredTotal.Inc()
	if c.store == nil {
		return
	}
	// the credential must go even when the caller's context is already done
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear expired credential")
		return
	}
	c.logger.Info().Msg("session expired; credential cleared")
}

func decodeSuccess(status int, header http.Header, body []byte, out any, requestID string) error {
	if status == http.StatusNoContent || header.Get("Content-Length") == "0" || len(body) == 0 {
		return nil
	}
	if out == nil {
		return nil
	}

	if isJSON(header.Get("Content-Type")) {
		if s, ok := out.(*string); ok {
			*s = string(body)
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return transportError(fmt.Errorf("failed to decode response: %w", err), requestID)
		}
		return nil
	}

	if s, ok := out.(*string); ok {
		*s = string(body)
	}
	return nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, contentTypeJSON)
	}
	return mediaType == contentTypeJSON || strings.HasSuffix(mediaType, "+json")
}
