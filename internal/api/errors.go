package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// Sentinel errors for errors.Is checks by callers.
	ErrSessionExpired = errors.New("session expired")
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("access forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrRemote         = errors.New("remote service error")
	ErrTransport      = errors.New("transport failure")
	ErrNotSignedIn    = errors.New("not signed in")
)

// SessionExpiredMessage is the message of every 401 failure on an authenticated request.
const SessionExpiredMessage = "session expired"

// FieldError is one per-field message sent by the backend.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors keeps the backend's field messages in the order they appeared on the wire.
type FieldErrors []FieldError

// Get returns the message for field, if any.
func (fe FieldErrors) Get(field string) (string, bool) {
	for _, f := range fe {
		if f.Field == field {
			return f.Message, true
		}
	}
	return "", false
}

// Map returns the field messages keyed by field name.
func (fe FieldErrors) Map() map[string]string {
	if len(fe) == 0 {
		return nil
	}
	m := make(map[string]string, len(fe))
	for _, f := range fe {
		m[f.Field] = f.Message
	}
	return m
}

// Join renders "field: msg, field: msg".
func (fe FieldErrors) Join() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, ", ")
}

// UnmarshalJSON accepts either an object of field → message, decoded in document order,
// or a list of {field, message} objects.
func (fe *FieldErrors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*fe = nil
		return nil
	}

	if data[0] == '[' {
		var list []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		out := make(FieldErrors, 0, len(list))
		for _, item := range list {
			out = append(out, FieldError{Field: item.Field, Message: item.Message})
		}
		*fe = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fieldErrors: expected object, got %v", tok)
	}

	var out FieldErrors
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			// non-string values are kept in their JSON form
			msg = string(raw)
		}
		out = append(out, FieldError{Field: key, Message: msg})
	}
	*fe = out
	return nil
}

// Error is the uniform failure produced by the client and the gateways.
type Error struct {
	Status      int         // HTTP status; 0 for transport failures
	Message     string      // Human message shown to the user
	Remote      string      // Message field of the response body, "" when absent
	FieldErrors FieldErrors // Per-field messages in wire order
	RequestID   string
	Err         error // Underlying cause (net.Error, decode error)

	sentinel error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.sentinel.Error()
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds an Error for status, classified by SentinelFor.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message, sentinel: SentinelFor(status)}
}

// WithMessage returns a copy of e carrying message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// SentinelFor maps an HTTP status onto the error taxonomy.
func SentinelFor(status int) error {
	switch {
	case status == 0:
		return ErrTransport
	case status == http.StatusUnauthorized:
		return ErrSessionExpired
	case status == http.StatusBadRequest:
		return ErrValidation
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrRemote
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsSessionExpired reports whether err is the 401 of an authenticated request.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// errorBody is the JSON shape of backend failures.
type errorBody struct {
	Message     string      `json:"message"`
	Error       string      `json:"error"`
	FieldErrors FieldErrors `json:"fieldErrors"`
}

// parseErrorBody extracts message and field errors; undecodable bodies yield the zero value.
func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	if len(bytes.TrimSpace(body)) == 0 {
		return eb
	}
	if err := json.Unmarshal(body, &eb); err != nil {
		return errorBody{}
	}
	return eb
}

// remoteError classifies a non-2xx response of an ordinary request.
func remoteError(status int, body []byte, requestID string) *Error {
	eb := parseErrorBody(body)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{
		Status:      status,
		Message:     msg,
		Remote:      eb.Message,
		FieldErrors: eb.FieldErrors,
		RequestID:   requestID,
		sentinel:    SentinelFor(status),
	}
}

func sessionExpired(requestID string) *Error {
	return &Error{
		Status:    http.StatusUnauthorized,
		Message:   SessionExpiredMessage,
		RequestID: requestID,
		sentinel:  ErrSessionExpired,
	}
}

func transportError(err error, requestID string) *Error {
	return &Error{
		Message:   err.Error(),
		RequestID: requestID,
		Err:       err,
		sentinel:  ErrTransport,
	}
}
