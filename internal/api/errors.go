package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/0xPratikag/clinicctl/internal/auth"
)

// ErrNotLoggedIn is returned before any request when no token is held.
var ErrNotLoggedIn = auth.ErrNotLoggedIn

// Error is a non-2xx response from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string // server-provided message, "" when the body had none
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status, Body: body}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Error
		}
	}
	return e
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// UserMessage renders err for an operator notification: the server's message
// verbatim when it sent one, the login hint for auth failures, else fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if errors.Is(err, auth.ErrNotLoggedIn) || errors.Is(err, auth.ErrExpired) {
		return errors.Cause(err).Error()
	}
	return fallback
}
