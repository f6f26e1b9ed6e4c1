package auth

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/0xPratikag/clinicctl/internal/storage"
)

// ErrNotLoggedIn is returned when no usable bearer token is held.
var ErrNotLoggedIn = errors.New("not logged in (run: clinicctl login)")

// ErrExpired is returned when the held token's exp claim has passed.
var ErrExpired = errors.New("session expired (run: clinicctl login)")

// Context holds the operator's bearer token. It is set at login, cleared at
// logout and handed to the API client at construction; nothing reads the
// token from ambient state.
//
// Context implements oauth2.TokenSource.
type Context struct {
	path string

	mu  sync.RWMutex
	tok *oauth2.Token
}

// TokenFilePath returns the token file location under base.
func TokenFilePath(base string) string {
	return filepath.Join(base, "auth", "token.json")
}

// Open loads the persisted token from base, if any. A corrupt token file is
// moved aside and reported, leaving the context logged out.
func Open(base string) (*Context, error) {
	c := &Context{path: TokenFilePath(base)}
	var tok oauth2.Token
	found, err := storage.ReadJSON(c.path, &tok)
	if err != nil {
		return c, fmt.Errorf("corrupt token file (login again): %w", err)
	}
	if found && tok.AccessToken != "" {
		c.tok = &tok
	}
	return c, nil
}

// NewStatic returns an in-memory context holding token. Nothing is persisted.
func NewStatic(token string) *Context {
	c := &Context{}
	if token != "" {
		c.tok = newToken(token)
	}
	return c
}

// newToken wraps a raw bearer string, lifting the expiry out of the JWT exp
// claim when the token is a JWT. The signature is not checked; that is the
// backend's job.
func newToken(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok
}

// Set stores a new bearer token and persists it when the context is file backed.
func (c *Context) Set(raw string) error {
	if raw == "" {
		return errors.New("empty token")
	}
	tok := newToken(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != "" {
		if err := storage.WriteJSON(c.path, tok); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
	}
	c.tok = tok
	return nil
}

// Clear forgets the token and removes the persisted copy.
func (c *Context) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok = nil
	if c.path == "" {
		return nil
	}
	return storage.Remove(c.path)
}

// Token returns the held token. It satisfies oauth2.TokenSource.
func (c *Context) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tok == nil || c.tok.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	if !c.tok.Expiry.IsZero() && time.Now().After(c.tok.Expiry) {
		return nil, ErrExpired
	}
	cp := *c.tok
	return &cp, nil
}

// LoggedIn reports whether a usable token is held.
func (c *Context) LoggedIn() bool {
	_, err := c.Token()
	return err == nil
}

// Expiry returns the token expiry, zero when unknown or logged out.
func (c *Context) Expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tok == nil {
		return time.Time{}
	}
	return c.tok.Expiry
}
