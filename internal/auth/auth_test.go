package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/0xPratikag/clinicctl/internal/auth"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestContextLifecycle(t *testing.T) {
	base := t.TempDir()

	c, err := auth.Open(base)
	if err != nil {
		t.Fatalf("Open on empty base: %v", err)
	}
	if c.LoggedIn() {
		t.Fatal("fresh context reports LoggedIn")
	}
	if _, err := c.Token(); !errors.Is(err, auth.ErrNotLoggedIn) {
		t.Errorf("Token() error = %v, want ErrNotLoggedIn", err)
	}

	if err := c.Set("opaque-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tok, err := c.Token()
	if err != nil {
		t.Fatalf("Token after Set: %v", err)
	}
	if tok.AccessToken != "opaque-token" || tok.Type() != "Bearer" {
		t.Errorf("Token = %q/%q, want opaque-token/Bearer", tok.AccessToken, tok.Type())
	}

	// A second Open sees the persisted token.
	reopened, err := auth.Open(base)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	if !reopened.LoggedIn() {
		t.Error("re-opened context lost the token")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.LoggedIn() {
		t.Error("context still logged in after Clear")
	}
	if _, err := os.Stat(auth.TokenFilePath(base)); !os.IsNotExist(err) {
		t.Error("token file still present after Clear")
	}
}

func TestContextJWTExpiry(t *testing.T) {
	c := auth.NewStatic(signedToken(t, time.Now().Add(-time.Minute)))
	if _, err := c.Token(); !errors.Is(err, auth.ErrExpired) {
		t.Errorf("Token() error = %v, want ErrExpired", err)
	}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	fresh := auth.NewStatic(signedToken(t, exp))
	if !fresh.LoggedIn() {
		t.Fatal("unexpired JWT reported as logged out")
	}
	if !fresh.Expiry().Equal(exp) {
		t.Errorf("Expiry = %v, want %v", fresh.Expiry(), exp)
	}
}

func TestOpenCorruptTokenFile(t *testing.T) {
	base := t.TempDir()
	path := auth.TokenFilePath(base)
	if err := os.MkdirAll(base+"/auth", 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := auth.Open(base)
	if err == nil {
		t.Fatal("expected error for corrupt token file")
	}
	if c == nil || c.LoggedIn() {
		t.Error("corrupt token file must leave a logged-out context")
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var creds auth.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		w.Header().Set("Content-Type", "application/json")
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-123","role":"` + creds.Role + `"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	tok, err := auth.Login(ctx, srv.Client(), srv.URL+"/", auth.Credentials{Email: "a@b.c", Password: "secret", Role: "superadmin"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok != "tok-123" {
		t.Errorf("Login token = %q, want tok-123", tok)
	}

	_, err = auth.Login(ctx, srv.Client(), srv.URL, auth.Credentials{Email: "a@b.c", Password: "wrong"})
	if err == nil || err.Error() != "Invalid credentials" {
		t.Errorf("Login with bad password error = %v, want server message", err)
	}
	var lerr *auth.LoginError
	if !errors.As(err, &lerr) || lerr.Status != http.StatusUnauthorized || !lerr.Rejected() {
		t.Errorf("Login with bad password error = %#v, want rejected 401", err)
	}
}

func TestLoginErrorRejected(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		e := &auth.LoginError{Status: tt.status, Message: "x"}
		if got := e.Rejected(); got != tt.want {
			t.Errorf("LoginError{%d}.Rejected() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
