package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Credentials identify an operator at the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// loginResp accepts the token under either of the names the backend uses.
type loginResp struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

// LoginError is a login the server answered with a non-2xx status.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string { return e.Message }

// Rejected reports whether the server refused the credentials themselves,
// as opposed to failing.
func (e *LoginError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// Login posts the credentials to <loginURL>/login and returns the bearer token.
// The caller stores it with Context.Set.
func Login(ctx context.Context, httpClient *http.Client, loginURL string, creds Credentials) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("encoding login request: %w", err)
	}

	endpoint := strings.TrimRight(loginURL, "/") + "/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var lr loginResp
	decodeErr := json.NewDecoder(resp.Body).Decode(&lr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := lr.Message
		if msg == "" {
			msg = lr.Error
		}
		if msg == "" {
			msg = "Login failed"
		}
		return "", &LoginError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding login response: %w", decodeErr)
	}

	tok := lr.Token
	if tok == "" {
		tok = lr.AccessToken
	}
	if tok == "" {
		return "", errors.New("login response carried no token")
	}
	return tok, nil
}
