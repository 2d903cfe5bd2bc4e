// Package client is a Go client for the mess API. Every authenticated call
// takes the caller's auth.Session explicitly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hostelmess/internal/auth"
	"hostelmess/internal/guard"
)

// ErrNoSession is returned, without a request being sent, when an
// authenticated call is made with an empty or expired session.
var ErrNoSession = errors.New("not signed in or session expired")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status of an *APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client talks to one API base URL.
type Client struct {
	base  string
	http  *http.Client
	guard *guard.Memory
	now   func() time.Time
}

// New creates a client. hc defaults to a client with a 15s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  hc,
		guard: guard.NewMemory(),
		now:   time.Now,
	}
}

func (c *Client) do(ctx context.Context, sess *auth.Session, method, path string, query url.Values, in, out any) error {
	if sess != nil && !sess.Valid(c.now()) {
		return ErrNoSession
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sessionFromToken reads the subject, role and expiry from token without
// verifying it; the server remains the authority on validity.
func sessionFromToken(token string) (auth.Session, error) {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return auth.Session{}, fmt.Errorf("reading token: %w", err)
	}
	sess := auth.Session{Subject: claims.Subject, Role: claims.Role, Name: claims.Name, Token: token}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
