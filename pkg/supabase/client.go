// Package supabase is a minimal client for the Supabase auth REST API. It is
// the identity provider for the service: every core operation is gated
// behind a bearer token this client can resolve to a user.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrUnauthorized is returned when a token does not resolve to a user.
var ErrUnauthorized = eris.New("supabase: not authenticated")

// User is an authenticated identity.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Client talks to the Supabase auth endpoints.
type Client interface {
	SignUp(ctx context.Context, email, password, nombre string) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	anonKey string
	http    *http.Client
}

// NewClient creates a Supabase auth client for the given project URL and
// anon key.
func NewClient(baseURL, anonKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		anonKey: anonKey,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SignUp(ctx context.Context, email, password, nombre string) error {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"nombre": nombre},
	}
	resp, raw, err := c.post(ctx, "/auth/v1/signup", body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("supabase: signup: %s", errorMessage(resp.StatusCode, raw))
	}
	return nil
}

func (c *httpClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	resp, raw, err := c.post(ctx, "/auth/v1/token?grant_type=password", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Wrapf(ErrUnauthorized, "signin: %s", errorMessage(resp.StatusCode, raw))
	}

	var payload struct {
		AccessToken string   `json:"access_token"`
		User        authUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, eris.Wrap(err, "supabase: unmarshal session")
	}
	if payload.AccessToken == "" {
		return nil, eris.Wrap(ErrUnauthorized, "signin: no access token returned")
	}
	return &Session{
		AccessToken: payload.AccessToken,
		User:        payload.User.toUser(),
	}, nil
}

func (c *httpClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, eris.Wrap(err, "supabase: create user request")
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "supabase: get user")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "supabase: read user response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnauthorized
	}

	var payload authUser
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, eris.Wrap(err, "supabase: unmarshal user")
	}
	u := payload.toUser()
	return &u, nil
}

type authUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Nombre string `json:"nombre"`
		Name   string `json:"name"`
	} `json:"user_metadata"`
}

func (a authUser) toUser() User {
	nombre := a.UserMetadata.Nombre
	if nombre == "" {
		nombre = a.UserMetadata.Name
	}
	return User{ID: a.ID, Email: a.Email, Nombre: nombre}
}

func (c *httpClient) post(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "supabase: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, eris.Wrap(err, "supabase: create request")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "supabase: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "supabase: read response")
	}
	return resp, raw, nil
}

func (c *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
}

// errorMessage digs a human-readable reason out of a Supabase error payload.
func errorMessage(status int, raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range []string{"msg", "error_description", "error"} {
			if v, ok := payload[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
