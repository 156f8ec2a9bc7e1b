package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@sol.es", body["email"])

		w.Write([]byte(`{
			"access_token": "token-123",
			"user": {"id": "u1", "email": "ana@sol.es", "user_metadata": {"nombre": "Ana"}}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	session, err := client.SignIn(context.Background(), "ana@sol.es", "secret")
	require.NoError(t, err)
	assert.Equal(t, "token-123", session.AccessToken)
	assert.Equal(t, "Ana", session.User.Nombre)
}

func TestSignIn_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_description":"Invalid login credentials"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	_, err := client.SignIn(context.Background(), "ana@sol.es", "wrong")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnauthorized))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		w.Write([]byte(`{"id": "u1", "email": "ana@sol.es", "user_metadata": {"name": "Ana P"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	user, err := client.GetUser(context.Background(), "token-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	// falls back to the generic name claim when nombre is absent
	assert.Equal(t, "Ana P", user.Nombre)
}

func TestGetUser_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"msg":"invalid JWT"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	_, err := client.GetUser(context.Background(), "expired")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnauthorized))
}

func TestSignUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		meta, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Ana", meta["nombre"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "u1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	require.NoError(t, client.SignUp(context.Background(), "ana@sol.es", "secret", "Ana"))
}
