// internal/common/auth/tokens_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "hireflow/internal/common/errors"
)

func newTestTokenClient(t *testing.T, handler http.Handler) *TokenClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTokenClient(server.URL, "client-1", "secret", 5*time.Second)
}

func TestStatus(t *testing.T) {
	t.Run("token issued", func(t *testing.T) {
		client := newTestTokenClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "/oauth/status", r.URL.Path)
			assert.Equal(t, "client-1", r.Form.Get("client_id"))
			assert.Equal(t, "rep-1", r.Form.Get("subject_id"))
			json.NewEncoder(w).Encode(tokenStatusResponse{Issued: true, AccessToken: "token-1", ExpiresIn: 3600})
		}))

		token, expiresAt, issued, err := client.Status(context.Background(), "rep-1")
		require.NoError(t, err)
		assert.True(t, issued)
		assert.Equal(t, "token-1", token)
		assert.NotEmpty(t, expiresAt)
	})

	t.Run("token pending is not an error", func(t *testing.T) {
		client := newTestTokenClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(tokenStatusResponse{Issued: false})
		}))

		token, _, issued, err := client.Status(context.Background(), "rep-1")
		require.NoError(t, err)
		assert.False(t, issued)
		assert.Empty(t, token)
	})

	t.Run("endpoint failure is unavailable", func(t *testing.T) {
		client := newTestTokenClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, _, _, err := client.Status(context.Background(), "rep-1")
		assert.True(t, stderrors.IsUnavailable(err))
	})
}

func TestAuthorizationURL(t *testing.T) {
	client := NewTokenClient("https://hr.example.com", "client-1", "secret", time.Second)
	link := client.AuthorizationURL("rep-1")
	assert.Contains(t, link, "https://hr.example.com/oauth/authorize?")
	assert.Contains(t, link, "client_id=client-1")
	assert.Contains(t, link, "state=rep-1")
}
