// internal/ai/client_test.go
package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/common/logger"
)

func newTestAIClient(t *testing.T, maxRetries int, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&Config{BaseURL: server.URL, APIKey: "key-1", MaxRetries: maxRetries}, logger.NewTestLogger(t))
}

func TestDeriveCriteria(t *testing.T) {
	t.Run("returns criteria", func(t *testing.T) {
		client := newTestAIClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/screening/criteria", r.URL.Path)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "We need a backend engineer.", body["description"])

			json.NewEncoder(w).Encode(map[string]interface{}{"criteria": []string{"go", "5 years backend"}})
		}))

		criteria, err := client.DeriveCriteria(context.Background(), "We need a backend engineer.")
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "5 years backend"}, criteria)
	})

	t.Run("empty criteria is a failure", func(t *testing.T) {
		client := newTestAIClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"criteria": []string{}})
		}))

		_, err := client.DeriveCriteria(context.Background(), "desc")
		assert.ErrorIs(t, err, ErrModelFailed)
	})
}

func TestScoreApplication(t *testing.T) {
	client := newTestAIClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/screening/score", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"score":     82.5,
			"verdict":   "strong match",
			"strengths": []string{"relevant experience"},
			"concerns":  []string{"no team lead experience"},
		})
	}))

	analysis, err := client.ScoreApplication(context.Background(), "desc", []string{"go"}, map[string]interface{}{"id": "resume-1"})
	require.NoError(t, err)
	assert.Equal(t, 82.5, analysis.FinalScore)
	assert.Equal(t, "strong match", analysis.Verdict)
	assert.NotEmpty(t, analysis.EvaluatedAt)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestAIClient(t, 2, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"criteria": []string{"go"}})
	}))

	criteria, err := client.DeriveCriteria(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, criteria)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExhaustedRetriesFail(t *testing.T) {
	client := newTestAIClient(t, 1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.DeriveCriteria(context.Background(), "desc")
	assert.ErrorIs(t, err, ErrModelFailed)
}
