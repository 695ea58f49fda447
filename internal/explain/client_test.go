package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad"
)

func TestClient_Explain(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "integrate term by term"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	text, err := c.Explain(context.Background(), "explain x^2")
	require.NoError(t, err)
	assert.Equal(t, "integrate term by term", text)
	assert.Equal(t, "explain x^2", got.Prompt)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "quota exceeded"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Explain(context.Background(), "p")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Explain(context.Background(), "p")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_FallbackThroughKernel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	req := goquad.ExplainRequest{Expr: "x", A: 0, B: 1, Value: 0.5, Intervals: 2}
	text := goquad.Explain(context.Background(), NewClient(srv.URL, time.Second), req)
	assert.Equal(t, goquad.ExplainUnavailable, text)
}
