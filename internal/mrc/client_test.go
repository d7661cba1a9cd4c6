package mrc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnswer_ParsesAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is a mutex?", req.Question)
		assert.Equal(t, 2, req.TopK)

		json.NewEncoder(w).Encode(map[string]any{
			"answers": []map[string]any{
				{"text": "a lock", "score": 0.9},
				{"text": "a synchronization primitive", "score": 0.4},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL, Logger: testLogger()})
	results, err := c.Answer(context.Background(), "what is a mutex?", "a mutex is a lock", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a lock", results[0].Text)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "answer:0", results[0].ID)
	assert.Equal(t, "what is a mutex?", results[0].Title)
}

func TestAnswer_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "model not loaded"})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL, Logger: testLogger()})
	_, err := c.Answer(context.Background(), "q", "p", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestAnswer_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL, Logger: testLogger()})
	_, err := c.Answer(context.Background(), "q", "p", 1)
	require.Error(t, err)
}

func TestAnswer_DefaultTopK(t *testing.T) {
	var gotTopK int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotTopK = req.TopK
		json.NewEncoder(w).Encode(map[string]any{"answers": []any{}})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL, TopK: 5, Logger: testLogger()})
	_, err := c.Answer(context.Background(), "q", "p", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, gotTopK)
}
