package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deskerrors "github.com/leasedesk/leasedesk/internal/errors"
)

func embeddingsHandler(t *testing.T, dims int, fn func(call int)) http.HandlerFunc {
	var calls int64
	return func(w http.ResponseWriter, r *http.Request) {
		call := int(atomic.AddInt64(&calls, 1))
		if fn != nil {
			fn(call)
		}
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var resp embeddingsResponse
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: vec})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestOpenAIEmbedBatchOrder(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4, nil))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "test-model"})
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
	assert.Equal(t, 4, e.Dimensions())
}

func TestOpenAIBatchSplitting(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), 2)

		var resp embeddingsResponse
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{1}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m", BatchSize: 2})
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
	assert.Equal(t, int64(3), atomic.LoadInt64(&requests))
}

func TestOpenAIRetriesThenSucceeds(t *testing.T) {
	handler := embeddingsHandler(t, 2, nil)
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		handler(w, r)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m", MaxRetries: 3})
	defer e.Close()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestOpenAIExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m", MaxRetries: 2})
	defer e.Close()

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, deskerrors.ErrCodeEmbeddingUnavailable, deskerrors.GetCode(err))
	assert.True(t, deskerrors.IsRetryable(err))
}

func TestOpenAILengthMismatchRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingsResponse{}
		resp.Data = append(resp.Data, struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}{Index: 0, Embedding: []float32{1}})
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m", MaxRetries: 1})
	defer e.Close()

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding failed")
}

func TestOpenAIEmbedAfterClose(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: "http://127.0.0.1:0", Model: "m"})
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestOpenAIEmptyBatch(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: "http://127.0.0.1:0", Model: "m"})
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
