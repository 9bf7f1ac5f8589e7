package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid fallback config",
			config: Config{Dimensions: 384},
		},
		{
			name:   "valid remote config",
			config: Config{BaseURL: "http://localhost:8081", Model: "all-MiniLM-L6-v2", Dimensions: 384},
		},
		{
			name:    "zero dimensions",
			config:  Config{Dimensions: 0},
			wantErr: true,
		},
		{
			name:    "negative dimensions",
			config:  Config{Dimensions: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.config, nil, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Dimensions, svc.Dimensions())
		})
	}
}

func TestService_Embed_Fallback(t *testing.T) {
	svc, err := NewService(Config{Dimensions: 384}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, svc.FallbackActive())

	ctx := context.Background()

	first, err := svc.Embed(ctx, "persistent headache and fever")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "persistent headache and fever")
	require.NoError(t, err)

	assert.Equal(t, first, second, "fallback embeddings must be deterministic")
	assert.Len(t, first, 384)

	other, err := svc.Embed(ctx, "sore throat")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestHashVector(t *testing.T) {
	t.Run("values in unit interval", func(t *testing.T) {
		vec := HashVector("some symptom text", 384)
		require.Len(t, vec, 384)
		for i, v := range vec {
			assert.GreaterOrEqual(t, v, float32(0.0), "index %d", i)
			assert.LessOrEqual(t, v, float32(1.0), "index %d", i)
		}
	})

	t.Run("pads beyond digest length with zeros", func(t *testing.T) {
		vec := HashVector("abc", 64)
		require.Len(t, vec, 64)
		// sha256 yields 32 bytes, so everything past index 31 is padding
		for i := 32; i < 64; i++ {
			assert.Equal(t, float32(0.0), vec[i])
		}
	})

	t.Run("truncates to small dimensions", func(t *testing.T) {
		full := HashVector("abc", 32)
		short := HashVector("abc", 8)
		require.Len(t, short, 8)
		assert.Equal(t, full[:8], short)
	})
}

func TestService_Embed_Remote(t *testing.T) {
	vector := make([]float32, 4)
	for i := range vector {
		vector[i] = float32(i) * 0.25
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"headache"}, req.Input)

		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: vector}},
		})
	}))
	defer server.Close()

	svc, err := NewService(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "all-MiniLM-L6-v2",
		Dimensions: 4,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, svc.FallbackActive())

	vec, err := svc.Embed(context.Background(), "headache")
	require.NoError(t, err)
	assert.Equal(t, vector, vec)
}

func TestService_Embed_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Dimensions: 4}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "headache")
	assert.Error(t, err)
}

func TestService_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{0.1, 0.2}}},
		})
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Dimensions: 4}, nil, zap.NewNop())
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "headache")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0, 0}, vec)
}

type mapCache struct {
	entries map[string][]float32
	sets    int
}

func (c *mapCache) Get(ctx context.Context, key string) ([]float32, bool) {
	vec, ok := c.entries[key]
	return vec, ok
}

func (c *mapCache) Set(ctx context.Context, key string, vec []float32) {
	c.entries[key] = vec
	c.sets++
}

func TestService_Embed_UsesCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{0.5, 0.5}}},
		})
	}))
	defer server.Close()

	cache := &mapCache{entries: make(map[string][]float32)}
	svc, err := NewService(Config{BaseURL: server.URL, Model: "m", Dimensions: 2}, cache, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Embed(ctx, "headache")
	require.NoError(t, err)
	_, err = svc.Embed(ctx, "headache")
	require.NoError(t, err)

	assert.Equal(t, 1, requests, "second call should be served from cache")
	assert.Equal(t, 1, cache.sets)
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, ContentKey("text", "model-a"), ContentKey("text", "model-a"))
	assert.NotEqual(t, ContentKey("text", "model-a"), ContentKey("text", "model-b"))
	assert.NotEqual(t, ContentKey("text", "model-a"), ContentKey("other", "model-a"))
}
