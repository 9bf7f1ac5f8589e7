package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the embedding backend configuration. An empty BaseURL selects
// the deterministic hash fallback for every request.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Service produces embedding vectors for text. A remote backend is used when
// configured; otherwise every vector comes from the hash fallback so the rest
// of the pipeline keeps working without semantic quality.
type Service struct {
	config     Config
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
}

// NewService creates an embedding service. Dimensions must be positive.
func NewService(cfg Config, cache Cache, logger *zap.Logger) (*Service, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Service{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     logger,
	}, nil
}

// Dimensions returns the configured vector width.
func (s *Service) Dimensions() int {
	return s.config.Dimensions
}

// FallbackActive reports whether no remote backend is configured.
func (s *Service) FallbackActive() bool {
	return s.config.BaseURL == ""
}

// Embed returns the embedding vector for text. With no backend configured the
// deterministic fallback is used and no error is returned. Errors from a live
// backend are surfaced to the caller; they are transient, not a reason to
// silently change embedding spaces.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.FallbackActive() {
		return HashVector(text, s.config.Dimensions), nil
	}

	cacheKey := ContentKey(text, s.config.Model)
	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, cacheKey); ok {
			return vec, nil
		}
	}

	vec, err := s.embedRemote(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, vec)
	}

	return vec, nil
}

// embedRemote calls the OpenAI-style /embeddings endpoint.
func (s *Service) embedRemote(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{
		Model: s.config.Model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := strings.TrimSuffix(s.config.BaseURL, "/") + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding backend returned %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
	}

	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("embedding backend returned no vectors")
	}

	vec := embResp.Data[0].Embedding
	if len(vec) != s.config.Dimensions {
		s.logger.Warn("embedding dimension mismatch",
			zap.Int("expected", s.config.Dimensions),
			zap.Int("got", len(vec)))
		vec = fitDimensions(vec, s.config.Dimensions)
	}

	return vec, nil
}

// fitDimensions pads with zeros or truncates to the target width.
func fitDimensions(vec []float32, dims int) []float32 {
	if len(vec) == dims {
		return vec
	}
	if len(vec) > dims {
		return vec[:dims]
	}
	out := make([]float32, dims)
	copy(out, vec)
	return out
}

// OpenAI-style wire types

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}
