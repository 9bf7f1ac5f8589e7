package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/healthscope/symptom-checker/backend/services/providers"
)

func TestNewGeminiAdapter(t *testing.T) {
	config := providers.ProviderConfig{
		APIKey: "test-key",
	}

	adapter := NewGeminiAdapter(config)

	if adapter == nil {
		t.Fatal("NewGeminiAdapter() returned nil")
	}

	if adapter.Name() != "gemini" {
		t.Errorf("Name() = %s, want gemini", adapter.Name())
	}

	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}

	if adapter.config.Model != defaultModel {
		t.Errorf("Model = %s, want %s", adapter.config.Model, defaultModel)
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func generateResponse(text string) GenerateContentResponse {
	return GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{{Text: text}},
				},
				FinishReason: "STOP",
			},
		},
	}
}

func TestGeminiAdapter_Complete(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-1.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req GenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 {
			t.Error("system instruction missing")
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Error("user content missing")
		}

		_ = json.NewEncoder(w).Encode(generateResponse("CONDITIONS:\n1. Tension headache"))
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-1.5-flash",
	})

	text, err := adapter.Complete(context.Background(), "analyze symptoms", "headache")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if !strings.Contains(text, "Tension headache") {
		t.Errorf("Complete() = %q, want condition text", text)
	}
}

func TestGeminiAdapter_Complete_FallbackModel(t *testing.T) {
	var calls []string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		if strings.Contains(r.URL.Path, "gemini-pro:") {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(ErrorResponse{
				Error: ErrorDetail{Code: 404, Message: "model not found", Status: "NOT_FOUND"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse("fallback reply"))
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		Model:         "gemini-pro",
		FallbackModel: "gemini-1.5-flash-8b",
	})

	text, err := adapter.Complete(context.Background(), "", "headache")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if text != "fallback reply" {
		t.Errorf("Complete() = %q, want fallback reply", text)
	}

	if len(calls) != 2 {
		t.Errorf("expected 2 calls (primary then fallback), got %d", len(calls))
	}
}

func TestGeminiAdapter_Complete_RetryOnServerError(t *testing.T) {
	attempts := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse("recovered"))
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "gemini-1.5-flash",
		MaxRetries: 2,
	})

	text, err := adapter.Complete(context.Background(), "", "headache")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if text != "recovered" {
		t.Errorf("Complete() = %q, want recovered", text)
	}

	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestGeminiAdapter_Complete_PersistentServerError(t *testing.T) {
	attempts := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error: ErrorDetail{Code: 503, Message: "backend overloaded", Status: "UNAVAILABLE"},
		})
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "gemini-1.5-flash",
		MaxRetries: 2,
	})

	_, err := adapter.Complete(context.Background(), "", "headache")
	if err == nil {
		t.Fatal("expected error")
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	// the final attempt's body must still be readable so the provider's
	// own error message survives
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", provErr.StatusCode)
	}
	if provErr.Message != "backend overloaded" {
		t.Errorf("Message = %q, want provider error text", provErr.Message)
	}
	if !providers.IsRetryable(err) {
		t.Error("503 should be retryable")
	}
}

func TestGeminiAdapter_Complete_ErrorResponse(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error: ErrorDetail{Code: 429, Message: "quota exceeded", Status: "RESOURCE_EXHAUSTED"},
		})
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-1.5-flash",
	})

	_, err := adapter.Complete(context.Background(), "", "headache")
	if err == nil {
		t.Fatal("expected error")
	}

	if !providers.IsRetryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestGeminiAdapter_Complete_EmptyCandidates(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(GenerateContentResponse{})
	})

	adapter := NewGeminiAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-1.5-flash",
	})

	_, err := adapter.Complete(context.Background(), "", "headache")
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
