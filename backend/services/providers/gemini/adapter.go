package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthscope/symptom-checker/backend/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
)

// GeminiAdapter implements the Provider interface for the Gemini REST API
type GeminiAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config providers.ProviderConfig) *GeminiAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GeminiAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return "gemini"
}

// Complete sends the system directive and user message to Gemini and returns
// the first candidate's text. The primary model is tried first; when it is
// rejected outright the fallback model gets one chance.
func (a *GeminiAdapter) Complete(ctx context.Context, system, user string) (string, error) {
	text, err := a.generate(ctx, a.config.Model, system, user)
	if err == nil {
		return text, nil
	}

	if a.config.FallbackModel != "" && isModelRejected(err) {
		return a.generate(ctx, a.config.FallbackModel, system, user)
	}

	return "", err
}

// IsAvailable checks if the provider is currently available
func (a *GeminiAdapter) IsAvailable(ctx context.Context) bool {
	url := fmt.Sprintf("%s/models?key=%s", a.config.BaseURL, a.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// generate performs one generateContent call with retries on transient failures
func (a *GeminiAdapter) generate(ctx context.Context, model, system, user string) (string, error) {
	geminiReq := a.buildGenerateRequest(system, user)

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.config.BaseURL, model, a.config.APIKey)

	// Execute request with retry logic
	var httpResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(a.config.RetryDelay * time.Duration(attempt))
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(string(reqBody)))
		if err != nil {
			return "", providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range a.config.Headers {
			httpReq.Header.Set(k, v)
		}

		httpResp, lastErr = a.httpClient.Do(httpReq)
		if lastErr == nil && httpResp.StatusCode < 500 {
			break
		}
		if attempt == a.config.MaxRetries {
			// out of retries; keep the body open so the error response
			// can still be parsed below
			break
		}

		if httpResp != nil {
			httpResp.Body.Close()
		}
	}

	if lastErr != nil {
		return "", providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, lastErr)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var geminiResp GenerateContentResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	return extractText(&geminiResp, a.Name())
}

// buildGenerateRequest converts the system/user pair to the Gemini wire format
func (a *GeminiAdapter) buildGenerateRequest(system, user string) *GenerateContentRequest {
	req := &GenerateContentRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: user}},
			},
		},
	}
	if system != "" {
		req.SystemInstruction = &Content{
			Parts: []Part{{Text: system}},
		}
	}
	return req
}

// handleErrorResponse handles Gemini error responses
func (a *GeminiAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", string(body), statusCode, false, err)
	}

	retryable := statusCode >= 500 || statusCode == 429

	return providers.NewProviderError(
		a.Name(),
		errResp.Error.Status,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Message),
	)
}

// extractText pulls the first candidate's text out of the response
func extractText(resp *GenerateContentResponse, providerName string) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", providers.NewProviderError(providerName, "EMPTY_RESPONSE", "No candidates in response", 0, false, nil)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// isModelRejected reports whether the error indicates the model itself was
// refused (unknown model, no access) rather than a transient failure.
func isModelRejected(err error) bool {
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	return provErr.StatusCode == http.StatusNotFound || provErr.StatusCode == http.StatusForbidden
}

// Gemini-specific request/response types

type GenerateContentRequest struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
	Contents          []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
