package estimate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// geminiModelCandidates are tried in order when the models listing is
// unavailable.
var geminiModelCandidates = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-001",
	"gemini-1.5-flash-002",
	"gemini-1.5-pro",
	"gemini-1.5-pro-001",
	"gemini-1.5-pro-002",
	"gemini-pro",
	"gemini-2.0-flash-exp",
	"gemini-2.5-flash",
}

// geminiClient calls the Generative Language REST API.
type geminiClient struct {
	model      string // override; empty means auto-select per request
	apiKey     string `json:"-"` // Never serialize API keys
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *logging.Logger
}

// newGeminiClient creates a Gemini client from estimator config.
func newGeminiClient(cfg config.EstimatorConfig, logger *logging.Logger) *geminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout.Duration()
	}

	return &geminiClient{
		model:   cfg.Model,
		apiKey:  cfg.APIKey.Value(),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), defaultBurst),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// geminiRequest represents the generateContent request body.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// geminiContent is one conversation turn.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a text fragment within a turn.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse represents the generateContent response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// geminiError represents an error response.
type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// geminiModel is one entry of the models listing.
type geminiModel struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

func (m geminiModel) supportsGeneration() bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

// shortName strips the "models/" resource prefix.
func (m geminiModel) shortName() string {
	if i := strings.LastIndex(m.Name, "/"); i >= 0 {
		return m.Name[i+1:]
	}
	return m.Name
}

// Complete generates a completion from the given prompt.
//
// The model is selected per request unless an override is configured,
// and transient failures (429, 5xx, transport errors) are retried with
// exponential backoff.
func (g *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	// Wait for rate limiter
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	model := g.model
	if model == "" {
		model = g.selectModel(ctx)
	}

	g.logger.Trace(ctx, "model request",
		zap.String("provider", "gemini"),
		zap.String("model", model),
		zap.String("prompt", prompt))

	// Make request with retries
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := g.doGenerate(ctx, model, prompt)
		if err == nil {
			g.logger.Trace(ctx, "model response",
				zap.String("provider", "gemini"),
				zap.String("model", model),
				zap.String("response", response))
			return response, nil
		}

		lastErr = err
		// Check if error is retryable
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doGenerate performs the actual HTTP request to the generateContent
// endpoint.
func (g *geminiClient) doGenerate(ctx context.Context, model, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	// Handle server errors (retryable)
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp geminiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// selectModel picks a model from the live listing: the first flash
// model, else the first pro/gemini model, else the first generation-
// capable one. When the listing is unavailable the first known
// candidate is assumed.
func (g *geminiClient) selectModel(ctx context.Context) string {
	models, err := g.listModels(ctx)
	if err != nil {
		g.logger.Debug(ctx, "model listing failed, using first candidate",
			zap.String("model", geminiModelCandidates[0]),
			zap.Error(err))
		return geminiModelCandidates[0]
	}

	var available []string
	for _, m := range models {
		if !m.supportsGeneration() {
			continue
		}
		name := m.shortName()
		available = append(available, name)

		if strings.Contains(strings.ToLower(name), "flash") {
			return name
		}
	}

	for _, name := range available {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "pro") || strings.Contains(lower, "gemini") {
			return name
		}
	}

	if len(available) > 0 {
		return available[0]
	}
	return geminiModelCandidates[0]
}

// listModels fetches the models listing.
func (g *geminiClient) listModels(ctx context.Context) ([]geminiModel, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/v1beta/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp geminiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var listing struct {
		Models []geminiModel `json:"models"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return listing.Models, nil
}

// Models lists generation-capable models plus the one selection would
// pick right now.
func (g *geminiClient) Models(ctx context.Context) (api.ModelsResponse, error) {
	models, err := g.listModels(ctx)
	if err != nil {
		return api.ModelsResponse{}, err
	}

	var infos []api.ModelInfo
	for _, m := range models {
		if !m.supportsGeneration() {
			continue
		}
		infos = append(infos, api.ModelInfo{
			Name:    m.shortName(),
			Methods: m.SupportedGenerationMethods,
		})
	}

	selected := g.model
	if selected == "" {
		selected = g.selectModel(ctx)
	}

	return api.ModelsResponse{
		Provider:        config.ProviderGemini,
		AvailableModels: infos,
		SelectedModel:   selected,
	}, nil
}

var _ modelClient = (*geminiClient)(nil)
