package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Default configuration values.
const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultMaxTokens     = 4096
	defaultTimeout       = 60 * time.Second
	defaultBaseBackoff   = 1 * time.Second
	defaultBurst         = 5 // allow short request bursts within the per-minute budget
)

// Prompt size limits. When the combined stage-two prompt would exceed
// maxPromptChars, the scope table is cut to maxScopeChars and marked
// truncated.
const (
	maxPromptChars = 50000
	maxScopeChars  = 30000
)

const analysisPromptTemplate = `Analyze the following document and extract all products and their associated features.

Document content:
%s

Please provide the output in a structured format as a table with exactly 2 columns:
1. Product
2. Features

Format the output as a JSON array of objects, where each object has "product" and "features" keys.
Example format:
[
  {"product": "Product Name 1", "features": "Feature 1, Feature 2, Feature 3"},
  {"product": "Product Name 2", "features": "Feature A, Feature B"}
]

Only return the JSON array, no additional text.`

const estimationPromptTemplate = `You are an estimator. Based on the products and features extracted, and the scope configuration provided, estimate the size and development hours for each product-feature combination.

Products and Features extracted:
%s

Scope Configuration (sample):
%s

Please provide the output as a JSON array of objects with 4 columns:
1. Product
2. Features
3. Size (estimated size based on the scope config: X-Small, Small, Medium, Large, or X-Large)
4. Hours (estimated development hours based on the scope config - provide a numeric value)

Format:
[
  {"product": "Product Name 1", "features": "Feature 1, Feature 2", "size": "Small/Medium/Large or specific size", "hours": 8},
  {"product": "Product Name 2", "features": "Feature A, Feature B", "size": "Medium", "hours": 12}
]

Important: Extract the hours from the scope configuration based on the size. If the scope config shows dev hours for different sizes, match the hours to the estimated size. Return numeric values for hours.

Only return the JSON array, no additional text.`

// modelClient is the completion surface shared by the remote providers.
type modelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Models(ctx context.Context) (api.ModelsResponse, error)
}

// llmProvider prompts a remote model for both stages and parses its
// JSON replies.
type llmProvider struct {
	name        string
	client      modelClient
	maxDocChars int
}

func (p *llmProvider) Name() string { return p.name }

// Analyze extracts product/feature pairs from document text.
func (p *llmProvider) Analyze(ctx context.Context, document string) ([]Finding, error) {
	if p.maxDocChars > 0 && len(document) > p.maxDocChars {
		document = document[:p.maxDocChars]
	}

	reply, err := p.client.Complete(ctx, fmt.Sprintf(analysisPromptTemplate, document))
	if err != nil {
		return nil, err
	}

	var findings []Finding
	if err := json.Unmarshal([]byte(stripFences(reply)), &findings); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return findings, nil
}

// Estimate sizes each finding against the scope config.
func (p *llmProvider) Estimate(ctx context.Context, findings []Finding, scope Scope) ([]api.ResultRow, error) {
	products, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode findings: %w", err)
	}

	table := scope.Table
	if len(products)+len(table) > maxPromptChars {
		if len(table) > maxScopeChars {
			table = table[:maxScopeChars]
		}
		table += "\n... (truncated for size)"
	}

	reply, err := p.client.Complete(ctx, fmt.Sprintf(estimationPromptTemplate, products, table))
	if err != nil {
		return nil, err
	}

	var rows []estimateRow
	if err := json.Unmarshal([]byte(stripFences(reply)), &rows); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	results := make([]api.ResultRow, len(rows))
	for i, row := range rows {
		results[i] = api.ResultRow{
			Product:  row.Product,
			Features: row.Features,
			Size:     row.Size,
			Hours:    row.Hours.value,
		}
	}
	return results, nil
}

// Models lists the models the provider can run on.
func (p *llmProvider) Models(ctx context.Context) (api.ModelsResponse, error) {
	return p.client.Models(ctx)
}

// estimateRow is the estimation stage's expected reply element.
type estimateRow struct {
	Product  string    `json:"product"`
	Features string    `json:"features"`
	Size     string    `json:"size"`
	Hours    flexHours `json:"hours"`
}

// flexHours tolerates the hour shapes models actually produce: a
// number, a numeric string, null, or something unusable like "N/A".
// Anything non-numeric decodes to no estimate rather than failing the
// whole response.
type flexHours struct {
	value *float64
}

func (h *flexHours) UnmarshalJSON(data []byte) error {
	// Unmarshal treats null as a no-op for numeric targets, so it has
	// to be caught before the number path.
	if string(data) == "null" {
		h.value = nil
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		h.value = &n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			h.value = &v
		}
		return nil
	}

	h.value = nil
	return nil
}

// stripFences removes a markdown code fence wrapper from a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if parts := strings.Split(s, "```"); len(parts) > 1 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(s)
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
