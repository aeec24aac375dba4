package estimate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Finding is one product/feature pair from the analysis stage.
type Finding struct {
	Product  string `json:"product"`
	Features string `json:"features"`
}

// Scope carries the scope config in the two shapes providers consume.
type Scope struct {
	// Table is the sheet rendered as aligned text for prompts.
	Table string
	// SizeHours maps lowercased size names to hours when the sheet has
	// both columns. Empty otherwise.
	SizeHours map[string]float64
}

// Provider implements the two pipeline stages.
type Provider interface {
	// Name reports the provider id used in logs and the models endpoint.
	Name() string

	// Analyze extracts product/feature pairs from document text.
	Analyze(ctx context.Context, document string) ([]Finding, error)

	// Estimate sizes each finding against the scope config.
	Estimate(ctx context.Context, findings []Finding, scope Scope) ([]api.ResultRow, error)

	// Models lists the models the provider can run on.
	Models(ctx context.Context) (api.ModelsResponse, error)
}

// New creates a provider based on configuration.
//
// A gemini or openai provider without an API key logs a warning and
// degrades to heuristic instead of failing.
func New(cfg config.EstimatorConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderHeuristic:
		return newHeuristicProvider(cfg)

	case config.ProviderGemini:
		if !cfg.APIKey.IsSet() {
			logger.Warn(context.Background(), "api key not set, falling back to heuristic estimation",
				zap.String("provider", cfg.Provider))
			return newHeuristicProvider(cfg)
		}
		return &llmProvider{
			name:        config.ProviderGemini,
			client:      newGeminiClient(cfg, logger),
			maxDocChars: cfg.MaxDocumentChars,
		}, nil

	case config.ProviderOpenAI:
		if !cfg.APIKey.IsSet() {
			logger.Warn(context.Background(), "api key not set, falling back to heuristic estimation",
				zap.String("provider", cfg.Provider))
			return newHeuristicProvider(cfg)
		}
		return &llmProvider{
			name:        config.ProviderOpenAI,
			client:      newOpenAIClient(cfg, logger),
			maxDocChars: cfg.MaxDocumentChars,
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
