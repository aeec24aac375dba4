package estimate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/docparse"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Service runs the full pipeline for one project.
type Service struct {
	provider Provider
	logger   *logging.Logger
}

// NewService creates a pipeline service on the given provider.
func NewService(provider Provider, logger *logging.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Provider exposes the configured provider, for the models endpoint.
func (s *Service) Provider() Provider { return s.provider }

// Run estimates the document against the scope config.
//
// Stage errors carry an "analysis stage:" or "estimation stage:"
// prefix; the server stores that message on the failed project.
func (s *Service) Run(ctx context.Context, documentPath, scopePath string) ([]api.ResultRow, error) {
	document, err := docparse.Extract(documentPath)
	if err != nil {
		return nil, fmt.Errorf("analysis stage: %w", err)
	}
	s.logger.Debug(ctx, "document extracted",
		zap.String("path", documentPath),
		zap.Int("chars", len(document)))

	findings, err := s.provider.Analyze(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("analysis stage: %w", err)
	}
	s.logger.Info(ctx, "analysis stage complete",
		zap.Int("findings", len(findings)))

	scope, err := loadScope(scopePath)
	if err != nil {
		return nil, fmt.Errorf("estimation stage: %w", err)
	}

	rows, err := s.provider.Estimate(ctx, findings, scope)
	if err != nil {
		return nil, fmt.Errorf("estimation stage: %w", err)
	}
	s.logger.Info(ctx, "estimation stage complete",
		zap.String("provider", s.provider.Name()),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// loadScope reads the scope sheet in both shapes providers need.
func loadScope(path string) (Scope, error) {
	table, err := scopecfg.LoadTable(path)
	if err != nil {
		return Scope{}, err
	}
	hours, err := scopecfg.SizeHours(path)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Table: table, SizeHours: hours}, nil
}

var _ Provider = (*llmProvider)(nil)
