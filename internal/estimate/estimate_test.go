package estimate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// fakeProvider records pipeline inputs and replays canned outputs.
type fakeProvider struct {
	findings    []Finding
	rows        []api.ResultRow
	analyzeErr  error
	estimateErr error

	gotDocument string
	gotFindings []Finding
	gotScope    Scope
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Analyze(ctx context.Context, document string) ([]Finding, error) {
	f.gotDocument = document
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.findings, nil
}

func (f *fakeProvider) Estimate(ctx context.Context, findings []Finding, scope Scope) ([]api.ResultRow, error) {
	f.gotFindings = findings
	f.gotScope = scope
	if f.estimateErr != nil {
		return nil, f.estimateErr
	}
	return f.rows, nil
}

func (f *fakeProvider) Models(ctx context.Context) (api.ModelsResponse, error) {
	return api.ModelsResponse{Provider: "fake"}, nil
}

func writePipelineFixtures(t *testing.T) (docPath, scopePath string) {
	t.Helper()
	dir := t.TempDir()

	docPath = filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(docPath, []byte("Product: Portal\n- Login\n"), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	scopePath = filepath.Join(dir, "scope.csv")
	if err := os.WriteFile(scopePath, []byte("Size,Dev Hours\nSmall,8\n"), 0o644); err != nil {
		t.Fatalf("Failed to write scope config: %v", err)
	}
	return docPath, scopePath
}

// TestService_Run tests the full pipeline over real files.
func TestService_Run(t *testing.T) {
	provider := &fakeProvider{
		findings: []Finding{{Product: "Portal", Features: "Login"}},
		rows: []api.ResultRow{
			{Product: "Portal", Features: "Login", Size: "Small", Hours: api.Float(8)},
		},
	}
	service := NewService(provider, logging.NewTestLogger().Logger)
	docPath, scopePath := writePipelineFixtures(t)

	rows, err := service.Run(context.Background(), docPath, scopePath)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rows) != 1 || rows[0].Size != "Small" {
		t.Errorf("Run() rows = %+v", rows)
	}
	if !strings.Contains(provider.gotDocument, "Product: Portal") {
		t.Errorf("provider document = %q, want file content", provider.gotDocument)
	}
	if len(provider.gotFindings) != 1 || provider.gotFindings[0].Product != "Portal" {
		t.Errorf("provider findings = %+v", provider.gotFindings)
	}
	if !strings.Contains(provider.gotScope.Table, "Dev Hours") {
		t.Errorf("provider scope table = %q", provider.gotScope.Table)
	}
	if provider.gotScope.SizeHours["small"] != 8 {
		t.Errorf("provider scope hours = %v", provider.gotScope.SizeHours)
	}
}

// TestService_Run_MissingDocument tests the analysis stage prefix on
// extraction failures.
func TestService_Run_MissingDocument(t *testing.T) {
	service := NewService(&fakeProvider{}, logging.NewTestLogger().Logger)
	_, scopePath := writePipelineFixtures(t)

	_, err := service.Run(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), scopePath)
	if err == nil || !strings.HasPrefix(err.Error(), "analysis stage:") {
		t.Errorf("Run() error = %v, want analysis stage prefix", err)
	}
}

// TestService_Run_AnalyzeError tests the analysis stage prefix on
// provider failures.
func TestService_Run_AnalyzeError(t *testing.T) {
	provider := &fakeProvider{analyzeErr: fmt.Errorf("model unavailable")}
	service := NewService(provider, logging.NewTestLogger().Logger)
	docPath, scopePath := writePipelineFixtures(t)

	_, err := service.Run(context.Background(), docPath, scopePath)
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if !strings.HasPrefix(err.Error(), "analysis stage:") || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("Run() error = %v", err)
	}
}

// TestService_Run_ScopeError tests the estimation stage prefix on
// unreadable scope configs.
func TestService_Run_ScopeError(t *testing.T) {
	service := NewService(&fakeProvider{}, logging.NewTestLogger().Logger)
	docPath, _ := writePipelineFixtures(t)

	xlsPath := filepath.Join(t.TempDir(), "scope.xls")
	if err := os.WriteFile(xlsPath, []byte("legacy"), 0o644); err != nil {
		t.Fatalf("Failed to write scope config: %v", err)
	}

	_, err := service.Run(context.Background(), docPath, xlsPath)
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if !strings.HasPrefix(err.Error(), "estimation stage:") || !strings.Contains(err.Error(), ".xls") {
		t.Errorf("Run() error = %v", err)
	}
}

// TestService_Run_EstimateError tests the estimation stage prefix on
// provider failures.
func TestService_Run_EstimateError(t *testing.T) {
	provider := &fakeProvider{
		findings:    []Finding{{Product: "Portal"}},
		estimateErr: fmt.Errorf("quota exhausted"),
	}
	service := NewService(provider, logging.NewTestLogger().Logger)
	docPath, scopePath := writePipelineFixtures(t)

	_, err := service.Run(context.Background(), docPath, scopePath)
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if !strings.HasPrefix(err.Error(), "estimation stage:") || !strings.Contains(err.Error(), "quota exhausted") {
		t.Errorf("Run() error = %v", err)
	}
}

// TestNew tests provider construction per configured provider.
func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EstimatorConfig
		wantName string
	}{
		{
			name:     "heuristic",
			cfg:      config.EstimatorConfig{Provider: config.ProviderHeuristic},
			wantName: config.ProviderHeuristic,
		},
		{
			name: "gemini",
			cfg: config.EstimatorConfig{
				Provider: config.ProviderGemini,
				APIKey:   config.Secret("test-key"),
			},
			wantName: config.ProviderGemini,
		},
		{
			name: "openai",
			cfg: config.EstimatorConfig{
				Provider: config.ProviderOpenAI,
				APIKey:   config.Secret("sk-test123"),
			},
			wantName: config.ProviderOpenAI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.cfg, logging.NewTestLogger().Logger)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if provider.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", provider.Name(), tt.wantName)
			}
		})
	}
}

// TestNew_MissingKeyDegrades tests the fallback to heuristic when an
// LLM provider has no API key.
func TestNew_MissingKeyDegrades(t *testing.T) {
	tl := logging.NewTestLogger()

	provider, err := New(config.EstimatorConfig{Provider: config.ProviderGemini}, tl.Logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if provider.Name() != config.ProviderHeuristic {
		t.Errorf("Name() = %q, want heuristic fallback", provider.Name())
	}
	tl.AssertLogged(t, zapcore.WarnLevel, "api key not set")
}

// TestNew_UnknownProvider tests the configuration error.
func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.EstimatorConfig{Provider: "llama"}, logging.NewTestLogger().Logger)
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("New() error = %v, want unknown provider", err)
	}
}
