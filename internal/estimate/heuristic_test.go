package estimate

import (
	"context"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/estimator/internal/config"
)

func newTestHeuristicProvider(t *testing.T) *heuristicProvider {
	t.Helper()
	provider, err := newHeuristicProvider(config.EstimatorConfig{Provider: config.ProviderHeuristic})
	if err != nil {
		t.Fatalf("newHeuristicProvider() error = %v", err)
	}
	return provider
}

// TestHeuristicProvider_Analyze_Structured tests extraction from
// labeled product and feature lines.
func TestHeuristicProvider_Analyze_Structured(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	document := strings.Join([]string{
		"Product: Customer Portal",
		"Features: Login, Billing history",
		"- Export to CSV",
		"",
		"Product: Reports",
		"- Usage dashboards",
	}, "\n")

	findings, err := provider.Analyze(context.Background(), document)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(findings) != 2 {
		t.Fatalf("Analyze() returned %d findings, want 2", len(findings))
	}
	if findings[0].Product != "Customer Portal" {
		t.Errorf("findings[0].Product = %q", findings[0].Product)
	}
	if findings[0].Features != "Login, Billing history, Export to CSV" {
		t.Errorf("findings[0].Features = %q", findings[0].Features)
	}
	if findings[1].Product != "Reports" || findings[1].Features != "Usage dashboards" {
		t.Errorf("findings[1] = %+v", findings[1])
	}
}

// TestHeuristicProvider_Analyze_Markdown tests extraction from
// markdown headings and numbered lists.
func TestHeuristicProvider_Analyze_Markdown(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	document := strings.Join([]string{
		"# Customer Portal",
		"- SSO login",
		"- Billing history",
		"",
		"## Admin Console",
		"1. User management",
		"2) Audit log",
	}, "\n")

	findings, err := provider.Analyze(context.Background(), document)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(findings) != 2 {
		t.Fatalf("Analyze() returned %d findings, want 2", len(findings))
	}
	if findings[0].Product != "Customer Portal" || findings[0].Features != "SSO login, Billing history" {
		t.Errorf("findings[0] = %+v", findings[0])
	}
	if findings[1].Product != "Admin Console" || findings[1].Features != "User management, Audit log" {
		t.Errorf("findings[1] = %+v", findings[1])
	}
}

// TestHeuristicProvider_Analyze_Fallback tests that a document without
// product headings collapses into a single finding.
func TestHeuristicProvider_Analyze_Fallback(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	document := strings.Join([]string{
		"",
		"Requirements overview",
		"",
		"Some introductory prose.",
		"- Export data",
		"- Email alerts",
	}, "\n")

	findings, err := provider.Analyze(context.Background(), document)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(findings) != 1 {
		t.Fatalf("Analyze() returned %d findings, want 1", len(findings))
	}
	if findings[0].Product != "Requirements overview" {
		t.Errorf("Product = %q", findings[0].Product)
	}
	if findings[0].Features != "Export data, Email alerts" {
		t.Errorf("Features = %q", findings[0].Features)
	}
}

// TestHeuristicProvider_Analyze_CRLF tests that Windows line endings do
// not leak into extracted names.
func TestHeuristicProvider_Analyze_CRLF(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	findings, err := provider.Analyze(context.Background(), "Product: Portal\r\n- Login\r\n")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(findings) != 1 || findings[0].Product != "Portal" || findings[0].Features != "Login" {
		t.Errorf("findings = %+v", findings)
	}
}

// TestHeuristicProvider_Analyze_Empty tests the no-text error.
func TestHeuristicProvider_Analyze_Empty(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	for _, document := range []string{"", "  \n\t\n"} {
		_, err := provider.Analyze(context.Background(), document)
		if err == nil || !strings.Contains(err.Error(), "no readable text") {
			t.Errorf("Analyze(%q) error = %v, want no readable text", document, err)
		}
	}
}

// TestHeuristicProvider_Analyze_TruncatesLongTitle tests the product
// name cap.
func TestHeuristicProvider_Analyze_TruncatesLongTitle(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	findings, err := provider.Analyze(context.Background(), strings.Repeat("x", 200))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(findings[0].Product) != maxProductNameLen {
		t.Errorf("Product length = %d, want %d", len(findings[0].Product), maxProductNameLen)
	}
}

// TestHeuristicProvider_Estimate tests rule-based sizing.
func TestHeuristicProvider_Estimate(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	tests := []struct {
		name      string
		finding   Finding
		wantSize  string
		wantHours float64
	}{
		{
			name:      "single feature",
			finding:   Finding{Product: "Docs", Features: "View page"},
			wantSize:  "X-Small",
			wantHours: 4,
		},
		{
			name:      "three features",
			finding:   Finding{Product: "Portal", Features: "Login, Signup, Profile"},
			wantSize:  "Medium",
			wantHours: 24,
		},
		{
			name:      "complexity term bumps up",
			finding:   Finding{Product: "Sync", Features: "External integration"},
			wantSize:  "Small",
			wantHours: 8,
		},
		{
			name:      "simplicity term bumps down",
			finding:   Finding{Product: "Brochure", Features: "Static pages, Contact form"},
			wantSize:  "X-Small",
			wantHours: 4,
		},
		{
			name:      "many features cap at the top",
			finding:   Finding{Product: "Platform", Features: "a, b, c, d, e, f, g, h, i, j"},
			wantSize:  "X-Large",
			wantHours: 160,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := provider.Estimate(context.Background(), []Finding{tt.finding}, Scope{})
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("Estimate() returned %d rows, want 1", len(rows))
			}
			if rows[0].Size != tt.wantSize {
				t.Errorf("Size = %q, want %q", rows[0].Size, tt.wantSize)
			}
			if rows[0].Hours == nil || *rows[0].Hours != tt.wantHours {
				t.Errorf("Hours = %v, want %v", rows[0].Hours, tt.wantHours)
			}
			if rows[0].Product != tt.finding.Product || rows[0].Features != tt.finding.Features {
				t.Errorf("row = %+v", rows[0])
			}
		})
	}
}

// TestHeuristicProvider_Estimate_ScopeHours tests that the scope
// sheet's hours override the built-in ones.
func TestHeuristicProvider_Estimate_ScopeHours(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	scope := Scope{SizeHours: map[string]float64{"medium": 32}}
	findings := []Finding{{Product: "Portal", Features: "Login, Signup, Profile"}}

	rows, err := provider.Estimate(context.Background(), findings, scope)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if rows[0].Size != "Medium" {
		t.Errorf("Size = %q", rows[0].Size)
	}
	if rows[0].Hours == nil || *rows[0].Hours != 32 {
		t.Errorf("Hours = %v, want scope override 32", rows[0].Hours)
	}
}

// TestHeuristicProvider_Models tests the offline pseudo-model listing.
func TestHeuristicProvider_Models(t *testing.T) {
	provider := newTestHeuristicProvider(t)

	resp, err := provider.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if resp.Provider != config.ProviderHeuristic {
		t.Errorf("Provider = %q", resp.Provider)
	}
	if resp.SelectedModel != "rules" {
		t.Errorf("SelectedModel = %q", resp.SelectedModel)
	}
}
