package estimate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}
	return path
}

// TestDefaultRules tests the built-in sizing scale.
func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	if len(rules.Sizes) != 5 {
		t.Fatalf("Sizes = %d entries, want 5", len(rules.Sizes))
	}
	if rules.Sizes[0].Name != "X-Small" || rules.Sizes[0].Hours != 4 {
		t.Errorf("Sizes[0] = %+v", rules.Sizes[0])
	}
	if rules.Sizes[4].Name != "X-Large" || rules.Sizes[4].MaxFeatures != 0 {
		t.Errorf("Sizes[4] = %+v, want unbounded X-Large", rules.Sizes[4])
	}
	if len(rules.ComplexityTerms) == 0 || len(rules.SimplicityTerms) == 0 {
		t.Error("Default term lists must not be empty")
	}
}

// TestLoadRules_Defaults tests that an empty path and a missing file
// both yield the defaults.
func TestLoadRules_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.toml")} {
		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules(%q) error = %v", path, err)
		}
		if len(rules.Sizes) != 5 {
			t.Errorf("LoadRules(%q) Sizes = %d entries, want defaults", path, len(rules.Sizes))
		}
	}
}

// TestLoadRules_File tests loading a custom scale.
func TestLoadRules_File(t *testing.T) {
	path := writeRulesFile(t, `
complexity_terms = ["migration"]
simplicity_terms = ["trivial"]

[[sizes]]
name = "S"
max_features = 2
hours = 6

[[sizes]]
name = "L"
max_features = 0
hours = 40
`)

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}

	if len(rules.Sizes) != 2 {
		t.Fatalf("Sizes = %d entries, want 2", len(rules.Sizes))
	}
	if rules.Sizes[0].Name != "S" || rules.Sizes[0].MaxFeatures != 2 || rules.Sizes[0].Hours != 6 {
		t.Errorf("Sizes[0] = %+v", rules.Sizes[0])
	}
	if rules.Sizes[1].Name != "L" || rules.Sizes[1].Hours != 40 {
		t.Errorf("Sizes[1] = %+v", rules.Sizes[1])
	}
	if len(rules.ComplexityTerms) != 1 || rules.ComplexityTerms[0] != "migration" {
		t.Errorf("ComplexityTerms = %v, want file to replace defaults", rules.ComplexityTerms)
	}
}

// TestLoadRules_Invalid tests that a malformed file is an error.
func TestLoadRules_Invalid(t *testing.T) {
	path := writeRulesFile(t, "sizes = [[ not toml")

	_, err := LoadRules(path)
	if err == nil || !strings.Contains(err.Error(), "invalid rules file") {
		t.Errorf("LoadRules() error = %v, want invalid rules file", err)
	}
}

// TestLoadRules_NoSizes tests that a file without sizes is an error.
func TestLoadRules_NoSizes(t *testing.T) {
	path := writeRulesFile(t, `complexity_terms = ["integration"]`)

	_, err := LoadRules(path)
	if err == nil || !strings.Contains(err.Error(), "defines no sizes") {
		t.Errorf("LoadRules() error = %v, want defines no sizes", err)
	}
}

// TestRules_SizeFor tests scale selection and term adjustments.
func TestRules_SizeFor(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name    string
		finding Finding
		want    string
	}{
		{name: "no features", finding: Finding{Product: "Docs"}, want: "X-Small"},
		{name: "one feature", finding: Finding{Features: "a"}, want: "X-Small"},
		{name: "two features", finding: Finding{Features: "a, b"}, want: "Small"},
		{name: "four features", finding: Finding{Features: "a, b, c, d"}, want: "Medium"},
		{name: "seven features", finding: Finding{Features: "a, b, c, d, e, f, g"}, want: "Large"},
		{name: "eight features", finding: Finding{Features: "a, b, c, d, e, f, g, h"}, want: "X-Large"},
		{
			name:    "complexity bump",
			finding: Finding{Features: "a, b", Product: "Payment service"},
			want:    "Medium",
		},
		{
			name:    "simplicity bump",
			finding: Finding{Features: "a, b", Product: "Basic site"},
			want:    "X-Small",
		},
		{
			name:    "terms cancel out",
			finding: Finding{Features: "a, b", Product: "Basic payment site"},
			want:    "Small",
		},
		{
			name:    "complexity clamped at the top",
			finding: Finding{Features: "a, b, c, d, e, f, g, h", Product: "Security platform"},
			want:    "X-Large",
		},
		{
			name:    "simplicity clamped at the bottom",
			finding: Finding{Features: "a", Product: "Static page"},
			want:    "X-Small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.sizeFor(tt.finding); got.Name != tt.want {
				t.Errorf("sizeFor() = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

// TestFeatureCount tests comma-list counting.
func TestFeatureCount(t *testing.T) {
	tests := []struct {
		features string
		want     int
	}{
		{"", 0},
		{"   ", 0},
		{"a", 1},
		{"a, b", 2},
		{"a,,b, ", 2},
	}

	for _, tt := range tests {
		if got := featureCount(tt.features); got != tt.want {
			t.Errorf("featureCount(%q) = %d, want %d", tt.features, got, tt.want)
		}
	}
}
