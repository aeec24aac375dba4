package estimate

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rules configure heuristic sizing.
type Rules struct {
	// Sizes in ascending order. A finding starts at the first size
	// whose max_features covers its feature count (0 means unbounded)
	// and moves one step up or down on complexity/simplicity terms.
	Sizes []SizeRule `toml:"sizes"`

	// ComplexityTerms bump a finding one size up when any appears in
	// its product or feature text.
	ComplexityTerms []string `toml:"complexity_terms"`

	// SimplicityTerms bump a finding one size down.
	SimplicityTerms []string `toml:"simplicity_terms"`
}

// SizeRule is one point on the sizing scale.
type SizeRule struct {
	Name        string  `toml:"name"`
	MaxFeatures int     `toml:"max_features"`
	Hours       float64 `toml:"hours"`
}

// DefaultRules returns the built-in sizing scale.
func DefaultRules() Rules {
	return Rules{
		Sizes: []SizeRule{
			{Name: "X-Small", MaxFeatures: 1, Hours: 4},
			{Name: "Small", MaxFeatures: 2, Hours: 8},
			{Name: "Medium", MaxFeatures: 4, Hours: 24},
			{Name: "Large", MaxFeatures: 7, Hours: 80},
			{Name: "X-Large", MaxFeatures: 0, Hours: 160},
		},
		ComplexityTerms: []string{
			"integration", "migration", "security", "compliance",
			"real-time", "realtime", "machine learning", "payment",
			"multi-tenant", "workflow",
		},
		SimplicityTerms: []string{
			"simple", "basic", "static", "read-only", "readonly",
		},
	}
}

// LoadRules reads sizing rules from a TOML file.
//
// An empty path or a missing file yields the defaults. The file
// replaces the built-in rules wholesale, term lists included. An
// existing but unreadable or invalid file is an error.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	// Check if file exists
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return Rules{}, fmt.Errorf("stat rules file: %w", err)
	}

	var rules Rules
	if _, err := toml.DecodeFile(path, &rules); err != nil {
		return Rules{}, fmt.Errorf("invalid rules file %s: %w", path, err)
	}

	if len(rules.Sizes) == 0 {
		return Rules{}, fmt.Errorf("rules file %s defines no sizes", path)
	}
	return rules, nil
}

// sizeFor picks the scale point for a finding.
func (r Rules) sizeFor(f Finding) SizeRule {
	count := featureCount(f.Features)

	idx := len(r.Sizes) - 1
	for i, s := range r.Sizes {
		if s.MaxFeatures == 0 || count <= s.MaxFeatures {
			idx = i
			break
		}
	}

	text := strings.ToLower(f.Product + " " + f.Features)
	if containsAnyTerm(text, r.ComplexityTerms) {
		idx++
	}
	if containsAnyTerm(text, r.SimplicityTerms) {
		idx--
	}

	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.Sizes) {
		idx = len(r.Sizes) - 1
	}
	return r.Sizes[idx]
}

// featureCount counts non-empty comma-separated feature items.
func featureCount(features string) int {
	count := 0
	for _, item := range strings.Split(features, ",") {
		if strings.TrimSpace(item) != "" {
			count++
		}
	}
	return count
}

func containsAnyTerm(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
