package estimate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Line patterns for offline extraction. Product lines open a new
// finding; feature and bullet lines attach to the one currently open.
var (
	productLinePattern = regexp.MustCompile(`(?i)^\s*(?:product|module|component|epic)\s*[:\-]\s*(.+)$`)
	headingPattern     = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	featureLinePattern = regexp.MustCompile(`(?i)^\s*features?\s*[:\-]\s*(.+)$`)
	bulletPattern      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
)

const maxProductNameLen = 80

// heuristicProvider estimates without a model: regex extraction and
// rule-based sizing. It backs the "heuristic" provider setting and the
// no-API-key degradation path, so it must never need the network.
type heuristicProvider struct {
	rules Rules
}

func newHeuristicProvider(cfg config.EstimatorConfig) (*heuristicProvider, error) {
	rules, err := LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return &heuristicProvider{rules: rules}, nil
}

func (h *heuristicProvider) Name() string { return config.ProviderHeuristic }

// Analyze extracts product/feature pairs by scanning lines.
//
// Documents without recognizable product headings collapse into a
// single finding named after the first non-empty line, with every
// bullet in the document as its features.
func (h *heuristicProvider) Analyze(ctx context.Context, document string) ([]Finding, error) {
	var findings []Finding
	var current *Finding
	var features []string
	var orphans []string

	flush := func() {
		if current != nil {
			current.Features = strings.Join(features, ", ")
			findings = append(findings, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(document, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := productLinePattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &Finding{Product: truncateName(strings.TrimSpace(m[1]))}
			features = nil
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &Finding{Product: truncateName(strings.TrimSpace(m[1]))}
			features = nil
			continue
		}
		if m := featureLinePattern.FindStringSubmatch(line); m != nil {
			items := splitList(m[1])
			if current != nil {
				features = append(features, items...)
			} else {
				orphans = append(orphans, items...)
			}
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if current != nil {
				features = append(features, item)
			} else {
				orphans = append(orphans, item)
			}
		}
	}
	flush()

	if len(findings) == 0 {
		title := firstNonEmptyLine(document)
		if title == "" {
			return nil, fmt.Errorf("document has no readable text")
		}
		findings = []Finding{{
			Product:  truncateName(title),
			Features: strings.Join(orphans, ", "),
		}}
	}

	return findings, nil
}

// Estimate sizes each finding with the rules, preferring the scope
// sheet's own hours for the chosen size.
func (h *heuristicProvider) Estimate(ctx context.Context, findings []Finding, scope Scope) ([]api.ResultRow, error) {
	rows := make([]api.ResultRow, 0, len(findings))
	for _, f := range findings {
		size := h.rules.sizeFor(f)

		hours := size.Hours
		if v, ok := scope.SizeHours[strings.ToLower(size.Name)]; ok {
			hours = v
		}

		rows = append(rows, api.ResultRow{
			Product:  f.Product,
			Features: f.Features,
			Size:     size.Name,
			Hours:    api.Float(hours),
		})
	}
	return rows, nil
}

// Models reports the offline pseudo-model.
func (h *heuristicProvider) Models(ctx context.Context) (api.ModelsResponse, error) {
	return api.ModelsResponse{
		Provider:        config.ProviderHeuristic,
		AvailableModels: []api.ModelInfo{{Name: "rules"}},
		SelectedModel:   "rules",
	}, nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncateName(s string) string {
	if len(s) > maxProductNameLen {
		return s[:maxProductNameLen]
	}
	return s
}

var _ Provider = (*heuristicProvider)(nil)
