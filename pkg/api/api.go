// Package api defines the wire types for the estimator REST API.
//
// Both the server handlers and the Go client (pkg/client, the console)
// share these types, so the JSON shapes stay in one place.
package api

import "strconv"

// Project statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Estimate size scale, smallest to largest.
const (
	SizeXSmall = "X-Small"
	SizeSmall  = "Small"
	SizeMedium = "Medium"
	SizeLarge  = "Large"
	SizeXLarge = "X-Large"
)

// Sizes returns the size scale in ascending order.
func Sizes() []string {
	return []string{SizeXSmall, SizeSmall, SizeMedium, SizeLarge, SizeXLarge}
}

// Project is a single estimation project.
//
// List responses carry the summary shape (no Results). Detail responses
// include Results when the pipeline produced rows. Error is set only for
// projects whose pipeline run failed.
type Project struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	CreatedAt    string      `json:"created_at"`
	DocumentFile string      `json:"document_file"`
	Status       string      `json:"status"`
	Error        string      `json:"error,omitempty"`
	Results      []ResultRow `json:"results,omitempty"`
}

// ResultRow is one line item of a project's estimate table.
//
// Hours is nullable: a null means the pipeline produced no numeric value
// for the row. Zero is a real estimate and is distinct from null.
type ResultRow struct {
	Product  string   `json:"product"`
	Features string   `json:"features"`
	Size     string   `json:"size"`
	Hours    *float64 `json:"hours"`
}

// HoursLabel renders Hours for display: "N/A" when null, otherwise the
// shortest exact decimal form (0 renders as "0", not "N/A").
func (r ResultRow) HoursLabel() string {
	if r.Hours == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*r.Hours, 'f', -1, 64)
}

// ScopeConfigStatus reports whether the scope configuration file has been
// uploaded. Filename is present only when Exists is true.
type ScopeConfigStatus struct {
	Exists   bool   `json:"exists"`
	Filename string `json:"filename,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a mutation (delete, scope upload).
type MessageResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ModelInfo describes one text model the estimation provider can use.
type ModelInfo struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Provider        string      `json:"provider"`
	AvailableModels []ModelInfo `json:"available_models"`
	SelectedModel   string      `json:"selected_model,omitempty"`
}

// Float returns a pointer to v, for building ResultRow literals.
func Float(v float64) *float64 {
	return &v
}
