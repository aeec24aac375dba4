// Package docparse extracts plain text from uploaded requirement
// documents so the estimation pipeline can prompt on them.
//
// Supported formats are .txt (raw read), .docx (the document XML inside
// the zip container) and .pdf. Anything else, legacy .doc included, is
// read raw: requirement docs are mostly text even in unknown containers,
// and a partial read beats a refusal.
package docparse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extract returns the document's plain text.
//
// The result is uncapped; callers that feed prompts truncate to their
// own budget. Invalid UTF-8 in text reads is passed through untouched.
func Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return readDOCX(path)
	case ".pdf":
		return readPDF(path)
	default:
		return readRaw(path)
	}
}

func readRaw(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}
