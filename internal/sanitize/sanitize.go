// Package sanitize provides filename sanitization and path validation for
// uploaded files.
//
// Document and scope config filenames arrive straight from multipart form
// data and may contain path separators, traversal sequences, or shell
// metacharacters. Filename reduces them to a safe basename before anything
// touches disk.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	// MaxFilenameLength is the maximum length for a stored filename.
	// Well below NAME_MAX on every supported filesystem.
	MaxFilenameLength = 128

	// HashSuffixLength is the length of the hash suffix added to truncated names.
	// Format: _<8-char-hash> = 9 characters total
	HashSuffixLength = 9

	// DefaultFilename is used when sanitization produces an empty result.
	DefaultFilename = "upload"
)

// Filename sanitizes an uploaded filename for safe storage on disk.
//
// Rules applied:
//   - Strips any directory components (forward and backslash)
//   - Replaces characters outside [A-Za-z0-9._-] with underscores
//   - Collapses multiple underscores
//   - Trims leading/trailing underscores and dots
//   - Truncates to MaxFilenameLength with a hash suffix, keeping the extension
//   - Returns DefaultFilename if result would be empty
//
// Case is preserved so the stored name matches what the user uploaded.
//
// Examples:
//
//	"../../etc/passwd"  -> "passwd"
//	"My Report.docx"    -> "My_Report.docx"
//	".hidden"           -> "hidden"
//	"" or "///"         -> "upload"
func Filename(s string) string {
	// Strip directory components. Both separators are handled so a
	// Windows-style path uploaded to a Linux server cannot smuggle one in.
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}

	if s == "" {
		return DefaultFilename
	}

	// Replace invalid characters with underscores
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			result.WriteRune(r)
		default:
			result.WriteRune('_')
		}
	}

	// Collapse multiple underscores and trim
	sanitized := result.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_.")

	// Handle empty result
	if sanitized == "" {
		return DefaultFilename
	}

	// Truncate with hash suffix if too long
	if len(sanitized) > MaxFilenameLength {
		sanitized = truncateWithHash(sanitized)
	}

	return sanitized
}

// truncateWithHash truncates a filename to fit within MaxFilenameLength,
// appending a hash suffix to preserve uniqueness. The extension survives
// truncation so type detection keeps working.
//
// Format: <truncated>_<8-char-hash><ext>
// Example: "very_long_name....docx" -> "very_long_na_a1b2c3d4.docx"
func truncateWithHash(s string) string {
	ext := filepath.Ext(s)
	if len(ext) > 16 {
		// Not a real extension, treat the whole string as the base.
		ext = ""
	}
	base := strings.TrimSuffix(s, ext)

	// Calculate hash of original string
	hash := sha256.Sum256([]byte(s))
	hashSuffix := "_" + hex.EncodeToString(hash[:])[:8]

	// Truncate to make room for hash suffix and extension
	maxBase := MaxFilenameLength - HashSuffixLength - len(ext)
	truncated := strings.TrimRight(base[:maxBase], "_")

	return truncated + hashSuffix + ext
}
