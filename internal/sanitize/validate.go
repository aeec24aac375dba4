package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validation errors for security checks.
var (
	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrInvalidProjectID indicates the project ID format is invalid.
	ErrInvalidProjectID = errors.New("invalid project ID format")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")
)

// projectIDPattern matches generated project IDs:
// project_<YYYYMMDD>_<HHMMSS>_<6-hex-char suffix>.
var projectIDPattern = regexp.MustCompile(`^project_[0-9]{8}_[0-9]{6}_[0-9a-f]{6}$`)

// ValidatePath cleans path, resolves it to an absolute path, and rejects
// traversal. With a non-empty root the resolved path must also stay
// inside root. Stored document paths pass through here before any delete
// touches disk.
//
// Clean and Abs cannot introduce ".." into a path that never contained
// it, so one upfront substring check covers every stage.
func ValidatePath(path, root string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	if root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("resolve root: %w", err)
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: escapes %s", ErrPathTraversal, root)
		}
	}

	return abs, nil
}

// ValidateProjectID checks that a project ID matches the generated format.
// Route parameters pass through this before they reach storage, so a crafted
// ID can never select files outside the projects directory.
func ValidateProjectID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidProjectID)
	}

	if strings.ContainsAny(id, "/\\.") {
		return fmt.Errorf("%w: contains path characters", ErrInvalidProjectID)
	}

	if !projectIDPattern.MatchString(id) {
		return fmt.Errorf("%w: must match project_<date>_<time>_<suffix>", ErrInvalidProjectID)
	}

	return nil
}
