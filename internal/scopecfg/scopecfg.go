// Package scopecfg manages the scope-config singleton folder.
//
// The folder holds at most one meaningful file: the spreadsheet that maps
// estimate sizes to development hours. Uploading a new file replaces
// whatever was there, and every consumer resolves "the current scope
// config" through the same extension scan so server, pipeline, and watcher
// agree on which file counts.
package scopecfg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/estimator/internal/sanitize"
)

// ErrNoScopeConfig indicates the folder holds no scope config file.
var ErrNoScopeConfig = errors.New("no scope config file found")

// scanOrder is the extension preference when resolving the current file.
var scanOrder = []string{".xlsx", ".xls", ".csv"}

// Folder is the scope-config singleton directory.
type Folder struct {
	dir string
}

// NewFolder opens (creating if necessary) the scope-config directory.
func NewFolder(dir string) (*Folder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scope config dir: %w", err)
	}
	return &Folder{dir: dir}, nil
}

// Dir returns the folder path.
func (f *Folder) Dir() string { return f.dir }

// Current returns the path of the active scope config file.
// Extensions are scanned in preference order; within one extension the
// lexicographically first match wins. Returns ErrNoScopeConfig when the
// folder holds no recognized file.
func (f *Folder) Current() (string, error) {
	for _, ext := range scanOrder {
		matches, err := filepath.Glob(filepath.Join(f.dir, "*"+ext))
		if err != nil {
			return "", fmt.Errorf("scan scope config dir: %w", err)
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", ErrNoScopeConfig
}

// CurrentFilename returns just the base name of the active file.
func (f *Folder) CurrentFilename() (string, error) {
	path, err := f.Current()
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

// Save replaces the folder contents with a single new file. The name is
// sanitized before writing; the stored name is returned.
func (f *Folder) Save(filename string, src io.Reader) (string, error) {
	if err := f.clear(); err != nil {
		return "", err
	}

	stored := sanitize.Filename(filename)
	path := filepath.Join(f.dir, stored)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create scope config file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		// A half-written file must not become the active config.
		_ = os.Remove(path)
		return "", fmt.Errorf("write scope config file: %w", err)
	}

	return stored, nil
}

// Remove deletes the active scope config file.
// Returns ErrNoScopeConfig when there is none.
func (f *Folder) Remove() error {
	path, err := f.Current()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove scope config file: %w", err)
	}
	return nil
}

// clear deletes every regular file in the folder. The upload flow replaces
// the whole folder contents, stale files included.
func (f *Folder) clear() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("read scope config dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			return fmt.Errorf("clear scope config dir: %w", err)
		}
	}
	return nil
}
