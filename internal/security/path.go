package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces a remote-supplied filename to a safe base name.
// Path separators and traversal components are stripped; an empty or fully
// stripped name falls back to "attachment".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "attachment"
	}
	return name
}

// ValidateWithinBase ensures path resolves inside baseDir. Both paths are
// cleaned before comparison so ".." components cannot escape.
func ValidateWithinBase(path, baseDir string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	cleanBase := filepath.Clean(baseDir)

	rel, err := filepath.Rel(cleanBase, cleanPath)
	if err != nil {
		return fmt.Errorf("cannot resolve path %s against %s: %w", path, baseDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}
	return nil
}
