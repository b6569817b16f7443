package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds map, layer and column names.
const maxNameLength = 256

// validateName applies the rules shared by every user-supplied name.
func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidName, "%s name cannot be empty", kind)
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "%s name too long (max %d characters)", kind, maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "%s name contains invalid control characters", kind)
		}
	}
	return nil
}

// ValidateMapName validates the name of a map or drawing layer.
//
// The validation rules are intentionally conservative:
//   - No empty or all-blank names
//   - No control characters
//   - No path separators, since names become file and store keys
//   - Maximum length of 256 characters
func ValidateMapName(name string) error {
	if err := validateName("map", name); err != nil {
		return err
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "map name cannot contain path separators: %q", name)
	}
	return nil
}

// ValidateColumnName validates an attribute column name. Tabs are
// rejected because tables are exported as TSV.
func ValidateColumnName(name string) error {
	if err := validateName("column", name); err != nil {
		return err
	}
	if name != strings.TrimSpace(name) {
		return New(ErrCodeInvalidName, "column name cannot start or end with spaces: %q", name)
	}
	return nil
}

// ValidateFilePath validates a local file named on the command line.
// Unlike [ValidatePath] it accepts absolute and parent-relative paths.
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidatePath validates a relative file path, such as a store key, for
// safety. It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
