// Package validation checks user-supplied visualization inputs before
// they reach the model runtime or the database.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxModelNameLength = 256
	maxTextLength      = 2000
)

var modelNameRE = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

// Patterns that have no business in a prompt. Matched case-insensitively
// against the normalized text.
var dangerousREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)';.*--`),
	regexp.MustCompile(`(?i)".*--`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`\$\{.*\}`),
}

// ModelName validates a model identifier. Identifiers double as object
// store key prefixes, so path traversal and absolute paths are rejected.
func ModelName(name string) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	if len(name) > maxModelNameLength {
		return fmt.Errorf("model name exceeds %d characters", maxModelNameLength)
	}
	if !modelNameRE.MatchString(name) {
		return fmt.Errorf("model name contains invalid characters")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("model name must not contain '..'")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("model name must not start with '/'")
	}
	return nil
}

// InputText normalizes and validates prompt text. Surrounding whitespace
// is trimmed and internal runs collapse to a single space; the
// normalized text is returned.
func InputText(text string) (string, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return "", fmt.Errorf("input text is required")
	}
	if len(normalized) > maxTextLength {
		return "", fmt.Errorf("input text exceeds %d characters", maxTextLength)
	}
	for _, re := range dangerousREs {
		if re.MatchString(normalized) {
			return "", fmt.Errorf("input text contains a disallowed pattern")
		}
	}
	return normalized, nil
}

// ViewType validates the requested visualization view.
func ViewType(view string) error {
	switch view {
	case "head", "model":
		return nil
	}
	return fmt.Errorf("view type must be %q or %q", "head", "model")
}
