package errors

import (
	"strings"
	"unicode"
)

// ValidateDomain validates a domain label used to group map points
// (e.g., "biology", "world-history"). Domain labels appear in exported
// bundle filenames and store keys, so the rules are conservative:
//   - No empty labels
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDomain(domain string) error {
	if domain == "" {
		return New(ErrCodeInvalidDomain, "domain label cannot be empty")
	}

	if len(domain) > 128 {
		return New(ErrCodeInvalidDomain, "domain label too long (max 128 characters)")
	}

	for _, r := range domain {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDomain, "domain label contains invalid control characters")
		}
	}

	if strings.ContainsAny(domain, "/\\") || strings.Contains(domain, "..") {
		return New(ErrCodeInvalidDomain, "domain label contains path characters: %q", domain)
	}

	return nil
}

// ValidateOutputPath validates a caller-supplied output file path.
// It prevents writing through null bytes or control characters and keeps
// path length reasonable. Relative and absolute paths are both allowed;
// the CLI resolves them against the working directory.
func ValidateOutputPath(path string) error {
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

	return nil
}

// ValidateURL validates a connection URL against a set of allowed schemes.
// With no schemes given it accepts http and https. Scheme matching is done
// on the raw string without full URL parsing.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}

	for _, scheme := range schemes {
		if strings.HasPrefix(rawURL, scheme+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(schemes, ", "))
}
