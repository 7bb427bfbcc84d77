package attach

import (
	"context"
	"fmt"
	"unicode/utf8"

	attachSvc "arbor/internal/domain/services/attach"
)

// plainTextExtractor passes text payloads through unchanged after
// checking they are valid UTF-8.
type plainTextExtractor struct{}

// NewPlainTextExtractor creates an extractor for plain text and code
// attachments.
func NewPlainTextExtractor() attachSvc.TextExtractor {
	return &plainTextExtractor{}
}

// Extract returns the input as a string. Payloads that are not valid
// UTF-8 are rejected so binary data never masquerades as text.
func (e *plainTextExtractor) Extract(ctx context.Context, input []byte) (string, error) {
	if !utf8.Valid(input) {
		return "", fmt.Errorf("payload is not valid UTF-8")
	}
	return string(input), nil
}

// SupportedMimeTypes returns the non-HTML text-like types. Unregistered
// "text/*" types also route here via the registry fallback.
func (e *plainTextExtractor) SupportedMimeTypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"application/json",
		"application/xml",
		"application/javascript",
		"application/typescript",
		"application/x-sh",
		"application/x-python",
		"application/x-yaml",
		"application/yaml",
		"application/toml",
		"application/sql",
		"application/csv",
		"application/markdown",
		"application/rtf",
	}
}

// Name returns the extractor name for logging.
func (e *plainTextExtractor) Name() string {
	return "plaintext"
}
