package attach

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	attachSvc "arbor/internal/domain/services/attach"
)

// htmlExtractor turns HTML attachments into markdown text in two stages:
// 1. Sanitize the markup (strip scripts, event handlers, javascript: URLs)
// 2. Convert what survives to markdown
//
// Extracted text is echoed back to clients inside assistant context, so
// uploaded HTML is treated as untrusted input.
type htmlExtractor struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLExtractor creates an HTML-to-markdown extractor. Sanitization
// uses a UGC (User Generated Content) policy that keeps common
// formatting while stripping script content.
func NewHTMLExtractor() attachSvc.TextExtractor {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &htmlExtractor{
		policy:    policy,
		converter: md.NewConverter("", true, nil),
	}
}

// Extract sanitizes an HTML payload and converts it to markdown.
func (e *htmlExtractor) Extract(ctx context.Context, input []byte) (string, error) {
	sanitized := e.policy.Sanitize(string(input))

	markdown, err := e.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}

	return markdown, nil
}

// SupportedMimeTypes returns HTML types.
func (e *htmlExtractor) SupportedMimeTypes() []string {
	return []string{"text/html"}
}

// Name returns the extractor name for logging.
func (e *htmlExtractor) Name() string {
	return "html"
}
