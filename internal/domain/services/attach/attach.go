// Package attach defines the attachment ingestion contracts: validating
// uploaded files and extracting text from text-like payloads before they
// are persisted.
package attach

import (
	"context"

	"arbor/internal/domain/models/chat"
)

// AttachmentService prepares uploaded attachments for persistence.
type AttachmentService interface {
	// Prepare validates a message's attachments and fills derived
	// fields: decoded size and, for text-like payloads that arrived
	// without one, extracted text.
	Prepare(ctx context.Context, files []chat.MessageFile) ([]chat.MessageFile, error)
}

// TextExtractor produces plain text from a raw attachment payload. Each
// extractor handles a set of MIME types and returns text suitable for
// embedding in a prompt.
//
// Implementations should be stateless and thread-safe.
type TextExtractor interface {
	// Extract transforms a raw payload into plain text.
	Extract(ctx context.Context, input []byte) (string, error)

	// SupportedMimeTypes returns the MIME types this extractor handles,
	// lowercase and without parameters (e.g. ["text/html"]).
	SupportedMimeTypes() []string

	// Name returns a human-readable extractor name for logging.
	Name() string
}
