// Package attach validates uploaded attachments and enriches text-like
// payloads with server-side extracted text before persistence.
package attach

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models/chat"
	attachSvc "arbor/internal/domain/services/attach"
	"arbor/internal/service/chat/conversation"
)

// Service implements attachment ingestion: per-file and per-message
// size caps, base64 validation, and text extraction for text-like
// payloads that arrive without one.
type Service struct {
	registry *ExtractorRegistry
	logger   *slog.Logger
}

// NewService creates an attachment ingestion service with the standard
// extractors registered.
func NewService(logger *slog.Logger) attachSvc.AttachmentService {
	return &Service{
		registry: NewExtractorRegistry(),
		logger:   logger,
	}
}

// Prepare validates a message's attachments and returns them ready for
// persistence: decoded sizes recorded and extracted text filled for
// text-like payloads. Unsupported MIME types are stored untouched; they
// simply contribute no content block at prompt-assembly time.
func (s *Service) Prepare(ctx context.Context, files []chat.MessageFile) ([]chat.MessageFile, error) {
	if len(files) == 0 {
		return []chat.MessageFile{}, nil
	}
	if len(files) > config.MaxAttachmentsPerMessage {
		return nil, fmt.Errorf("%w: message has %d attachments, maximum is %d",
			domain.ErrValidation, len(files), config.MaxAttachmentsPerMessage)
	}

	prepared := make([]chat.MessageFile, 0, len(files))
	var total int64

	for _, f := range files {
		if f.FileName == "" {
			return nil, fmt.Errorf("%w: attachment is missing a file name", domain.ErrValidation)
		}
		if f.MimeType == "" {
			return nil, fmt.Errorf("%w: attachment %q is missing a MIME type", domain.ErrValidation, f.FileName)
		}

		var payload []byte
		switch {
		case f.HasData():
			decoded, err := base64.StdEncoding.DecodeString(*f.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: attachment %q is not valid base64", domain.ErrValidation, f.FileName)
			}
			payload = decoded
			f.SizeBytes = int64(len(decoded))
		case f.HasExtractedText():
			f.SizeBytes = int64(len(*f.ExtractedText))
		default:
			return nil, fmt.Errorf("%w: attachment %q has no payload", domain.ErrValidation, f.FileName)
		}

		if f.SizeBytes > config.MaxAttachmentSizeBytes {
			return nil, fmt.Errorf("%w: attachment %q is %d bytes, maximum is %d",
				domain.ErrValidation, f.FileName, f.SizeBytes, config.MaxAttachmentSizeBytes)
		}
		total += f.SizeBytes
		if total > config.MaxMessageAttachmentBytes {
			return nil, fmt.Errorf("%w: attachments exceed %d bytes combined",
				domain.ErrValidation, config.MaxMessageAttachmentBytes)
		}

		// Fill extracted text for text-like payloads that arrived raw, so
		// later turns reuse the stored text instead of re-decoding base64.
		if payload != nil && !f.HasExtractedText() && conversation.IsTextLikeAttachment(f.MimeType) {
			if extractor := s.registry.GetExtractor(f.MimeType); extractor != nil {
				text, err := extractor.Extract(ctx, payload)
				if err != nil {
					s.logger.Warn("attachment text extraction failed",
						"file_name", f.FileName,
						"mime_type", f.MimeType,
						"extractor", extractor.Name(),
						"error", err,
					)
				} else {
					f.ExtractedText = &text
				}
			}
		}

		prepared = append(prepared, f)
	}

	return prepared, nil
}
