// Package conversation assembles the model-bound message sequence for a
// submitted turn: the root-to-target ancestor chain (or thread chain)
// plus the content blocks each turn contributes, with historical
// attachments reconstituted from storage.
package conversation

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"arbor/internal/domain/models/chat"
)

// imageMimes is the exact set of image types forwarded as image blocks.
var imageMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// textLikeMimes is the fixed allow-list of non-text/* types embedded as
// fenced text. Any type with a "text/" prefix qualifies as well.
var textLikeMimes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/typescript": true,
	"application/x-sh":       true,
	"application/x-python":   true,
	"application/x-yaml":     true,
	"application/yaml":       true,
	"application/toml":       true,
	"application/sql":        true,
	"application/csv":        true,
	"application/markdown":   true,
	"application/rtf":        true,
}

const mimePDF = "application/pdf"

// attachment buckets
const (
	bucketImage = iota
	bucketPDF
	bucketText
	bucketDropped
)

// classifyMime folds a MIME type into one of exactly three usable
// buckets; everything else is dropped from the block list without
// error.
func classifyMime(mimeType string) int {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case imageMimes[mt]:
		return bucketImage
	case mt == mimePDF:
		return bucketPDF
	case strings.HasPrefix(mt, "text/"), textLikeMimes[mt]:
		return bucketText
	default:
		return bucketDropped
	}
}

// IsSupportedAttachment reports whether a MIME type lands in a usable
// bucket. Upload validation uses it to reject files that would be
// silently dropped later.
func IsSupportedAttachment(mimeType string) bool {
	return classifyMime(mimeType) != bucketDropped
}

// IsTextLikeAttachment reports whether a MIME type belongs to the
// text-like bucket (stored as extracted text rather than base64).
func IsTextLikeAttachment(mimeType string) bool {
	return classifyMime(mimeType) == bucketText
}

// BuildContentBlocks converts a message's text plus its attachments
// into the ordered block list sent to the model: one block per usable
// attachment in input order, then the message text as the final text
// block. A message without attachments yields a single text block, the
// equivalent of the plain-string wire shape. Unusable attachments are
// dropped silently; raw binary never leaks into a text block.
func BuildContentBlocks(content string, files []chat.MessageFile) []chat.ContentBlock {
	blocks := make([]chat.ContentBlock, 0, len(files)+1)

	for _, f := range files {
		switch classifyMime(f.MimeType) {
		case bucketImage:
			if !f.HasData() {
				continue
			}
			blocks = append(blocks, chat.NewImageBlock(f.MimeType, *f.Data))

		case bucketPDF:
			if !f.HasData() {
				continue
			}
			blocks = append(blocks, chat.NewDocumentBlock(f.FileName, mimePDF, *f.Data))

		case bucketText:
			text, ok := attachmentText(f)
			if !ok {
				continue
			}
			blocks = append(blocks, chat.NewTextBlock(fenceText(f.FileName, text)))
		}
	}

	blocks = append(blocks, chat.NewTextBlock(content))
	return blocks
}

// attachmentText resolves the UTF-8 text of a text-like attachment:
// stored extracted text when present (the reconstruction path), else a
// base64 decode of the raw payload (fresh uploads).
func attachmentText(f chat.MessageFile) (string, bool) {
	if f.HasExtractedText() {
		return *f.ExtractedText, true
	}
	if !f.HasData() {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(*f.Data)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}

// fenceText wraps attachment text in a fence labeled with the original
// filename, so the model can tell file content apart from the user's
// own words.
func fenceText(fileName, text string) string {
	return fmt.Sprintf("File: %s\n```\n%s\n```", fileName, text)
}
