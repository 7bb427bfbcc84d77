package chat

// Block type constants for model-bound content.
const (
	BlockTypeText     = "text"
	BlockTypeImage    = "image"
	BlockTypeDocument = "document"
)

// ContentBlock is one element of a model-bound message payload. A turn
// with attachments is sent as an ordered block list (attachment blocks
// first, the author's text last); a plain turn is sent as a single text
// block.
type ContentBlock struct {
	Type string `json:"type"`

	// Text carries the content of text blocks, including text-like
	// attachments rendered as fenced, filename-labeled snippets.
	Text string `json:"text,omitempty"`

	// MediaType and Data carry the base64 source of image and document
	// blocks (e.g. image/png, application/pdf).
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`

	// FileName is the original upload name, kept for document blocks.
	FileName string `json:"file_name,omitempty"`
}

// NewTextBlock builds a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewImageBlock builds a base64 image block.
func NewImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, MediaType: mediaType, Data: data}
}

// NewDocumentBlock builds a base64 document block (PDF).
func NewDocumentBlock(fileName, mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockTypeDocument, FileName: fileName, MediaType: mediaType, Data: data}
}
