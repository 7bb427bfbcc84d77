package chat

import (
	"time"
)

// MessageFile is a file attached to a message. Its lifecycle is tied to
// the message row (ON DELETE CASCADE). Exactly one of Data or
// ExtractedText is populated: images and PDFs keep their base64 payload
// in Data, text-like uploads keep decoded UTF-8 in ExtractedText so
// historical turns can re-embed the text without another decode pass.
type MessageFile struct {
	ID            int64     `json:"id" db:"id"`
	MessageID     int64     `json:"message_id" db:"message_id"`
	FileName      string    `json:"file_name" db:"file_name"`
	MimeType      string    `json:"mime_type" db:"mime_type"`
	SizeBytes     int64     `json:"size_bytes" db:"size_bytes"`
	Data          *string   `json:"data,omitempty" db:"data"`
	ExtractedText *string   `json:"extracted_text,omitempty" db:"extracted_text"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HasData reports whether the attachment still carries its raw base64
// payload.
func (f *MessageFile) HasData() bool {
	return f.Data != nil && *f.Data != ""
}

// HasExtractedText reports whether the attachment carries extracted
// UTF-8 text.
func (f *MessageFile) HasExtractedText() bool {
	return f.ExtractedText != nil
}
