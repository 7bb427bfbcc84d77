package config

const (
	// MaxConversationTitleLength is the maximum length for conversation
	// titles. Limited to 255 to provide reasonable UX (titles should be
	// short and descriptive).
	MaxConversationTitleLength = 255

	// AutoTitleMaxWords is how many words of the first user message are
	// kept when deriving a conversation title automatically.
	AutoTitleMaxWords = 8

	// MaxMessageContentLength is the maximum length for a single message
	// body. Generous because pasted code and logs are common, but bounded
	// so a runaway client cannot park megabytes in a TEXT column.
	MaxMessageContentLength = 200_000

	// MaxAttachmentsPerMessage caps how many files one message may carry.
	MaxAttachmentsPerMessage = 20

	// MaxAttachmentSizeBytes caps the decoded size of a single attachment.
	// 10 MiB covers the images and PDFs the upstream API accepts; larger
	// payloads would be rejected downstream anyway.
	MaxAttachmentSizeBytes = 10 * 1024 * 1024

	// MaxMessageAttachmentBytes caps the combined decoded size of all
	// attachments on one message.
	MaxMessageAttachmentBytes = 32 * 1024 * 1024

	// MaxSystemPromptLength bounds per-conversation system prompts and
	// user-level system instructions.
	MaxSystemPromptLength = 20_000

	// MaxThreadDraftLength bounds saved thread drafts.
	MaxThreadDraftLength = 50_000
)
