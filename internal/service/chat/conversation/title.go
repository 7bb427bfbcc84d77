package conversation

import (
	"strings"
	"unicode"

	"arbor/internal/config"
)

// DeriveTitle builds an automatic conversation title from the first
// submitted message: markdown syntax stripped, clipped to the first few
// words. Returns "" when the content has no usable words, in which case
// the conversation keeps its empty title.
func DeriveTitle(content string) string {
	text := cleanMarkdown(content)

	words := strings.FieldsFunc(text, unicode.IsSpace)
	if len(words) == 0 {
		return ""
	}
	if len(words) > config.AutoTitleMaxWords {
		words = words[:config.AutoTitleMaxWords]
	}

	title := strings.Join(words, " ")
	if len(title) > config.MaxConversationTitleLength {
		title = title[:config.MaxConversationTitleLength]
	}
	return title
}

// cleanMarkdown strips common markdown syntax so titles read as plain
// text. Intentionally heuristic; a stray marker in a title is harmless.
func cleanMarkdown(markdown string) string {
	text := removeCodeBlocks(markdown)

	// Inline emphasis and code markers
	for _, marker := range []string{"`", "**", "*", "__", "_", "~~", "#"} {
		text = strings.ReplaceAll(text, marker, "")
	}

	// List and blockquote markers
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "> ")
		if len(line) > 2 && unicode.IsDigit(rune(line[0])) && line[1] == '.' {
			line = strings.TrimSpace(line[2:])
		}
		cleaned = append(cleaned, line)
	}
	text = strings.Join(cleaned, " ")

	text = strings.ReplaceAll(text, "---", "")
	text = strings.ReplaceAll(text, "***", "")
	return text
}

func removeCodeBlocks(text string) string {
	for {
		start := strings.Index(text, "```")
		if start == -1 {
			break
		}
		end := strings.Index(text[start+3:], "```")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+6:]
	}
	return text
}
