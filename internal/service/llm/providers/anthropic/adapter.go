package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

// convertMessages converts assembled turns to the Anthropic SDK format.
// Empty text blocks are dropped before they reach the wire: the API
// rejects them outright.
func convertMessages(messages []llmsvc.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))

		for _, block := range msg.Content {
			switch block.Type {
			case chat.BlockTypeText:
				if block.Text == "" {
					continue
				}
				blocks = append(blocks, anthropic.NewTextBlock(block.Text))

			case chat.BlockTypeImage:
				blocks = append(blocks, anthropic.NewImageBlockBase64(block.MediaType, block.Data))

			case chat.BlockTypeDocument:
				docBlock := anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
					Data: block.Data,
				})
				if docBlock.OfDocument != nil && block.FileName != "" {
					docBlock.OfDocument.Title = anthropic.String(block.FileName)
				}
				blocks = append(blocks, docBlock)

			default:
				return nil, fmt.Errorf("message %d: unsupported block type %q", i, block.Type)
			}
		}

		if len(blocks) == 0 {
			return nil, fmt.Errorf("message %d: no usable content blocks", i)
		}

		switch msg.Role {
		case chat.RoleUser:
			result = append(result, anthropic.NewUserMessage(blocks...))
		case chat.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}

	return result, nil
}

// buildParams assembles the API request parameters from a generate
// request.
func buildParams(req *llmsvc.GenerateRequest) (anthropic.MessageNewParams, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := req.Params
	if params == nil {
		params = &llmsvc.RequestParams{}
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(params.GetMaxTokens(4096)),
	}

	if params.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*params.Temperature)
	}

	if params.System != nil && *params.System != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: *params.System,
			},
		}
	}

	return apiParams, nil
}
