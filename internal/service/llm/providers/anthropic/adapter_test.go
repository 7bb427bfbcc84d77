package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
)

func TestConvertMessages_RoleMapping(t *testing.T) {
	msgs := []llmsvc.Message{
		{Role: chat.RoleUser, Content: []chat.ContentBlock{chat.NewTextBlock("hi")}},
		{Role: chat.RoleAssistant, Content: []chat.ContentBlock{chat.NewTextBlock("hello")}},
	}

	result, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("expected user role, got %s", result[0].Role)
	}
	if result[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("expected assistant role, got %s", result[1].Role)
	}
}

func TestConvertMessages_AttachmentBlocks(t *testing.T) {
	msgs := []llmsvc.Message{
		{Role: chat.RoleUser, Content: []chat.ContentBlock{
			chat.NewImageBlock("image/png", "aW1n"),
			chat.NewDocumentBlock("paper.pdf", "application/pdf", "cGRm"),
			chat.NewTextBlock("what do these say?"),
		}},
	}

	result, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}

	content := result[0].Content
	if len(content) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(content))
	}
	if content[0].OfImage == nil {
		t.Error("expected image block first")
	}
	if content[1].OfDocument == nil {
		t.Fatal("expected document block second")
	}
	if content[1].OfDocument.Title.Value != "paper.pdf" {
		t.Errorf("expected document title paper.pdf, got %q", content[1].OfDocument.Title.Value)
	}
	if content[2].OfText == nil || content[2].OfText.Text != "what do these say?" {
		t.Error("expected user text as final block")
	}
}

func TestConvertMessages_DropsEmptyTextBlocks(t *testing.T) {
	msgs := []llmsvc.Message{
		{Role: chat.RoleUser, Content: []chat.ContentBlock{
			chat.NewImageBlock("image/png", "aW1n"),
			chat.NewTextBlock(""),
		}},
	}

	result, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convertMessages failed: %v", err)
	}
	if len(result[0].Content) != 1 {
		t.Errorf("expected empty text block to be dropped, got %d blocks", len(result[0].Content))
	}
}

func TestConvertMessages_RejectsContentlessMessage(t *testing.T) {
	msgs := []llmsvc.Message{
		{Role: chat.RoleUser, Content: []chat.ContentBlock{chat.NewTextBlock("")}},
	}

	if _, err := convertMessages(msgs); err == nil {
		t.Error("expected error for message with no usable blocks")
	}
}

func TestConvertMessages_RejectsUnknownRole(t *testing.T) {
	msgs := []llmsvc.Message{
		{Role: "system", Content: []chat.ContentBlock{chat.NewTextBlock("x")}},
	}

	if _, err := convertMessages(msgs); err == nil {
		t.Error("expected error for unsupported role")
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	req := &llmsvc.GenerateRequest{
		Model: "claude-sonnet-4-5",
		Messages: []llmsvc.Message{
			{Role: chat.RoleUser, Content: []chat.ContentBlock{chat.NewTextBlock("hi")}},
		},
	}

	params, err := buildParams(req)
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if params.MaxTokens != 4096 {
		t.Errorf("expected default max tokens 4096, got %d", params.MaxTokens)
	}
	if string(params.Model) != "claude-sonnet-4-5" {
		t.Errorf("unexpected model %s", params.Model)
	}
	if len(params.System) != 0 {
		t.Error("unexpected system prompt")
	}
}

func TestBuildParams_AppliesRequestParams(t *testing.T) {
	system := "be brief"
	temp := 0.2
	maxTokens := 1000
	req := &llmsvc.GenerateRequest{
		Model: "claude-sonnet-4-5",
		Messages: []llmsvc.Message{
			{Role: chat.RoleUser, Content: []chat.ContentBlock{chat.NewTextBlock("hi")}},
		},
		Params: &llmsvc.RequestParams{
			MaxTokens:   &maxTokens,
			Temperature: &temp,
			System:      &system,
		},
	}

	params, err := buildParams(req)
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if params.MaxTokens != 1000 {
		t.Errorf("expected max tokens 1000, got %d", params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "be brief" {
		t.Errorf("system prompt not applied: %+v", params.System)
	}
	if params.Temperature.Value != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", params.Temperature.Value)
	}
}

func TestSupportsModel(t *testing.T) {
	p := &Provider{}

	if !p.SupportsModel("claude-sonnet-4-5") {
		t.Error("expected claude models to be supported")
	}
	if p.SupportsModel("lorem-fast") {
		t.Error("lorem models should not be supported")
	}
}
