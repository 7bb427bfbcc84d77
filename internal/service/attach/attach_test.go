package attach

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models/chat"
)

func testService() *Service {
	return &Service{
		registry: NewExtractorRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func strPtr(s string) *string {
	return &s
}

func b64(s string) *string {
	encoded := base64.StdEncoding.EncodeToString([]byte(s))
	return &encoded
}

func TestPrepare_ExtractsTextFromPlainUpload(t *testing.T) {
	svc := testService()

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "notes.txt", MimeType: "text/plain", Data: b64("hello world")},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	f := files[0]
	if f.ExtractedText == nil {
		t.Fatal("expected extracted text to be filled")
	}
	if *f.ExtractedText != "hello world" {
		t.Errorf("expected extracted text %q, got %q", "hello world", *f.ExtractedText)
	}
	if f.SizeBytes != int64(len("hello world")) {
		t.Errorf("expected size %d, got %d", len("hello world"), f.SizeBytes)
	}
}

func TestPrepare_ConvertsHTMLToMarkdown(t *testing.T) {
	svc := testService()
	html := `<h1>Report</h1><script>alert("x")</script><p>All systems nominal.</p>`

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "report.html", MimeType: "text/html", Data: b64(html)},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if files[0].ExtractedText == nil {
		t.Fatal("expected extracted text to be filled")
	}

	text := *files[0].ExtractedText
	if !strings.Contains(text, "Report") {
		t.Errorf("expected heading text in %q", text)
	}
	if !strings.Contains(text, "All systems nominal.") {
		t.Errorf("expected paragraph text in %q", text)
	}
	if strings.Contains(text, "alert") {
		t.Errorf("script content leaked into extracted text: %q", text)
	}
}

func TestPrepare_KeepsProvidedExtractedText(t *testing.T) {
	svc := testService()

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{
			FileName:      "main.go",
			MimeType:      "text/x-go",
			Data:          b64("package main"),
			ExtractedText: strPtr("client extracted"),
		},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if *files[0].ExtractedText != "client extracted" {
		t.Errorf("client-provided extracted text was overwritten: %q", *files[0].ExtractedText)
	}
}

func TestPrepare_StoresBinaryTypesUntouched(t *testing.T) {
	svc := testService()
	payload := "\x89PNG\r\n\x1a\nfakeimagedata"

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "pic.png", MimeType: "image/png", Data: b64(payload)},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	f := files[0]
	if f.ExtractedText != nil {
		t.Errorf("unexpected extracted text for image: %q", *f.ExtractedText)
	}
	if f.SizeBytes != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), f.SizeBytes)
	}
	if !f.HasData() {
		t.Error("expected base64 data to be kept")
	}
}

func TestPrepare_StoresUnsupportedTypesUntouched(t *testing.T) {
	svc := testService()

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "bundle.zip", MimeType: "application/zip", Data: b64("zipdata")},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if files[0].ExtractedText != nil {
		t.Error("unexpected extraction for unsupported type")
	}
}

func TestPrepare_RejectsInvalidBase64(t *testing.T) {
	svc := testService()

	_, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "bad.txt", MimeType: "text/plain", Data: strPtr("not-base64!!!")},
	})
	if err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPrepare_RejectsMissingPayload(t *testing.T) {
	svc := testService()

	_, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "ghost.txt", MimeType: "text/plain"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPrepare_RejectsOversizedAttachment(t *testing.T) {
	svc := testService()

	_, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{
			FileName:      "huge.txt",
			MimeType:      "text/plain",
			ExtractedText: strPtr(strings.Repeat("a", config.MaxAttachmentSizeBytes+1)),
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPrepare_RejectsTooManyAttachments(t *testing.T) {
	svc := testService()

	files := make([]chat.MessageFile, config.MaxAttachmentsPerMessage+1)
	for i := range files {
		files[i] = chat.MessageFile{FileName: "f.txt", MimeType: "text/plain", ExtractedText: strPtr("x")}
	}

	_, err := svc.Prepare(context.Background(), files)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPrepare_EmptyInput(t *testing.T) {
	svc := testService()

	files, err := svc.Prepare(context.Background(), nil)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if files == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}

func TestPrepare_InvalidUTF8SkipsExtraction(t *testing.T) {
	svc := testService()
	raw := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00, 0x80})

	files, err := svc.Prepare(context.Background(), []chat.MessageFile{
		{FileName: "blob.txt", MimeType: "text/plain", Data: &raw},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if files[0].ExtractedText != nil {
		t.Errorf("expected no extraction for invalid UTF-8, got %q", *files[0].ExtractedText)
	}
	if !files[0].HasData() {
		t.Error("expected raw data to be kept")
	}
}

func TestGetExtractor_Routing(t *testing.T) {
	registry := NewExtractorRegistry()

	tests := []struct {
		mimeType string
		want     string // extractor name, "" for nil
	}{
		{"text/html", "html"},
		{"TEXT/HTML; charset=utf-8", "html"},
		{"text/plain", "plaintext"},
		{"text/x-go", "plaintext"}, // unregistered text/* falls back
		{"application/json", "plaintext"},
		{"video/mp4", ""},
		{"application/zip", ""},
	}

	for _, tt := range tests {
		extractor := registry.GetExtractor(tt.mimeType)
		got := ""
		if extractor != nil {
			got = extractor.Name()
		}
		if got != tt.want {
			t.Errorf("GetExtractor(%q) = %q, want %q", tt.mimeType, got, tt.want)
		}
	}
}
