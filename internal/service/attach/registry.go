package attach

import (
	"strings"
	"sync"

	attachSvc "arbor/internal/domain/services/attach"
)

// ExtractorRegistry routes attachment payloads to text extractors by
// MIME type.
//
// Thread-safe for concurrent access.
type ExtractorRegistry struct {
	mu         sync.RWMutex
	extractors map[string]attachSvc.TextExtractor // key: normalized MIME type
	fallback   attachSvc.TextExtractor            // unregistered text/* types
}

// NewExtractorRegistry creates a registry with the standard extractors
// pre-registered.
func NewExtractorRegistry() *ExtractorRegistry {
	registry := &ExtractorRegistry{
		extractors: make(map[string]attachSvc.TextExtractor),
	}

	plain := NewPlainTextExtractor()
	registry.Register(plain)
	registry.Register(NewHTMLExtractor())
	registry.fallback = plain

	return registry
}

// Register adds an extractor and associates it with its supported MIME
// types. Types are normalized to lowercase without parameters.
func (r *ExtractorRegistry) Register(extractor attachSvc.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range extractor.SupportedMimeTypes() {
		r.extractors[normalizeMime(mt)] = extractor
	}
}

// GetExtractor retrieves the extractor for a MIME type. Unregistered
// "text/*" types fall back to the plain text extractor; any other
// unknown type returns nil.
//
// Lookup is case-insensitive and ignores parameters such as
// "; charset=utf-8".
func (r *ExtractorRegistry) GetExtractor(mimeType string) attachSvc.TextExtractor {
	mt := normalizeMime(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if extractor, ok := r.extractors[mt]; ok {
		return extractor
	}
	if strings.HasPrefix(mt, "text/") {
		return r.fallback
	}
	return nil
}

// normalizeMime lowercases a MIME type and strips parameters.
func normalizeMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
