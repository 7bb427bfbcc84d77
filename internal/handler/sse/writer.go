package sse

import (
	"fmt"
	"net/http"
	"sync"
)

// SSEKeepAliveWriter implements KeepAliveWriter for SSE connections.
// Writes SSE comment lines (: keepalive) to maintain the connection.
// The mutex is shared with the handler's event-writing loop so
// keepalives and events never interleave on the wire.
type SSEKeepAliveWriter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	mu       *sync.Mutex
	streamID string
	clientID string
}

// NewSSEKeepAliveWriter creates a new SSE keep-alive writer.
func NewSSEKeepAliveWriter(
	w http.ResponseWriter,
	flusher http.Flusher,
	mu *sync.Mutex,
	streamID string,
	clientID string,
) *SSEKeepAliveWriter {
	return &SSEKeepAliveWriter{
		w:        w,
		flusher:  flusher,
		mu:       mu,
		streamID: streamID,
		clientID: clientID,
	}
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes.
// Returns error if connection is closed or write fails.
func (s *SSEKeepAliveWriter) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// SSE spec: lines starting with : are comments (ignored by client)
	if _, err := fmt.Fprintf(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()

	// Zero-byte write detects closed connections
	if _, err := s.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}
