package streaming

import (
	"strings"
	"sync"
)

// TextAccumulator collects streamed text deltas into the full assistant
// response. The producer goroutine appends while reconnecting SSE
// clients read the accumulated text for catchup, so access is guarded.
type TextAccumulator struct {
	mu  sync.RWMutex
	buf strings.Builder
}

// NewTextAccumulator creates an empty accumulator.
func NewTextAccumulator() *TextAccumulator {
	return &TextAccumulator{}
}

// Append adds a delta fragment to the accumulated text.
func (a *TextAccumulator) Append(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.WriteString(text)
}

// Text returns everything accumulated so far.
func (a *TextAccumulator) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.String()
}

// Len returns the accumulated length in bytes.
func (a *TextAccumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.Len()
}
