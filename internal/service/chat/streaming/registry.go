package streaming

import (
	"context"
	"sync"
	"time"
)

// Registry tracks the live StreamExecutor instances.
//
// Lifecycle:
//  1. The streaming service creates an executor and registers it before
//     responding, so the stream id in the response always resolves
//  2. SSE clients look the executor up by stream id and attach
//  3. The executor reaches a terminal state (complete/error)
//  4. The cleanup goroutine removes it after the retention period, long
//     enough for late subscribers to still receive the final event
type Registry struct {
	executors map[string]*StreamExecutor // streamID -> executor
	mu        sync.RWMutex

	cleanupInterval time.Duration
	retentionPeriod time.Duration

	completionTimes map[string]time.Time // streamID -> terminal time
	timesMu         sync.RWMutex
}

// NewRegistry creates a Registry. The caller starts cleanup with
// StartCleanup; retentionPeriod is how long terminal executors stay
// resolvable.
func NewRegistry(cleanupInterval, retentionPeriod time.Duration) *Registry {
	return &Registry{
		executors:       make(map[string]*StreamExecutor),
		cleanupInterval: cleanupInterval,
		retentionPeriod: retentionPeriod,
		completionTimes: make(map[string]time.Time),
	}
}

// Register registers an executor under its stream id.
// Returns false if the id is already taken.
func (r *Registry) Register(executor *StreamExecutor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[executor.StreamID()]; exists {
		return false
	}
	r.executors[executor.StreamID()] = executor
	return true
}

// Get retrieves the executor for a stream id, nil if none exists.
func (r *Registry) Get(streamID string) *StreamExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[streamID]
}

// Remove removes an executor. Safe to call for unknown ids.
func (r *Registry) Remove(streamID string) {
	r.mu.Lock()
	delete(r.executors, streamID)
	r.mu.Unlock()

	r.timesMu.Lock()
	delete(r.completionTimes, streamID)
	r.timesMu.Unlock()
}

// MarkCompleted records when an executor reached a terminal state so
// cleanup can expire it after the retention period.
func (r *Registry) MarkCompleted(streamID string) {
	r.timesMu.Lock()
	defer r.timesMu.Unlock()
	r.completionTimes[streamID] = time.Now()
}

// StartCleanup runs the cleanup loop until ctx is cancelled.
func (r *Registry) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

// cleanup removes terminal executors older than the retention period.
func (r *Registry) cleanup() {
	now := time.Now()
	var toRemove []string

	r.mu.RLock()
	for streamID, executor := range r.executors {
		status := executor.GetStatus()
		if status != StatusComplete && status != StatusError {
			continue
		}

		r.timesMu.RLock()
		completionTime, tracked := r.completionTimes[streamID]
		r.timesMu.RUnlock()

		if tracked && now.Sub(completionTime) > r.retentionPeriod {
			toRemove = append(toRemove, streamID)
		} else if !tracked {
			// First time we see this executor terminal; start its clock
			r.MarkCompleted(streamID)
		}
	}
	r.mu.RUnlock()

	if len(toRemove) == 0 {
		return
	}

	r.mu.Lock()
	for _, streamID := range toRemove {
		delete(r.executors, streamID)
	}
	r.mu.Unlock()

	r.timesMu.Lock()
	for _, streamID := range toRemove {
		delete(r.completionTimes, streamID)
	}
	r.timesMu.Unlock()
}

// Count returns the number of registered executors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}
