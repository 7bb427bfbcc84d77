// Package tree derives structure from a conversation's flat message
// rows: the parent-indexed forest, the active path under a set of
// branch selections, thread paths, and sibling groups. Everything here
// is a pure function over a snapshot slice; no tree is kept alive
// between requests.
package tree

import (
	"sort"

	"arbor/internal/domain/models/chat"
)

// Mode selects which messages participate in a forest.
type Mode int

const (
	// MainTree indexes only regular messages; thread messages are
	// invisible to main-tree navigation.
	MainTree Mode = iota

	// ThreadOnly indexes only thread-flagged messages. Thread roots
	// themselves are regular assistant messages, so they appear as
	// parent keys but not as children.
	ThreadOnly
)

// Forest is a parent-indexed view of a conversation snapshot. Children
// under each key are ordered by (created_at, id); the id tiebreaker
// keeps ordering deterministic when timestamps collide.
type Forest struct {
	children map[string][]chat.Message
	byID     map[int64]chat.Message
}

// Build indexes messages into a Forest. The input slice is not
// modified. Building twice from the same snapshot yields the same
// ordering.
func Build(messages []chat.Message, mode Mode) *Forest {
	f := &Forest{
		children: make(map[string][]chat.Message),
		byID:     make(map[int64]chat.Message, len(messages)),
	}

	for _, m := range messages {
		f.byID[m.ID] = m
		if mode == MainTree && m.IsThreadMessage {
			continue
		}
		if mode == ThreadOnly && !m.IsThreadMessage {
			continue
		}
		key := chat.ParentKey(m.ParentMessageID)
		f.children[key] = append(f.children[key], m)
	}

	for key := range f.children {
		group := f.children[key]
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
	}

	return f
}

// Children returns the ordered sibling group under a parent key. The
// result is the forest's own slice; callers must not modify it.
func (f *Forest) Children(parentKey string) []chat.Message {
	return f.children[parentKey]
}

// Get looks up a message by id across the whole snapshot, regardless of
// the forest's mode.
func (f *Forest) Get(id int64) (chat.Message, bool) {
	m, ok := f.byID[id]
	return m, ok
}

// clampIndex folds an arbitrary selection index into [0, size-1].
// Stale client state selects the nearest valid branch instead of
// failing the walk.
func clampIndex(idx, size int) int {
	if idx < 0 {
		return 0
	}
	if idx >= size {
		return size - 1
	}
	return idx
}
