package tree

import (
	"arbor/internal/domain/models/chat"
)

// ActivePath derives the currently visible linear conversation from a
// snapshot and the client's branch selections. The walk starts at the
// root sibling group and descends one child per level: the child at the
// selected index for that parent key, defaulting to the oldest child
// (index 0) when no selection exists. It stops at the first message
// with no children. An empty conversation yields an empty path.
func ActivePath(messages []chat.Message, selections chat.BranchSelections) []chat.Message {
	return walk(Build(messages, MainTree), chat.RootKey, selections, nil)
}

// ThreadPath derives the visible linear history of a thread rooted at
// rootID. The root message itself (a regular assistant message) is
// path[0]; descent continues through thread-flagged children only, so
// the thread never leaks main-tree messages or siblings of the root.
// An unknown rootID yields an empty path.
func ThreadPath(messages []chat.Message, rootID int64, selections chat.BranchSelections) []chat.Message {
	f := Build(messages, ThreadOnly)
	root, ok := f.Get(rootID)
	if !ok {
		return []chat.Message{}
	}
	return walk(f, root.Key(), selections, []chat.Message{root})
}

// walk descends the forest from startKey, appending one selected child
// per level onto path. Selection indices are clamped to the sibling
// group, so stale or out-of-range client state degrades to a valid
// branch instead of an error.
func walk(f *Forest, startKey string, selections chat.BranchSelections, path []chat.Message) []chat.Message {
	if path == nil {
		path = []chat.Message{}
	}
	key := startKey
	for {
		group := f.Children(key)
		if len(group) == 0 {
			return path
		}
		idx := clampIndex(selections[key], len(group))
		next := group[idx]
		path = append(path, next)
		key = next.Key()
	}
}
