package tree

import (
	"sort"

	"arbor/internal/domain/models/chat"
)

// Siblings returns the ordered sibling group containing m and m's
// zero-based index within it. Siblings share the same normalized parent
// key and the same thread flag, so a thread never counts main-tree
// branches and vice versa. The group always contains m itself; a
// message with no branches yields a single-element group at index 0.
func Siblings(messages []chat.Message, m chat.Message) ([]chat.Message, int) {
	key := chat.ParentKey(m.ParentMessageID)

	group := make([]chat.Message, 0, 4)
	for _, other := range messages {
		if chat.ParentKey(other.ParentMessageID) != key {
			continue
		}
		if other.IsThreadMessage != m.IsThreadMessage {
			continue
		}
		group = append(group, other)
	}

	sort.Slice(group, func(i, j int) bool {
		if group[i].CreatedAt.Equal(group[j].CreatedAt) {
			return group[i].ID < group[j].ID
		}
		return group[i].CreatedAt.Before(group[j].CreatedAt)
	})

	index := 0
	for i, other := range group {
		if other.ID == m.ID {
			index = i
			break
		}
	}
	return group, index
}

// BranchIndexForNew returns the index a fresh sibling of m's group will
// occupy: new branches append at the end, so the index equals the
// current group size.
func BranchIndexForNew(messages []chat.Message, parentID *int64, isThread bool) int {
	key := chat.ParentKey(parentID)
	count := 0
	for _, other := range messages {
		if chat.ParentKey(other.ParentMessageID) == key && other.IsThreadMessage == isThread {
			count++
		}
	}
	return count
}
