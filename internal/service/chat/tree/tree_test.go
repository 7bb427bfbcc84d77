package tree

import (
	"testing"
	"time"

	"arbor/internal/domain/models/chat"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// msg builds a test message; seconds offsets keep created_at ordering explicit.
func msg(id int64, parent *int64, role string, secOffset int) chat.Message {
	return chat.Message{
		ID:              id,
		ConversationID:  1,
		ParentMessageID: parent,
		Role:            role,
		Content:         "m",
		CreatedAt:       baseTime.Add(time.Duration(secOffset) * time.Second),
	}
}

// threadMsg builds a thread-flagged test message.
func threadMsg(id int64, parent *int64, role string, secOffset int) chat.Message {
	m := msg(id, parent, role, secOffset)
	m.IsThreadMessage = true
	return m
}

func pid(v int64) *int64 { return &v }

// linearConversation is U1 -> A1 -> U2 -> A2.
func linearConversation() []chat.Message {
	return []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(2), chat.RoleUser, 2),
		msg(4, pid(3), chat.RoleAssistant, 3),
	}
}

// TestActivePath_LinearConversation verifies the default walk follows a
// single unbranched chain from root to leaf.
func TestActivePath_LinearConversation(t *testing.T) {
	path := ActivePath(linearConversation(), nil)

	if len(path) != 4 {
		t.Fatalf("expected path of 4 messages, got %d", len(path))
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if path[i].ID != want {
			t.Errorf("path[%d]: expected id %d, got %d", i, want, path[i].ID)
		}
	}
}

// TestActivePath_NoRepeatedIDs verifies a path never visits a message twice.
func TestActivePath_NoRepeatedIDs(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(1), chat.RoleAssistant, 2),
		msg(4, pid(3), chat.RoleUser, 3),
	}

	path := ActivePath(messages, chat.BranchSelections{"1": 1})

	seen := make(map[int64]bool)
	for _, m := range path {
		if seen[m.ID] {
			t.Fatalf("message %d appears twice in path", m.ID)
		}
		seen[m.ID] = true
	}
}

// TestActivePath_DefaultStability verifies that appending a new leaf to
// the selected branch does not change the ids already on the path when
// no explicit selections exist.
func TestActivePath_DefaultStability(t *testing.T) {
	messages := linearConversation()
	before := ActivePath(messages, nil)

	messages = append(messages, msg(5, pid(4), chat.RoleUser, 4))
	after := ActivePath(messages, nil)

	if len(after) != len(before)+1 {
		t.Fatalf("expected path to grow by 1, got %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Errorf("path[%d] changed after append: %d -> %d", i, before[i].ID, after[i].ID)
		}
	}
}

// TestActivePath_SelectionPicksBranch verifies that a branch selection
// switches the walk to the chosen sibling.
func TestActivePath_SelectionPicksBranch(t *testing.T) {
	// U1 has two assistant children A1 (older) and A1' (newer).
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(1), chat.RoleAssistant, 2),
	}

	defaultPath := ActivePath(messages, nil)
	if defaultPath[1].ID != 2 {
		t.Errorf("default selection should pick oldest child: expected id 2, got %d", defaultPath[1].ID)
	}

	selected := ActivePath(messages, chat.BranchSelections{"1": 1})
	if selected[1].ID != 3 {
		t.Errorf("selection 1 should pick second child: expected id 3, got %d", selected[1].ID)
	}
}

// TestActivePath_ClampsOutOfRangeSelection verifies stale selection
// indices clamp into the valid range instead of failing.
func TestActivePath_ClampsOutOfRangeSelection(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(1), chat.RoleAssistant, 2),
	}

	high := ActivePath(messages, chat.BranchSelections{"1": 99})
	if high[1].ID != 3 {
		t.Errorf("over-range selection should clamp to last sibling: expected id 3, got %d", high[1].ID)
	}

	low := ActivePath(messages, chat.BranchSelections{"1": -5})
	if low[1].ID != 2 {
		t.Errorf("negative selection should clamp to first sibling: expected id 2, got %d", low[1].ID)
	}
}

// TestActivePath_EmptyConversation verifies an empty snapshot yields an
// empty, non-nil path.
func TestActivePath_EmptyConversation(t *testing.T) {
	path := ActivePath(nil, nil)
	if path == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(path) != 0 {
		t.Fatalf("expected empty path, got %d messages", len(path))
	}
}

// TestActivePath_ExcludesThreadMessages verifies thread messages are
// invisible to main-tree navigation.
func TestActivePath_ExcludesThreadMessages(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		threadMsg(3, pid(2), chat.RoleUser, 2),
		threadMsg(4, pid(3), chat.RoleAssistant, 3),
	}

	path := ActivePath(messages, nil)
	if len(path) != 2 {
		t.Fatalf("expected thread messages excluded, path of 2, got %d", len(path))
	}
	for _, m := range path {
		if m.IsThreadMessage {
			t.Errorf("thread message %d leaked into the main path", m.ID)
		}
	}
}

// TestBuild_Idempotent verifies repeated builds over the same snapshot
// yield identical child ordering.
func TestBuild_Idempotent(t *testing.T) {
	messages := []chat.Message{
		msg(3, pid(1), chat.RoleAssistant, 2),
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
	}

	first := Build(messages, MainTree).Children("1")
	second := Build(messages, MainTree).Children("1")

	if len(first) != len(second) {
		t.Fatalf("builds disagree on group size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("builds disagree at index %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

// TestBuild_IDTiebreakOnEqualTimestamps verifies the integer id breaks
// ordering ties when two siblings share a created_at value.
func TestBuild_IDTiebreakOnEqualTimestamps(t *testing.T) {
	// Same second for both children; ids decide.
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(9, pid(1), chat.RoleAssistant, 5),
		msg(7, pid(1), chat.RoleAssistant, 5),
	}

	group := Build(messages, MainTree).Children("1")
	if len(group) != 2 {
		t.Fatalf("expected 2 children, got %d", len(group))
	}
	if group[0].ID != 7 || group[1].ID != 9 {
		t.Errorf("expected id order [7 9], got [%d %d]", group[0].ID, group[1].ID)
	}
}

// TestSiblings_ContainsSelf verifies the group always includes the
// message itself at the reported index.
func TestSiblings_ContainsSelf(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(1), chat.RoleAssistant, 2),
		msg(4, pid(1), chat.RoleAssistant, 3),
	}

	group, index := Siblings(messages, messages[2])

	if len(group) != 3 {
		t.Fatalf("expected 3 siblings, got %d", len(group))
	}
	if group[index].ID != 3 {
		t.Errorf("group[index] should be the message itself: expected id 3, got %d", group[index].ID)
	}
	if index != 1 {
		t.Errorf("expected index 1, got %d", index)
	}
}

// TestSiblings_RootGroup verifies root messages (nil parent) form a
// sibling group under the sentinel key.
func TestSiblings_RootGroup(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, nil, chat.RoleUser, 1),
	}

	group, index := Siblings(messages, messages[1])
	if len(group) != 2 {
		t.Fatalf("expected root sibling group of 2, got %d", len(group))
	}
	if index != 1 {
		t.Errorf("expected index 1 for the newer root message, got %d", index)
	}
}

// TestSiblings_ExcludesDifferentThreadFlag verifies thread and
// main-tree children under the same parent never mix.
func TestSiblings_ExcludesDifferentThreadFlag(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		threadMsg(3, pid(1), chat.RoleUser, 2),
	}

	group, _ := Siblings(messages, messages[1])
	if len(group) != 1 {
		t.Fatalf("expected 1 sibling (thread child excluded), got %d", len(group))
	}
	if group[0].ID != 2 {
		t.Errorf("expected sibling id 2, got %d", group[0].ID)
	}
}

// TestThreadPath_RootFirst verifies the thread root leads the path and
// descent follows thread children.
func TestThreadPath_RootFirst(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		threadMsg(3, pid(2), chat.RoleUser, 2),
		threadMsg(4, pid(3), chat.RoleAssistant, 3),
	}

	path := ThreadPath(messages, 2, nil)
	if len(path) != 3 {
		t.Fatalf("expected thread path of 3, got %d", len(path))
	}
	for i, want := range []int64{2, 3, 4} {
		if path[i].ID != want {
			t.Errorf("path[%d]: expected id %d, got %d", i, want, path[i].ID)
		}
	}
}

// TestThreadPath_Isolation verifies a thread path never contains a
// non-thread message other than the root, nor any sibling of the root.
func TestThreadPath_Isolation(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		msg(3, pid(1), chat.RoleAssistant, 2), // sibling of the thread root
		msg(4, pid(2), chat.RoleUser, 3),      // main-tree child of the root
		threadMsg(5, pid(2), chat.RoleUser, 4),
		threadMsg(6, pid(5), chat.RoleAssistant, 5),
	}

	path := ThreadPath(messages, 2, nil)

	for i, m := range path {
		if i == 0 {
			if m.ID != 2 {
				t.Fatalf("path[0] should be the root: expected id 2, got %d", m.ID)
			}
			continue
		}
		if !m.IsThreadMessage {
			t.Errorf("non-thread message %d leaked into thread path", m.ID)
		}
		if m.ID == 3 || m.ID == 4 {
			t.Errorf("main-tree message %d must not appear in thread path", m.ID)
		}
	}
}

// TestThreadPath_UnknownRoot verifies an unknown root yields an empty path.
func TestThreadPath_UnknownRoot(t *testing.T) {
	path := ThreadPath(linearConversation(), 999, nil)
	if len(path) != 0 {
		t.Fatalf("expected empty path for unknown root, got %d messages", len(path))
	}
}

// TestThreadPath_SelectionAware verifies thread branches honor
// selections keyed by the parent message.
func TestThreadPath_SelectionAware(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, pid(1), chat.RoleAssistant, 1),
		threadMsg(3, pid(2), chat.RoleUser, 2),
		threadMsg(4, pid(2), chat.RoleUser, 3), // edited thread turn
	}

	defaultPath := ThreadPath(messages, 2, nil)
	if defaultPath[1].ID != 3 {
		t.Errorf("default thread walk should pick oldest child: expected id 3, got %d", defaultPath[1].ID)
	}

	selected := ThreadPath(messages, 2, chat.BranchSelections{"2": 1})
	if selected[1].ID != 4 {
		t.Errorf("thread selection should pick second child: expected id 4, got %d", selected[1].ID)
	}
}

// TestEditScenario_NewSiblingSelected walks the canonical edit flow:
// U1 -> A1, then editing U1 creates sibling U2 with assistant child A2.
// Selecting index 1 at the root must surface [U2, A2].
func TestEditScenario_NewSiblingSelected(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),          // U1
		msg(2, pid(1), chat.RoleAssistant, 1),  // A1
		msg(3, nil, chat.RoleUser, 2),          // U2 (edit of U1)
		msg(4, pid(3), chat.RoleAssistant, 3),  // A2
	}

	group, index := Siblings(messages, messages[2])
	if len(group) != 2 || index != 1 {
		t.Fatalf("expected U2 at index 1 of a 2-message group, got index %d of %d", index, len(group))
	}

	path := ActivePath(messages, chat.BranchSelections{chat.RootKey: 1})
	if len(path) != 2 {
		t.Fatalf("expected path [U2 A2], got %d messages", len(path))
	}
	if path[0].ID != 3 || path[1].ID != 4 {
		t.Errorf("expected path ids [3 4], got [%d %d]", path[0].ID, path[1].ID)
	}
}

// TestRegenerateScenario_ResubmittedSibling walks the canonical
// regenerate flow: U1 -> A1, regenerating A1 resubmits U1's content as
// root sibling U1' with fresh child A1'.
func TestRegenerateScenario_ResubmittedSibling(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),         // U1
		msg(2, pid(1), chat.RoleAssistant, 1), // A1
		msg(3, nil, chat.RoleUser, 2),         // U1' (resubmitted copy)
		msg(4, pid(3), chat.RoleAssistant, 3), // A1'
	}

	group, index := Siblings(messages, messages[2])
	if len(group) != 2 || index != 1 {
		t.Fatalf("expected U1' at index 1 of a 2-message group, got index %d of %d", index, len(group))
	}

	path := ActivePath(messages, chat.BranchSelections{chat.RootKey: 1})
	if path[len(path)-1].ID != 4 {
		t.Errorf("expected regenerated branch to end at A1' (id 4), got %d", path[len(path)-1].ID)
	}
}

// TestBranchIndexForNew verifies a fresh sibling lands at the end of
// its group.
func TestBranchIndexForNew(t *testing.T) {
	messages := []chat.Message{
		msg(1, nil, chat.RoleUser, 0),
		msg(2, nil, chat.RoleUser, 1),
	}

	if got := BranchIndexForNew(messages, nil, false); got != 2 {
		t.Errorf("expected new root sibling index 2, got %d", got)
	}
	if got := BranchIndexForNew(messages, pid(1), false); got != 0 {
		t.Errorf("expected first child index 0, got %d", got)
	}
}
