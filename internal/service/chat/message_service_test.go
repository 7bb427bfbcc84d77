package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"arbor/internal/config"
	"arbor/internal/domain"
	chatModels "arbor/internal/domain/models/chat"
	chatSvc "arbor/internal/domain/services/chat"
	serviceAuth "arbor/internal/service/auth"
)

// messageFixture builds one conversation for user-1:
//
//	U1 ── A1 ── U2
//	│      ├─ [thread] TU ── TA
//	U1'                       (root-level edit sibling of U1)
type messageFixture struct {
	svc      chatSvc.MessageService
	msgRepo  *memMsgRepo
	fileRepo *memFileRepo
	convID   int64

	u1, a1, u2, u1Alt, threadUser, threadAssistant chatModels.Message
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	ctx := context.Background()

	convRepo := newMemConvRepo()
	conv := &chatModels.Conversation{UserID: "user-1", Title: "t"}
	if err := convRepo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	msgRepo := newMemMsgRepo()
	add := func(parent *int64, role string, thread bool) chatModels.Message {
		msg := &chatModels.Message{
			ConversationID:  conv.ID,
			ParentMessageID: parent,
			Role:            role,
			Content:         role + " says",
			IsThreadMessage: thread,
		}
		if err := msgRepo.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
		return *msg
	}

	f := &messageFixture{msgRepo: msgRepo, fileRepo: newMemFileRepo(), convID: conv.ID}
	f.u1 = add(nil, chatModels.RoleUser, false)
	f.a1 = add(&f.u1.ID, chatModels.RoleAssistant, false)
	f.u2 = add(&f.a1.ID, chatModels.RoleUser, false)
	f.threadUser = add(&f.a1.ID, chatModels.RoleUser, true)
	f.threadAssistant = add(&f.threadUser.ID, chatModels.RoleAssistant, true)
	f.u1Alt = add(nil, chatModels.RoleUser, false)

	authorizer := serviceAuth.NewOwnerBasedAuthorizer(convRepo, msgRepo)
	f.svc = NewMessageService(msgRepo, f.fileRepo, authorizer, testLogger())
	return f
}

func pathIDs(path []chatModels.Message) []int64 {
	ids := make([]int64, len(path))
	for i, m := range path {
		ids[i] = m.ID
	}
	return ids
}

func TestListMessages_AttachesFiles(t *testing.T) {
	f := newMessageFixture(t)
	f.fileRepo.files[f.u1.ID] = []chatModels.MessageFile{{MessageID: f.u1.ID, FileName: "notes.txt", MimeType: "text/plain"}}

	messages, err := f.svc.ListMessages(context.Background(), f.convID, "user-1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 6 {
		t.Fatalf("expected the full flat list, got %d messages", len(messages))
	}
	if len(messages[0].Files) != 1 || messages[0].Files[0].FileName != "notes.txt" {
		t.Error("attachment missing from the first message")
	}
}

func TestListMessages_ForeignUserForbidden(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.svc.ListMessages(context.Background(), f.convID, "intruder")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for foreign user, got %v", err)
	}
}

func TestResolvePath_DefaultsToOldestBranch(t *testing.T) {
	f := newMessageFixture(t)

	path, err := f.svc.ResolvePath(context.Background(), f.convID, "user-1", &chatSvc.PathRequest{})
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}

	want := []int64{f.u1.ID, f.a1.ID, f.u2.ID}
	got := pathIDs(path)
	if len(got) != len(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path = %v, want %v", got, want)
		}
	}
}

func TestResolvePath_BranchSelectionSwitchesSibling(t *testing.T) {
	f := newMessageFixture(t)

	path, err := f.svc.ResolvePath(context.Background(), f.convID, "user-1", &chatSvc.PathRequest{
		BranchSelections: chatModels.BranchSelections{chatModels.RootKey: 1},
	})
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if len(path) != 1 || path[0].ID != f.u1Alt.ID {
		t.Errorf("path = %v, want just the edit sibling %d", pathIDs(path), f.u1Alt.ID)
	}
}

func TestResolvePath_OutOfRangeSelectionClamps(t *testing.T) {
	f := newMessageFixture(t)

	path, err := f.svc.ResolvePath(context.Background(), f.convID, "user-1", &chatSvc.PathRequest{
		BranchSelections: chatModels.BranchSelections{chatModels.RootKey: 99},
	})
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if len(path) == 0 {
		t.Fatal("stale selection must clamp, not empty the path")
	}
	if path[0].ID != f.u1Alt.ID {
		t.Errorf("expected clamp to the last sibling, got message %d", path[0].ID)
	}
}

func TestResolvePath_ThreadPathStaysInThread(t *testing.T) {
	f := newMessageFixture(t)

	path, err := f.svc.ResolvePath(context.Background(), f.convID, "user-1", &chatSvc.PathRequest{
		ThreadRootID: &f.a1.ID,
	})
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}

	want := []int64{f.a1.ID, f.threadUser.ID, f.threadAssistant.ID}
	got := pathIDs(path)
	if len(got) != len(want) {
		t.Fatalf("thread path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("thread path = %v, want %v", got, want)
		}
	}
}

func TestGetSiblings_ExcludesThreadMessages(t *testing.T) {
	f := newMessageFixture(t)

	// u2 and threadUser share parent a1, but threadUser is in a thread
	resp, err := f.svc.GetSiblings(context.Background(), f.u2.ID, "user-1")
	if err != nil {
		t.Fatalf("GetSiblings failed: %v", err)
	}
	if len(resp.Siblings) != 1 {
		t.Errorf("expected 1 main-tree sibling under a1, got %d", len(resp.Siblings))
	}
	if resp.Index != 0 {
		t.Errorf("index = %d, want 0", resp.Index)
	}
}

func TestGetSiblings_EditSiblingsShareGroup(t *testing.T) {
	f := newMessageFixture(t)

	resp, err := f.svc.GetSiblings(context.Background(), f.u1Alt.ID, "user-1")
	if err != nil {
		t.Fatalf("GetSiblings failed: %v", err)
	}
	if len(resp.Siblings) != 2 {
		t.Errorf("expected 2 root siblings, got %d", len(resp.Siblings))
	}
	if resp.Index != 1 {
		t.Errorf("edit sibling should be index 1, got %d", resp.Index)
	}
}

func TestUpdateThreadDraft_OnThreadRoot(t *testing.T) {
	f := newMessageFixture(t)

	draft := "unsent question"
	if err := f.svc.UpdateThreadDraft(context.Background(), f.a1.ID, "user-1", &draft); err != nil {
		t.Fatalf("UpdateThreadDraft failed: %v", err)
	}

	msg, err := f.msgRepo.GetMessage(context.Background(), f.a1.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if msg.ThreadDraft == nil || *msg.ThreadDraft != draft {
		t.Error("draft was not saved on the thread root")
	}

	// Clearing with nil
	if err := f.svc.UpdateThreadDraft(context.Background(), f.a1.ID, "user-1", nil); err != nil {
		t.Fatalf("clearing draft failed: %v", err)
	}
	msg, _ = f.msgRepo.GetMessage(context.Background(), f.a1.ID)
	if msg.ThreadDraft != nil {
		t.Error("nil draft should clear the stored draft")
	}
}

func TestUpdateThreadDraft_RejectsNonThreadRoots(t *testing.T) {
	f := newMessageFixture(t)
	draft := "d"

	// User message
	if err := f.svc.UpdateThreadDraft(context.Background(), f.u1.ID, "user-1", &draft); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error on user message, got %v", err)
	}
	// Thread-flagged assistant message
	if err := f.svc.UpdateThreadDraft(context.Background(), f.threadAssistant.ID, "user-1", &draft); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error on in-thread assistant, got %v", err)
	}
}

func TestUpdateThreadDraft_RejectsOversizedDraft(t *testing.T) {
	f := newMessageFixture(t)

	big := strings.Repeat("a", config.MaxThreadDraftLength+1)
	err := f.svc.UpdateThreadDraft(context.Background(), f.a1.ID, "user-1", &big)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for oversized draft, got %v", err)
	}
}

func TestDeleteMessage_ChecksOwnership(t *testing.T) {
	f := newMessageFixture(t)

	if err := f.svc.DeleteMessage(context.Background(), f.u2.ID, "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := f.svc.DeleteMessage(context.Background(), f.u2.ID, "user-1"); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if _, err := f.msgRepo.GetMessage(context.Background(), f.u2.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("message still present after delete")
	}
}
