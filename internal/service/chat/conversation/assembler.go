package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"arbor/internal/domain/models/chat"
	llmsvc "arbor/internal/domain/services/llm"
	"arbor/internal/service/chat/tree"
)

// Request describes one model submission to assemble.
type Request struct {
	// TargetID is the persisted user message the submission ends at.
	TargetID int64

	// ThreadRootID selects thread mode when non-nil: the history is the
	// thread rooted at this assistant message instead of the target's
	// main-tree ancestor chain.
	ThreadRootID *int64

	// LiveContent and LiveFiles carry the submitted turn as it arrived
	// in the request. The target message always uses these, never its
	// stored rows, so freshly uploaded files reach the model on the
	// submission that carried them.
	LiveContent string
	LiveFiles   []chat.MessageFile
}

// Assembler converts a conversation snapshot plus a submission into the
// ordered provider messages for one model request. It is a pure
// conversion service; data loading happens in the caller.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates a new Assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Assemble builds the root-to-target message sequence for a submission,
// oldest first. Ancestors rebuild their content blocks from stored
// attachment rows; the target turn uses the live request payload.
// Unknown ids and dangling parent links degrade to a partial (possibly
// single-turn) history rather than failing the request.
func (a *Assembler) Assemble(
	ctx context.Context,
	snapshot []chat.Message,
	filesByMessage map[int64][]chat.MessageFile,
	req Request,
) ([]llmsvc.Message, error) {
	var rows []chat.Message
	if req.ThreadRootID != nil {
		rows = a.threadRows(snapshot, *req.ThreadRootID, req.TargetID)
	} else {
		rows = a.ancestorRows(snapshot, req.TargetID)
	}

	messages := make([]llmsvc.Message, 0, len(rows)+1)
	for _, row := range rows {
		if row.ID == req.TargetID {
			// Target content comes from the live request below.
			continue
		}
		role, err := messageRole(row.Role)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(row.Content) == "" && len(filesByMessage[row.ID]) == 0 {
			a.logger.Warn("skipping empty message in assembled path", "message_id", row.ID)
			continue
		}
		messages = append(messages, llmsvc.Message{
			Role:    role,
			Content: BuildContentBlocks(row.Content, filesByMessage[row.ID]),
		})
	}

	messages = append(messages, llmsvc.Message{
		Role:    chat.RoleUser,
		Content: BuildContentBlocks(req.LiveContent, req.LiveFiles),
	})
	return messages, nil
}

// ancestorRows walks parent links backward from the target, prepending,
// until it reaches a root or a dangling reference. The returned chain
// is root-to-target, oldest first, and includes the target row itself
// when the snapshot contains it.
func (a *Assembler) ancestorRows(snapshot []chat.Message, targetID int64) []chat.Message {
	byID := make(map[int64]chat.Message, len(snapshot))
	for _, m := range snapshot {
		byID[m.ID] = m
	}

	chain := []chat.Message{}
	current, ok := byID[targetID]
	if !ok {
		a.logger.Warn("assembly target not in snapshot, degrading to single-turn history", "message_id", targetID)
		return chain
	}

	// The walk is bounded by the snapshot size; append-only parent links
	// cannot legitimately exceed it.
	for depth := 0; depth <= len(byID); depth++ {
		chain = append([]chat.Message{current}, chain...)
		if current.ParentMessageID == nil {
			return chain
		}
		parent, ok := byID[*current.ParentMessageID]
		if !ok {
			a.logger.Warn("dangling parent link, returning partial history",
				"message_id", current.ID, "parent_message_id", *current.ParentMessageID)
			return chain
		}
		current = parent
	}
	return chain
}

// threadRows resolves the thread history for a submission: the root
// message first, then the oldest thread-flagged child at each level.
// The wire-submission walk deliberately ignores branch selections. The
// already-persisted target is excluded so the live turn is not
// duplicated when it is the only child of the thread leaf.
func (a *Assembler) threadRows(snapshot []chat.Message, rootID, targetID int64) []chat.Message {
	withoutTarget := make([]chat.Message, 0, len(snapshot))
	for _, m := range snapshot {
		if m.ID == targetID {
			continue
		}
		withoutTarget = append(withoutTarget, m)
	}

	rows := tree.ThreadPath(withoutTarget, rootID, nil)
	if len(rows) == 0 {
		a.logger.Warn("thread root not in snapshot, degrading to single-turn history", "message_id", rootID)
	}
	return rows
}

func messageRole(role string) (string, error) {
	switch role {
	case chat.RoleUser:
		return chat.RoleUser, nil
	case chat.RoleAssistant:
		return chat.RoleAssistant, nil
	default:
		return "", fmt.Errorf("unsupported message role: %s", role)
	}
}
