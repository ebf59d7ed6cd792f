package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/llm"
	"github.com/clarkhq/clark/internal/models"
)

// anchorStore links answered threads to their cited documents.
type anchorStore interface {
	DocumentIDByFilename(ctx context.Context, spaceID int64, filename string) (int64, error)
	LinkThreadToDocument(ctx context.Context, threadID, documentID int64, pageNumber int) error
}

// historyLimit caps the conversation prefix fed back into the model.
const historyLimit = 20

// PostMessageInput is one incoming chat turn.
type PostMessageInput struct {
	UserID   int64
	SpaceID  int64
	Text     string
	ThreadID *int64
	ParentID *int64
	// IsFork marks the new message as the start of an alternative
	// continuation under ParentID.
	IsFork     bool
	UseHistory bool
}

// PostMessageResult reports the stored turn and the generated answer.
type PostMessageResult struct {
	ThreadID  int64  `json:"thread_id"`
	MessageID int64  `json:"message_id"`
	Answer    string `json:"response"`
	Source    string `json:"source,omitempty"`
	IsFork    bool   `json:"is_fork"`
}

// ChatService coordinates conversation state and answer production for one
// user turn.
type ChatService struct {
	conversation *ConversationService
	query        *QueryService
	anchors      anchorStore
}

// NewChatService creates a chat service.
func NewChatService(conversation *ConversationService, query *QueryService, anchors anchorStore) *ChatService {
	return &ChatService{
		conversation: conversation,
		query:        query,
		anchors:      anchors,
	}
}

// PostMessage runs one full turn: thread and parent resolution, user-turn
// logging, history fetch, answer generation, assistant-turn logging, and
// source anchoring. The user turn is stored before generation starts, so a
// generation failure or client disconnect never loses the question.
func (c *ChatService) PostMessage(ctx context.Context, input PostMessageInput) (*PostMessageResult, error) {
	return c.run(ctx, input, c.query.Answer)
}

// PostMessageStream behaves like PostMessage with the answer streamed
// through onChunk as it is generated.
func (c *ChatService) PostMessageStream(ctx context.Context, input PostMessageInput, onChunk func(string)) (*PostMessageResult, error) {
	return c.run(ctx, input, func(ctx context.Context, req QueryRequest) (Result, error) {
		return c.query.AnswerStream(ctx, req, onChunk)
	})
}

func (c *ChatService) run(ctx context.Context, input PostMessageInput, answer func(context.Context, QueryRequest) (Result, error)) (*PostMessageResult, error) {
	threadID, err := c.conversation.EnsureThread(ctx, input.SpaceID, input.Text, input.ThreadID, input.UserID)
	if err != nil {
		return nil, err
	}

	parentID, err := c.conversation.ResolveParent(ctx, threadID, input.ParentID, nil)
	if err != nil {
		return nil, err
	}

	userMsg, err := c.conversation.Append(ctx, AppendInput{
		ThreadID:    threadID,
		UserID:      input.UserID,
		Role:        models.RoleUser,
		Content:     input.Text,
		ParentID:    parentID,
		IsForkStart: input.IsFork,
	})
	if err != nil {
		return nil, err
	}
	userMsgID, err := userMsg.IDInt()
	if err != nil {
		return nil, err
	}

	var history []llm.Turn
	if input.UseHistory && parentID != nil {
		ancestors, err := c.conversation.Ancestors(ctx, *parentID, historyLimit)
		if err != nil {
			slog.Warn("history fetch failed, answering without context", "error", err)
		} else {
			history = toTurns(ancestors)
		}
	}

	space := input.SpaceID
	result, err := answer(ctx, QueryRequest{
		Query:   input.Text,
		SpaceID: &space,
		History: history,
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.conversation.Append(ctx, AppendInput{
		ThreadID: threadID,
		UserID:   input.UserID,
		Role:     models.RoleAssistant,
		Content:  result.Answer,
		ParentID: &userMsgID,
	}); err != nil {
		return nil, err
	}

	if result.SourceDocument != "" && !result.GenerationFailed {
		c.anchorSource(ctx, threadID, input.SpaceID, result.SourceDocument)
	}

	return &PostMessageResult{
		ThreadID:  threadID,
		MessageID: userMsgID,
		Answer:    result.Answer,
		Source:    result.SourceDocument,
		IsFork:    input.IsFork,
	}, nil
}

// anchorSource links the thread to the cited document. Anchoring is best
// effort; a failed link never fails the turn.
func (c *ChatService) anchorSource(ctx context.Context, threadID, spaceID int64, sourceDocument string) {
	filename := sourceDocument
	if unquoted, err := url.PathUnescape(sourceDocument); err == nil {
		filename = unquoted
	}

	docID, err := c.anchors.DocumentIDByFilename(ctx, spaceID, filename)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Warn("document lookup for anchoring failed", "filename", filename, "error", err)
		}
		return
	}
	if err := c.anchors.LinkThreadToDocument(ctx, threadID, docID, 0); err != nil {
		slog.Warn("thread anchoring failed", "thread_id", threadID, "document_id", docID, "error", err)
	}
}

func toTurns(messages []models.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
