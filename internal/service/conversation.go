package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// conversationStore is the persistence surface ConversationService needs.
// *db.Client satisfies it; tests use an in-memory fake.
type conversationStore interface {
	NextID(ctx context.Context, name string) (int64, error)
	CreateThread(ctx context.Context, spaceID int64, title string, creatorID int64) (int64, error)
	GetThread(ctx context.Context, id int64) (*models.Thread, error)
	ThreadMessages(ctx context.Context, threadID int64) ([]models.Message, error)
	CreateMessage(ctx context.Context, rec db.MessageRecord) error
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	MessagesByIDs(ctx context.Context, ids []int64) ([]models.Message, error)
	LastMessageID(ctx context.Context, threadID int64, branchID *int64) (int64, error)
	ForkStarts(ctx context.Context, threadID int64) ([]models.Message, error)
	MessagesByBranch(ctx context.Context, branchID int64) ([]models.Message, error)
}

// ConversationService manages the branchable message tree of each thread.
// Appends under the same thread are serialized so path and branch
// computation never reads a stale parent.
type ConversationService struct {
	store conversationStore

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewConversationService creates a conversation service.
func NewConversationService(store conversationStore) *ConversationService {
	return &ConversationService{
		store: store,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (s *ConversationService) threadLock(threadID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[threadID] = lock
	}
	return lock
}

// EnsureThread returns the existing thread id or creates a thread titled
// after the seed text.
func (s *ConversationService) EnsureThread(ctx context.Context, spaceID int64, seedText string, threadID *int64, creatorID int64) (int64, error) {
	if threadID != nil {
		if _, err := s.store.GetThread(ctx, *threadID); err != nil {
			return 0, err
		}
		return *threadID, nil
	}
	return s.store.CreateThread(ctx, spaceID, models.ThreadTitle(seedText), creatorID)
}

// ResolveParent determines the parent for a new message. An explicitly
// requested parent is used verbatim (the caller owns fork intent);
// otherwise the most recent message of the branch (or the main thread)
// becomes the parent. A nil result means the thread or branch is empty.
func (s *ConversationService) ResolveParent(ctx context.Context, threadID int64, requestedParent, branchID *int64) (*int64, error) {
	if requestedParent != nil {
		return requestedParent, nil
	}

	last, err := s.store.LastMessageID(ctx, threadID, branchID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &last, nil
}

// AppendInput describes a message to append.
type AppendInput struct {
	ThreadID    int64
	UserID      int64
	Role        string
	Content     string
	ParentID    *int64
	IsForkStart bool
}

// Append inserts a message, computing its materialized path and branch id
// from the parent. Path of a child is the parent's path plus the child's
// own id; a fork start becomes its own branch, everything else inherits
// the parent's branch.
func (s *ConversationService) Append(ctx context.Context, input AppendInput) (*models.Message, error) {
	lock := s.threadLock(input.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	var (
		parentPath string
		branchID   *int64
	)
	if input.ParentID != nil {
		parent, err := s.store.GetMessage(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("append: parent %d missing: %w", *input.ParentID, db.ErrDataIntegrity)
			}
			return nil, err
		}
		if parent.ThreadID != input.ThreadID {
			return nil, fmt.Errorf("append: parent %d belongs to thread %d, not %d: %w",
				*input.ParentID, parent.ThreadID, input.ThreadID, db.ErrDataIntegrity)
		}
		parentPath = parent.Path
		branchID = parent.BranchID
	}

	id, err := s.store.NextID(ctx, "message")
	if err != nil {
		return nil, err
	}

	if input.IsForkStart {
		own := id
		branchID = &own
	}

	rec := db.MessageRecord{
		ID:       id,
		ThreadID: input.ThreadID,
		UserID:   input.UserID,
		Role:     input.Role,
		Content:  input.Content,
		Path:     models.ChildPath(parentPath, id),
		ParentID: input.ParentID,
		BranchID: branchID,
	}
	if err := s.store.CreateMessage(ctx, rec); err != nil {
		return nil, err
	}

	return &models.Message{
		ID:       surrealmodels.NewRecordID("message", id),
		ThreadID: rec.ThreadID,
		UserID:   rec.UserID,
		Role:     rec.Role,
		Content:  rec.Content,
		Path:     rec.Path,
		ParentID: rec.ParentID,
		BranchID: rec.BranchID,
	}, nil
}

// Ancestors returns the conversation prefix ending at the given message, in
// ascending id order. The chain is recovered from the materialized path, so
// cost is one bulk fetch regardless of depth. lastK > 0 caps the result to
// the most recent lastK messages.
func (s *ConversationService) Ancestors(ctx context.Context, messageID int64, lastK int) ([]models.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	ids := models.ParsePath(msg.Path)
	if lastK > 0 && len(ids) > lastK {
		ids = ids[len(ids)-lastK:]
	}
	return s.store.MessagesByIDs(ctx, ids)
}

// ForkPreview summarizes one alternative continuation under a message.
type ForkPreview struct {
	BranchID int64  `json:"branch_id"`
	Preview  string `json:"preview"`
}

const forkPreviewLen = 80

// ForkIndex groups every fork start of a thread under its parent message
// id, with a content preview per branch. Lets a reader discover where the
// conversation diverges.
func (s *ConversationService) ForkIndex(ctx context.Context, threadID int64) (map[int64][]ForkPreview, error) {
	forks, err := s.store.ForkStarts(ctx, threadID)
	if err != nil {
		return nil, err
	}

	index := make(map[int64][]ForkPreview)
	for _, fork := range forks {
		if fork.ParentID == nil || fork.BranchID == nil {
			continue
		}
		preview := fork.Content
		if len([]rune(preview)) > forkPreviewLen {
			preview = string([]rune(preview)[:forkPreviewLen]) + "..."
		}
		index[*fork.ParentID] = append(index[*fork.ParentID], ForkPreview{
			BranchID: *fork.BranchID,
			Preview:  preview,
		})
	}
	return index, nil
}

// BranchMessages returns the messages of a forked sub-conversation. With
// includeAncestors the shared prefix above the fork point is prepended,
// giving the full transcript of that alternative timeline.
func (s *ConversationService) BranchMessages(ctx context.Context, branchID int64, includeAncestors bool) ([]models.Message, error) {
	branch, err := s.store.MessagesByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if !includeAncestors || len(branch) == 0 {
		return branch, nil
	}

	first := branch[0]
	if first.ParentID == nil {
		return branch, nil
	}

	prefix, err := s.Ancestors(ctx, *first.ParentID, 0)
	if err != nil {
		return nil, err
	}
	return append(prefix, branch...), nil
}

// ThreadMessages returns every message of a thread in ascending id order.
func (s *ConversationService) ThreadMessages(ctx context.Context, threadID int64) ([]models.Message, error) {
	return s.store.ThreadMessages(ctx, threadID)
}
