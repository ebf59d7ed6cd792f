package db

import (
	"context"
	"fmt"

	"github.com/clarkhq/clark/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MessageRecord carries the fully computed fields of a new message. Path and
// branch are computed by the conversation service before insertion; the db
// layer writes them verbatim.
type MessageRecord struct {
	ID       int64
	ThreadID int64
	UserID   int64
	Role     string
	Content  string
	Path     string
	ParentID *int64
	BranchID *int64
}

// CreateMessage inserts a message with its precomputed path and branch id.
func (c *Client) CreateMessage(ctx context.Context, rec MessageRecord) error {
	_, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		CREATE type::thing("message", $id) CONTENT {
			thread_id: $thread_id,
			user_id: $user_id,
			role: $role,
			content: $content,
			path: $path,
			parent_message_id: $parent_id,
			branch_id: $branch_id
		}
	`, map[string]any{
		"id":        rec.ID,
		"thread_id": rec.ThreadID,
		"user_id":   rec.UserID,
		"role":      rec.Role,
		"content":   rec.Content,
		"path":      rec.Path,
		"parent_id": rec.ParentID,
		"branch_id": rec.BranchID,
	})
	if err != nil {
		return fmt.Errorf("create message: %w", wrapQueryError(err))
	}
	return nil
}

// GetMessage retrieves a message by id. Returns ErrNotFound if missing.
func (c *Client) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM type::thing("message", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get message: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// MessagesByIDs bulk-fetches messages by id, returned in ascending id order.
// Ids that don't exist are silently absent from the result.
func (c *Client) MessagesByIDs(ctx context.Context, ids []int64) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	records := make([]surrealmodels.RecordID, 0, len(ids))
	for _, id := range ids {
		records = append(records, surrealmodels.NewRecordID("message", id))
	}

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message WHERE id IN $ids ORDER BY id ASC
	`, map[string]any{"ids": records})
	if err != nil {
		return nil, fmt.Errorf("messages by ids: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}

// LastMessageID returns the id of the most recent message in the given
// branch of a thread. A nil branchID means the main thread (branch_id NONE).
// Returns ErrNotFound when the thread or branch has no messages yet.
func (c *Client) LastMessageID(ctx context.Context, threadID int64, branchID *int64) (int64, error) {
	branchClause := "branch_id IS NONE"
	vars := map[string]any{"thread": threadID}
	if branchID != nil {
		branchClause = "branch_id = $branch"
		vars["branch"] = *branchID
	}

	sql := fmt.Sprintf(`
		SELECT * FROM message
		WHERE thread_id = $thread AND %s
		ORDER BY id DESC LIMIT 1
	`, branchClause)

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("last message: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("last message in thread %d: %w", threadID, ErrNotFound)
	}
	return models.RecordIDInt64((*results)[0].Result[0].ID)
}

// ForkStarts returns every fork-start message of a thread: messages whose
// branch_id equals their own id.
func (c *Client) ForkStarts(ctx context.Context, threadID int64) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message
		WHERE thread_id = $thread AND branch_id != NONE AND branch_id = record::id(id)
		ORDER BY id ASC
	`, map[string]any{"thread": threadID})
	if err != nil {
		return nil, fmt.Errorf("fork starts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}

// MessagesByBranch returns the messages sharing a branch id, ascending by id.
func (c *Client) MessagesByBranch(ctx context.Context, branchID int64) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message WHERE branch_id = $branch ORDER BY id ASC
	`, map[string]any{"branch": branchID})
	if err != nil {
		return nil, fmt.Errorf("messages by branch: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}
