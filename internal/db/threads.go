package db

import (
	"context"
	"fmt"

	"github.com/clarkhq/clark/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateThread creates a conversation thread inside a space and returns its id.
func (c *Client) CreateThread(ctx context.Context, spaceID int64, title string, creatorID int64) (int64, error) {
	id, err := c.NextID(ctx, "thread")
	if err != nil {
		return 0, err
	}

	_, err = surrealdb.Query[[]models.Thread](ctx, c.db, `
		CREATE type::thing("thread", $id) CONTENT {
			space_id: $space_id,
			title: $title,
			creator_id: $creator_id,
			is_public: true
		}
	`, map[string]any{
		"id":         id,
		"space_id":   spaceID,
		"title":      title,
		"creator_id": creatorID,
	})
	if err != nil {
		return 0, fmt.Errorf("create thread: %w", wrapQueryError(err))
	}
	return id, nil
}

// GetThread retrieves a thread by id. Returns ErrNotFound if missing.
func (c *Client) GetThread(ctx context.Context, id int64) (*models.Thread, error) {
	results, err := surrealdb.Query[[]models.Thread](ctx, c.db, `
		SELECT * FROM type::thing("thread", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("thread %d: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ThreadsForSpace returns all threads in a space, newest first.
func (c *Client) ThreadsForSpace(ctx context.Context, spaceID int64) ([]models.Thread, error) {
	results, err := surrealdb.Query[[]models.Thread](ctx, c.db, `
		SELECT * FROM thread WHERE space_id = $space ORDER BY created_at DESC
	`, map[string]any{"space": spaceID})
	if err != nil {
		return nil, fmt.Errorf("threads for space: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Thread{}, nil
	}
	return (*results)[0].Result, nil
}

// ThreadMessages returns every message of a thread in ascending id order.
func (c *Client) ThreadMessages(ctx context.Context, threadID int64) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message WHERE thread_id = $thread ORDER BY id ASC
	`, map[string]any{"thread": threadID})
	if err != nil {
		return nil, fmt.Errorf("thread messages: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}
