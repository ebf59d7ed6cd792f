package db

import (
	"context"
	"fmt"

	"github.com/clarkhq/clark/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateSpace creates a workspace and returns its id.
func (c *Client) CreateSpace(ctx context.Context, input models.SpaceInput) (int64, error) {
	id, err := c.NextID(ctx, "space")
	if err != nil {
		return 0, err
	}

	_, err = surrealdb.Query[[]models.Space](ctx, c.db, `
		CREATE type::thing("space", $id) CONTENT {
			name: $name,
			description: $description
		}
	`, map[string]any{
		"id":          id,
		"name":        input.Name,
		"description": input.Description,
	})
	if err != nil {
		return 0, fmt.Errorf("create space: %w", wrapQueryError(err))
	}
	return id, nil
}

// GetSpace retrieves a space by id. Returns ErrNotFound if missing.
func (c *Client) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	results, err := surrealdb.Query[[]models.Space](ctx, c.db, `
		SELECT * FROM type::thing("space", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get space: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("space %d: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListSpaces returns all workspaces, newest first.
func (c *Client) ListSpaces(ctx context.Context) ([]models.Space, error) {
	results, err := surrealdb.Query[[]models.Space](ctx, c.db, `
		SELECT * FROM space ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Space{}, nil
	}
	return (*results)[0].Result, nil
}

// ListSpaceIDs returns the ids of all spaces that have indexed chunks.
// Used for cross-space query fan-out when no space filter is given.
func (c *Client) ListSpaceIDs(ctx context.Context) ([]int64, error) {
	results, err := surrealdb.Query[[]struct {
		SpaceID int64 `json:"space_id"`
	}](ctx, c.db, `
		SELECT space_id FROM chunk GROUP BY space_id
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list space ids: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []int64{}, nil
	}
	ids := make([]int64, 0, len((*results)[0].Result))
	for _, row := range (*results)[0].Result {
		ids = append(ids, row.SpaceID)
	}
	return ids, nil
}
