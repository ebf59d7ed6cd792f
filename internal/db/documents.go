package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clarkhq/clark/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateDocument registers a document under a space and returns its id.
// The file itself lives in external storage; only the locator is recorded.
func (c *Client) CreateDocument(ctx context.Context, input models.DocumentInput) (int64, error) {
	id, err := c.NextID(ctx, "document")
	if err != nil {
		return 0, err
	}

	_, err = surrealdb.Query[[]models.Document](ctx, c.db, `
		CREATE type::thing("document", $id) CONTENT {
			space_id: $space_id,
			filename: $filename,
			file_type: $file_type,
			file_url: $file_url
		}
	`, map[string]any{
		"id":        id,
		"space_id":  input.SpaceID,
		"filename":  input.Filename,
		"file_type": input.FileType,
		"file_url":  input.FileURL,
	})
	if err != nil {
		return 0, fmt.Errorf("create document: %w", wrapQueryError(err))
	}
	return id, nil
}

// GetDocument retrieves a document by id. Returns ErrNotFound if missing.
func (c *Client) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT * FROM type::thing("document", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// DocumentsForSpace returns the documents registered under a space,
// most recently uploaded first.
func (c *Client) DocumentsForSpace(ctx context.Context, spaceID int64) ([]models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT * FROM document WHERE space_id = $space ORDER BY uploaded_at DESC
	`, map[string]any{"space": spaceID})
	if err != nil {
		return nil, fmt.Errorf("documents for space: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Document{}, nil
	}
	return (*results)[0].Result, nil
}

// DocumentIDByFilename finds a document id by filename suffix match, scoped
// to a space so the same filename can exist in different spaces. Returns
// ErrNotFound when no document matches.
func (c *Client) DocumentIDByFilename(ctx context.Context, spaceID int64, filename string) (int64, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT * FROM document
		WHERE space_id = $space AND string::ends_with(filename, $filename)
		LIMIT 1
	`, map[string]any{"space": spaceID, "filename": filename})
	if err != nil {
		return 0, fmt.Errorf("document by filename: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("document %q in space %d: %w", filename, spaceID, ErrNotFound)
	}
	return models.RecordIDInt64((*results)[0].Result[0].ID)
}

// LinkThreadToDocument upserts a context anchor for (thread, document, page).
// A duplicate link is not an error; the unique index keeps one row.
func (c *Client) LinkThreadToDocument(ctx context.Context, threadID, documentID int64, pageNumber int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE context_anchor CONTENT {
			thread_id: $thread,
			document_id: $document,
			page_number: $page
		}
	`, map[string]any{
		"thread":   threadID,
		"document": documentID,
		"page":     pageNumber,
	})
	if err != nil {
		var queryErr *surrealdb.QueryError
		if errors.As(err, &queryErr) && strings.Contains(queryErr.Message, "unique_anchor") {
			return nil
		}
		return fmt.Errorf("link thread to document: %w", wrapQueryError(err))
	}
	return nil
}

// AnchorsForThread returns the context anchors of a thread.
func (c *Client) AnchorsForThread(ctx context.Context, threadID int64) ([]models.ContextAnchor, error) {
	results, err := surrealdb.Query[[]models.ContextAnchor](ctx, c.db, `
		SELECT * FROM context_anchor WHERE thread_id = $thread
	`, map[string]any{"thread": threadID})
	if err != nil {
		return nil, fmt.Errorf("anchors for thread: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.ContextAnchor{}, nil
	}
	return (*results)[0].Result, nil
}

// ThreadsForDocument returns the threads anchored to a document, ordered by
// anchor page then recency. Used for the per-document discussion listing.
func (c *Client) ThreadsForDocument(ctx context.Context, documentID int64) ([]models.Thread, error) {
	anchors, err := surrealdb.Query[[]models.ContextAnchor](ctx, c.db, `
		SELECT * FROM context_anchor WHERE document_id = $document ORDER BY page_number ASC
	`, map[string]any{"document": documentID})
	if err != nil {
		return nil, fmt.Errorf("threads for document: %w", wrapQueryError(err))
	}

	if anchors == nil || len(*anchors) == 0 || len((*anchors)[0].Result) == 0 {
		return []models.Thread{}, nil
	}

	threads := make([]models.Thread, 0, len((*anchors)[0].Result))
	seen := make(map[int64]struct{})
	for _, anchor := range (*anchors)[0].Result {
		if _, ok := seen[anchor.ThreadID]; ok {
			continue
		}
		seen[anchor.ThreadID] = struct{}{}

		thread, err := c.GetThread(ctx, anchor.ThreadID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		threads = append(threads, *thread)
	}
	return threads, nil
}
