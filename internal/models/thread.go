package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Thread is a conversation container inside a space.
type Thread struct {
	ID        surrealmodels.RecordID `json:"id"`
	SpaceID   int64                  `json:"space_id"`
	Title     string                 `json:"title"`
	CreatorID int64                  `json:"creator_id"`
	IsPublic  bool                   `json:"is_public"`
	CreatedAt time.Time              `json:"created_at"`
}

// ContextAnchor links a thread to a (document, page) pair for citation trails.
// Unique per (thread, document, page).
type ContextAnchor struct {
	ID         surrealmodels.RecordID `json:"id"`
	ThreadID   int64                  `json:"thread_id"`
	DocumentID int64                  `json:"document_id"`
	PageNumber int                    `json:"page_number"`
}

// ThreadTitleMax is the longest thread title derived from a seed query.
const ThreadTitleMax = 47

// ThreadTitle derives a thread title from the first user query:
// a truncated prefix with an ellipsis when the query is long.
func ThreadTitle(seed string) string {
	if len(seed) > ThreadTitleMax {
		return seed[:ThreadTitleMax] + "..."
	}
	return seed
}
