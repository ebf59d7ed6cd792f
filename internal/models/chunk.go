package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is a contiguous slice of a document's text plus its enrichment blurb.
// Immutable once created. Identity for deduplication is the exact enriched
// content string.
type Chunk struct {
	ID surrealmodels.RecordID `json:"id"`

	// Provenance
	SpaceID    int64  `json:"space_id"`
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	Position   int    `json:"position"` // Order within document

	// Content. Content is the enriched text ("Context: ...\n\nContent: ...")
	// or the raw text when enrichment was skipped. OriginalContent always
	// preserves the raw chunk for display and generation.
	Content         string `json:"content"`
	OriginalContent string `json:"original_content"`

	// Search
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkInput is the input structure for indexing a chunk.
type ChunkInput struct {
	SpaceID         int64     `json:"space_id"`
	DocumentID      int64     `json:"document_id"`
	Filename        string    `json:"filename"`
	Position        int       `json:"position"`
	Content         string    `json:"content"`
	OriginalContent string    `json:"original_content"`
	Embedding       []float32 `json:"embedding"`
}

// DisplayContent returns the text preferred for prompts and previews:
// the original chunk when preserved, otherwise the enriched content.
func (c Chunk) DisplayContent() string {
	if c.OriginalContent != "" {
		return c.OriginalContent
	}
	return c.Content
}
