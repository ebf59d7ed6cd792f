package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Document is a source file registered under a space. The file itself lives
// in external storage; only the locator is recorded here.
type Document struct {
	ID         surrealmodels.RecordID `json:"id"`
	SpaceID    int64                  `json:"space_id"`
	Filename   string                 `json:"filename"`
	FileType   string                 `json:"file_type"`
	FileURL    string                 `json:"file_url"`
	UploadedAt time.Time              `json:"uploaded_at"`
}

// DocumentInput is the input structure for registering a document.
type DocumentInput struct {
	SpaceID  int64  `json:"space_id"`
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	FileURL  string `json:"file_url"`
}
