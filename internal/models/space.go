package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Space is a workspace partition. Documents, threads, and retrieval indexes
// are isolated per space.
type Space struct {
	ID          surrealmodels.RecordID `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// SpaceInput is the input structure for creating a space.
type SpaceInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}
