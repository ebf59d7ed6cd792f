// Package models defines data structures for the Clark document Q&A store.
package models

import (
	"fmt"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDInt64 safely extracts the numeric ID from a SurrealDB RecordID.
// Returns an error if the ID is not an integer type.
func RecordIDInt64(id surrealmodels.RecordID) (int64, error) {
	switch v := id.ID.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected ID type: %T (expected integer)", id.ID)
	}
}

// MustRecordIDInt64 extracts the numeric ID, panicking if not an integer.
// Use only when the ID is known to be numeric (e.g., after a sequence allocation).
func MustRecordIDInt64(id surrealmodels.RecordID) int64 {
	n, err := RecordIDInt64(id)
	if err != nil {
		panic(err)
	}
	return n
}
