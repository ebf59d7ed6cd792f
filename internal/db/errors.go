package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	// Occurs when concurrent operations modify the same records; callers
	// should retry.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrDataIntegrity indicates an inconsistent conversation tree: a message
	// referenced a parent whose path or branch could not be resolved. The
	// append must fail rather than write a corrupt path.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// wrapQueryError inspects a SurrealDB error and wraps known query error
// patterns with the matching sentinel. Returns the original error otherwise.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
	}

	return err
}
