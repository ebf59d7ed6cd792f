package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// NextID allocates the next integer id from the named sequence.
// Allocation is atomic; SurrealDB serializes the UPSERT per record, so two
// concurrent callers never observe the same value. Ids are monotonically
// increasing, which the message-ordering invariant relies on.
func (c *Client) NextID(ctx context.Context, name string) (int64, error) {
	results, err := surrealdb.Query[[]struct {
		Next int64 `json:"next"`
	}](ctx, c.db, `
		UPSERT type::thing("sequence", $name) SET next += 1 RETURN AFTER
	`, map[string]any{"name": name})
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", name, wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("next id for %s: empty result", name)
	}
	return (*results)[0].Result[0].Next, nil
}
