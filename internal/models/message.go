package models

import (
	"strconv"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a node in a thread's conversation tree.
//
// Path is the materialized ancestor chain: the parent's path followed by this
// message's own id and a trailing slash (e.g. "1/5/20/"). The full ancestor
// chain of any message is recoverable from its path alone, without recursive
// queries.
//
// BranchID is nil for the main thread. A fork-start message carries its own id
// as branch id; descendants inherit it.
type Message struct {
	ID        surrealmodels.RecordID `json:"id"`
	ThreadID  int64                  `json:"thread_id"`
	UserID    int64                  `json:"user_id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Path      string                 `json:"path"`
	ParentID  *int64                 `json:"parent_message_id,omitempty"`
	BranchID  *int64                 `json:"branch_id,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// IDInt returns the message's numeric id.
func (m Message) IDInt() (int64, error) {
	return RecordIDInt64(m.ID)
}

// IsForkStart reports whether this message opened a branch
// (its branch id equals its own id).
func (m Message) IsForkStart() bool {
	if m.BranchID == nil {
		return false
	}
	id, err := m.IDInt()
	if err != nil {
		return false
	}
	return *m.BranchID == id
}

// ChildPath computes the materialized path of a child message:
// path(m) = path(parent) + id(m) + "/".
func ChildPath(parentPath string, id int64) string {
	return parentPath + strconv.FormatInt(id, 10) + "/"
}

// ParsePath parses a materialized path ("1/5/20/") into its ordered id chain.
// Malformed segments are skipped.
func ParsePath(path string) []int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
