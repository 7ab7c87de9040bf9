// Package conversation persists a bounded per-user turn list.
package conversation

import (
	"context"
	"errors"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
)

// DefaultCap is the number of turns kept per user.
const DefaultCap = 20

// ErrPersist marks a failure to make an append durable. The in-memory view may
// already contain the new turns.
var ErrPersist = errors.New("conversation: persist failed")

// Store is the durable conversation record: userId -> last Cap turns.
type Store interface {
	// Load returns the stored turns with empty entries removed. Unknown users get an
	// empty slice.
	Load(ctx context.Context, userID string) ([]chat.Turn, error)
	// Append adds turns, truncates to the cap and persists. It returns the stored list.
	Append(ctx context.Context, userID string, turns ...chat.Turn) ([]chat.Turn, error)
	Close() error
}

// bound appends turns to history and keeps only the last limit entries.
func bound(history []chat.Turn, limit int, turns ...chat.Turn) []chat.Turn {
	merged := make([]chat.Turn, 0, len(history)+len(turns))
	merged = append(merged, history...)
	merged = append(merged, chat.Clean(turns)...)
	return chat.Tail(merged, limit)
}
