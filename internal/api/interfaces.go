package api

import (
	"context"

	"github.com/blockedby/grouppulse/internal/telegram"
)

// GroupDirectory defines the interface for listing groups.
type GroupDirectory interface {
	ListGroups(ctx context.Context) ([]telegram.Group, error)
}

// MessageFetcher defines the interface for fetching recent messages.
type MessageFetcher interface {
	RecentMessages(ctx context.Context, groupID int64, limit int) ([]telegram.RawMessage, error)
}

// SessionState reports the Telegram session status.
type SessionState interface {
	Status() telegram.Status
}
