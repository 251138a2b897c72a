package models

import "context"

// Exchange is one turn of persisted conversation history, used by the
// direct-mode session layer to reconstruct recent back-and-forth. It is
// distinct from KnowledgeItem: exchanges live in their own table and are
// never scored or cached, only replayed into the session layer.
type Exchange struct {
	FromUser bool
	Content  string
}

// SessionHistorySource is the direct-mode collaborator for loading the
// last conversation turns for a session. It sits outside knowledge.Client
// because it returns conversation exchanges, not knowledge items.
type SessionHistorySource interface {
	GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]Exchange, error)
}
