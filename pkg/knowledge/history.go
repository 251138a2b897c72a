package knowledge

import (
	"context"

	"github.com/cagcore/engine/pkg/models"
	"github.com/jmoiron/sqlx"
)

// exchangeRow mirrors one row of session_exchanges.
type exchangeRow struct {
	FromUser bool   `db:"from_user"`
	Content  string `db:"content"`
}

// DirectSessionHistory implements models.SessionHistorySource against
// the session_exchanges relation, the conversation-turn counterpart to
// knowledge_items used only by the direct-mode session layer.
type DirectSessionHistory struct {
	db *sqlx.DB
}

// NewDirectSessionHistory wraps an already-open *sqlx.DB.
func NewDirectSessionHistory(db *sqlx.DB) *DirectSessionHistory {
	return &DirectSessionHistory{db: db}
}

// GetSessionHistory returns the most recent limit exchanges for
// sessionID, oldest first. Satisfies models.SessionHistorySource.
func (h *DirectSessionHistory) GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]models.Exchange, error) {
	var rows []exchangeRow
	q := `SELECT from_user, content FROM session_exchanges
		WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := h.db.SelectContext(ctx, &rows, q, sessionID, limit); err != nil {
		return nil, transient("get_session_history", err)
	}
	out := make([]models.Exchange, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, models.Exchange{FromUser: rows[i].FromUser, Content: rows[i].Content})
	}
	return out, nil
}
