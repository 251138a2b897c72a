package knowledge

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagcore/engine/pkg/models"
)

func TestGetSessionHistory_ReturnsOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "postgres")
	history := NewDirectSessionHistory(sqlxDB)

	// Query returns newest-first (as issued); GetSessionHistory must reverse it.
	rows := sqlmock.NewRows([]string{"from_user", "content"}).
		AddRow(false, "second").
		AddRow(true, "first")
	mock.ExpectQuery("SELECT from_user, content FROM session_exchanges").
		WithArgs("session-1", 2).
		WillReturnRows(rows)

	exchanges, err := history.GetSessionHistory(context.Background(), "session-1", 2)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, models.Exchange{FromUser: true, Content: "first"}, exchanges[0])
	assert.Equal(t, models.Exchange{FromUser: false, Content: "second"}, exchanges[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSessionHistory_PropagatesTransientError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "postgres")
	history := NewDirectSessionHistory(sqlxDB)

	mock.ExpectQuery("SELECT from_user, content FROM session_exchanges").
		WillReturnError(assertErr("connection reset"))

	_, err = history.GetSessionHistory(context.Background(), "session-1", 5)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
