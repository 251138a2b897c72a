package knowledge

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*DirectStoreClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	client := NewDirectStoreClient(sqlxDB, DirectStoreConfig{
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		MaxRetries:         0,
	})
	return client, mock
}

func TestDirectStoreClient_Mode(t *testing.T) {
	client, _ := newTestClient(t)
	assert.Equal(t, ModeDirect, client.Mode())
}

func TestSearchKnowledge_ReturnsMappedItems(t *testing.T) {
	client, mock := newTestClient(t)

	rows := sqlmock.NewRows([]string{"id", "knowledge_type", "category", "title", "content", "created_at", "importance_score", "access_count"}).
		AddRow("kb-1", "procedural", "database", "Pooling", "Use a bounded pool.", time.Now(), 70, 5)
	mock.ExpectQuery("SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count").
		WillReturnRows(rows)

	items, err := client.SearchKnowledge(context.Background(), "pool", nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kb-1", items[0].ID)
	assert.Equal(t, "Pooling", items[0].Title)
	require.NotNil(t, items[0].ImportanceScore)
	assert.Equal(t, 70, *items[0].ImportanceScore)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchKnowledge_NullImportanceScoreIsNilNotZero(t *testing.T) {
	client, mock := newTestClient(t)

	rows := sqlmock.NewRows([]string{"id", "knowledge_type", "category", "title", "content", "created_at", "importance_score", "access_count"}).
		AddRow("kb-2", "procedural", "database", "Untagged", "No score column set.", time.Now(), nil, nil)
	mock.ExpectQuery("SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count").
		WillReturnRows(rows)

	items, err := client.SearchKnowledge(context.Background(), "pool", nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ImportanceScore)
	assert.Nil(t, items[0].AccessCount)
}

func TestSearchKnowledge_ExplicitZeroImportanceScoreIsNotNil(t *testing.T) {
	client, mock := newTestClient(t)

	rows := sqlmock.NewRows([]string{"id", "knowledge_type", "category", "title", "content", "created_at", "importance_score", "access_count"}).
		AddRow("kb-3", "factual", "process", "Floor scored", "Deliberately the lowest priority item.", time.Now(), 0, 0)
	mock.ExpectQuery("SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count").
		WillReturnRows(rows)

	items, err := client.SearchKnowledge(context.Background(), "pool", nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ImportanceScore)
	assert.Equal(t, 0, *items[0].ImportanceScore)
}

func TestSearchKnowledge_PermanentDBErrorIsNotRetried(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery("SELECT").WillReturnError(assertErr("relation \"knowledge_items\" does not exist"))

	_, err := client.SearchKnowledge(context.Background(), "pool", nil, 10)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestStoreKnowledge_ReturnsGeneratedID(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectExec("INSERT INTO knowledge_items").WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := client.StoreKnowledge(context.Background(), StoreRequest{
		KnowledgeType:   "contextual",
		Title:           "t",
		Content:         "c",
		Category:        "cag_interaction",
		ImportanceScore: 30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestGetSessionContext_FiltersByProjectWhenGiven(t *testing.T) {
	client, mock := newTestClient(t)

	rows := sqlmock.NewRows([]string{"id", "knowledge_type", "category", "title", "content", "created_at", "importance_score", "access_count"})
	mock.ExpectQuery("WHERE category ILIKE").WillReturnRows(rows)

	_, err := client.GetSessionContext(context.Background(), 5, "alpha")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
