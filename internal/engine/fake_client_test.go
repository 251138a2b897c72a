package engine

import (
	"context"

	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
)

// fakeClient is a scripted knowledge.Client covering every engine
// operation: search (warming phases), contextual/session lookups, and
// store (write-back).
type fakeClient struct {
	mode            knowledge.Mode
	searchItems     []knowledge.Item
	contextualItems []knowledge.Item
	sessionItems    []knowledge.Item
	stored          []knowledge.StoreRequest
	storeErr        error
}

func (f *fakeClient) Mode() knowledge.Mode { return f.mode }

func (f *fakeClient) SearchKnowledge(ctx context.Context, query string, types []knowledge.KnowledgeTypeFilter, limit int) ([]knowledge.Item, error) {
	return f.searchItems, nil
}

func (f *fakeClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]knowledge.Item, error) {
	return f.contextualItems, nil
}

func (f *fakeClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]knowledge.Item, error) {
	return f.sessionItems, nil
}

func (f *fakeClient) StoreKnowledge(ctx context.Context, req knowledge.StoreRequest) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, req)
	return "fake-id", nil
}

// fakeEmptyHistory is a models.SessionHistorySource that always reports
// an empty, error-free result — an initialized database with nothing
// recorded yet for this session, as distinct from no database at all.
type fakeEmptyHistory struct{}

func (fakeEmptyHistory) GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]models.Exchange, error) {
	return nil, nil
}
