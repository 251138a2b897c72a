package context

import (
	"context"

	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
)

// fakeClient is a scripted knowledge.Client for context-layer tests.
type fakeClient struct {
	mode knowledge.Mode

	searchItems     []knowledge.Item
	searchErr       error
	contextualItems []knowledge.Item
	contextualErr   error
	sessionItems    []knowledge.Item
	sessionErr      error
	searchCalls     int
}

func (f *fakeClient) Mode() knowledge.Mode { return f.mode }

func (f *fakeClient) SearchKnowledge(ctx context.Context, query string, types []knowledge.KnowledgeTypeFilter, limit int) ([]knowledge.Item, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit >= 0 && limit < len(f.searchItems) {
		return f.searchItems[:limit], nil
	}
	return f.searchItems, nil
}

func (f *fakeClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]knowledge.Item, error) {
	return f.contextualItems, f.contextualErr
}

func (f *fakeClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]knowledge.Item, error) {
	return f.sessionItems, f.sessionErr
}

func (f *fakeClient) StoreKnowledge(ctx context.Context, req knowledge.StoreRequest) (string, error) {
	return "fake-id", nil
}

// fakeHistory is a scripted models.SessionHistorySource.
type fakeHistory struct {
	exchanges []models.Exchange
	err       error
}

func (f *fakeHistory) GetSessionHistory(ctx context.Context, sessionID string, limit int) ([]models.Exchange, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exchanges, nil
}
