package warmer

import (
	"context"
	"sync/atomic"

	"github.com/cagcore/engine/pkg/knowledge"
)

// fakeClient is a minimal knowledge.Client stub for warmer tests: every
// method returns a canned slice or error, no filtering by query/type.
type fakeClient struct {
	mode knowledge.Mode

	searchItems []knowledge.Item
	searchErr   error
	searchCalls int32 // updated atomically: phases 3 and 4 search concurrently

	contextualItems []knowledge.Item
	sessionItems    []knowledge.Item

	stored []knowledge.StoreRequest
}

func (f *fakeClient) Mode() knowledge.Mode { return f.mode }

func (f *fakeClient) SearchKnowledge(ctx context.Context, query string, types []knowledge.KnowledgeTypeFilter, limit int) ([]knowledge.Item, error) {
	atomic.AddInt32(&f.searchCalls, 1)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit >= 0 && limit < len(f.searchItems) {
		return f.searchItems[:limit], nil
	}
	return f.searchItems, nil
}

func (f *fakeClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]knowledge.Item, error) {
	return f.contextualItems, nil
}

func (f *fakeClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]knowledge.Item, error) {
	return f.sessionItems, nil
}

func (f *fakeClient) StoreKnowledge(ctx context.Context, req knowledge.StoreRequest) (string, error) {
	f.stored = append(f.stored, req)
	return "fake-id", nil
}
