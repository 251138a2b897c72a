package knowledge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker is a scripted ToolInvoker.
type fakeInvoker struct {
	lastTool   string
	lastParams map[string]interface{}
	result     json.RawMessage
	err        error
}

func (f *fakeInvoker) InvokeTool(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error) {
	f.lastTool = name
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestToolInvocationClient_Mode(t *testing.T) {
	c := NewToolInvocationClient(&fakeInvoker{})
	assert.Equal(t, ModeTool, c.Mode())
}

func TestSearchKnowledge_InvokesSearchTool(t *testing.T) {
	invoker := &fakeInvoker{result: json.RawMessage(`[{"id":"kb-1","title":"Pooling"}]`)}
	c := NewToolInvocationClient(invoker)

	items, err := c.SearchKnowledge(context.Background(), "pool", []KnowledgeTypeFilter{"procedural"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kb-1", items[0].ID)
	assert.Equal(t, toolSearchKnowledge, invoker.lastTool)
	assert.Equal(t, []string{"procedural"}, invoker.lastParams["knowledge_types"])
}

func TestSearchKnowledge_RejectsMissingQuery(t *testing.T) {
	invoker := &fakeInvoker{result: json.RawMessage(`[]`)}
	c := NewToolInvocationClient(invoker)

	// An empty query string is still a present "query" key; only a call
	// that omits the key fails the search_knowledge schema.
	err := c.call(context.Background(), toolSearchKnowledge, map[string]interface{}{"limit": 5}, nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Empty(t, invoker.lastTool)
}

func TestGetContextualKnowledge_InvokesContextualTool(t *testing.T) {
	invoker := &fakeInvoker{result: json.RawMessage(`[]`)}
	c := NewToolInvocationClient(invoker)

	_, err := c.GetContextualKnowledge(context.Background(), "debugging a timeout", 3)
	require.NoError(t, err)
	assert.Equal(t, toolContextualKnowledge, invoker.lastTool)
	assert.Equal(t, "debugging a timeout", invoker.lastParams["situation"])
}

func TestGetSessionContext_OmitsProjectWhenEmpty(t *testing.T) {
	invoker := &fakeInvoker{result: json.RawMessage(`[]`)}
	c := NewToolInvocationClient(invoker)

	_, err := c.GetSessionContext(context.Background(), 10, "")
	require.NoError(t, err)
	_, hasProject := invoker.lastParams["project"]
	assert.False(t, hasProject)
}

func TestStoreKnowledge_ReturnsIDFromTool(t *testing.T) {
	invoker := &fakeInvoker{result: json.RawMessage(`"kb-99"`)}
	c := NewToolInvocationClient(invoker)

	id, err := c.StoreKnowledge(context.Background(), StoreRequest{
		KnowledgeType: "contextual",
		Title:         "t",
		Content:       "c",
	})
	require.NoError(t, err)
	assert.Equal(t, "kb-99", id)
	assert.Equal(t, toolStoreKnowledge, invoker.lastTool)
}

func TestStoreKnowledge_InvokerErrorIsTransient(t *testing.T) {
	invoker := &fakeInvoker{err: assertErr("connection reset")}
	c := NewToolInvocationClient(invoker)

	_, err := c.StoreKnowledge(context.Background(), StoreRequest{
		KnowledgeType: "contextual",
		Title:         "t",
		Content:       "c",
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
