package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ToolInvoker is the transport the tool-invocation client dispatches
// through. It is intentionally minimal — a single named-tool call with
// JSON-object parameters and a JSON result — so any MCP-style tool
// registry can be plugged in without the core knowing about transport
// details (stdio, HTTP, gRPC, ...).
type ToolInvoker interface {
	InvokeTool(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error)
}

// Tool names for the four-tool contract.
const (
	toolContextualKnowledge = "contextual_knowledge"
	toolSearchKnowledge     = "search_knowledge"
	toolSessionContext      = "session_context"
	toolStoreKnowledge      = "store_knowledge"
)

var toolSchemas = map[string]*gojsonschema.Schema{}

func init() {
	schemas := map[string]string{
		toolContextualKnowledge: `{
			"type": "object",
			"properties": {
				"situation": {"type": "string"},
				"max_results": {"type": "integer"}
			},
			"required": ["situation"]
		}`,
		toolSearchKnowledge: `{
			"type": "object",
			"properties": {
				"query": {"type": "string"},
				"knowledge_types": {"type": "array", "items": {"type": "string"}},
				"limit": {"type": "integer"}
			},
			"required": ["query"]
		}`,
		toolSessionContext: `{
			"type": "object",
			"properties": {
				"max_items": {"type": "integer"},
				"project": {"type": "string"}
			},
			"required": ["max_items"]
		}`,
		toolStoreKnowledge: `{
			"type": "object",
			"properties": {
				"knowledge_type": {"type": "string"},
				"title": {"type": "string"},
				"content": {"type": "string"},
				"category": {"type": "string"},
				"importance_score": {"type": "integer"}
			},
			"required": ["knowledge_type", "title", "content"]
		}`,
	}
	for name, raw := range schemas {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("knowledge: invalid built-in schema for %s: %v", name, err))
		}
		toolSchemas[name] = s
	}
}

func validateParams(tool string, params map[string]interface{}) error {
	schema, ok := toolSchemas[tool]
	if !ok {
		return nil
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid parameters for tool %s: %v", tool, result.Errors())
	}
	return nil
}

// ToolInvocationClient implements Client by forwarding to a registered
// external tool via the four-tool contract.
type ToolInvocationClient struct {
	invoker ToolInvoker
}

// NewToolInvocationClient wraps a ToolInvoker.
func NewToolInvocationClient(invoker ToolInvoker) *ToolInvocationClient {
	return &ToolInvocationClient{invoker: invoker}
}

func (c *ToolInvocationClient) Mode() Mode { return ModeTool }

func (c *ToolInvocationClient) call(ctx context.Context, name string, params map[string]interface{}, out interface{}) error {
	if err := validateParams(name, params); err != nil {
		return permanent(name, err)
	}
	raw, err := c.invoker.InvokeTool(ctx, name, params)
	if err != nil {
		return transient(name, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transient(name, fmt.Errorf("decode tool response: %w", err))
	}
	return nil
}

func (c *ToolInvocationClient) SearchKnowledge(ctx context.Context, query string, types []KnowledgeTypeFilter, limit int) ([]Item, error) {
	typeStrs := make([]string, 0, len(types))
	for _, t := range types {
		typeStrs = append(typeStrs, string(t))
	}
	params := map[string]interface{}{"query": query, "limit": limit}
	if len(typeStrs) > 0 {
		params["knowledge_types"] = typeStrs
	}
	var items []Item
	if err := c.call(ctx, toolSearchKnowledge, params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *ToolInvocationClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]Item, error) {
	params := map[string]interface{}{"situation": situation, "max_results": maxResults}
	var items []Item
	if err := c.call(ctx, toolContextualKnowledge, params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *ToolInvocationClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]Item, error) {
	params := map[string]interface{}{"max_items": maxItems}
	if project != "" {
		params["project"] = project
	}
	var items []Item
	if err := c.call(ctx, toolSessionContext, params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *ToolInvocationClient) StoreKnowledge(ctx context.Context, req StoreRequest) (string, error) {
	params := map[string]interface{}{
		"knowledge_type": req.KnowledgeType,
		"title":          req.Title,
		"content":        req.Content,
	}
	if req.Category != "" {
		params["category"] = req.Category
	}
	if req.ImportanceScore != 0 {
		params["importance_score"] = req.ImportanceScore
	}
	var id string
	if err := c.call(ctx, toolStoreKnowledge, params, &id); err != nil {
		return "", err
	}
	return id, nil
}
