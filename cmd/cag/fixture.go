package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
)

// fixtureClient is a process-local, in-memory knowledge.Client behind
// every cag subcommand. It does no persistence and no network I/O, so
// the CLI runs standalone without a database or tool endpoint.
type fixtureClient struct {
	mode  knowledge.Mode
	mu    sync.Mutex
	items []knowledge.Item
}

func newFixtureClient(mode knowledge.Mode) *fixtureClient {
	return &fixtureClient{mode: mode, items: seedCorpus()}
}

func (c *fixtureClient) Mode() knowledge.Mode { return c.mode }

func (c *fixtureClient) SearchKnowledge(ctx context.Context, query string, types []knowledge.KnowledgeTypeFilter, limit int) ([]knowledge.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[string(t)] = true
	}
	var out []knowledge.Item
	for _, it := range c.items {
		if len(typeSet) > 0 && !typeSet[it.KnowledgeType] {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Title+" "+it.Content), strings.ToLower(query)) {
			continue
		}
		out = append(out, it)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *fixtureClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]knowledge.Item, error) {
	return c.SearchKnowledge(ctx, situation, nil, maxResults)
}

func (c *fixtureClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]knowledge.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []knowledge.Item
	for _, it := range c.items {
		if it.KnowledgeType != "contextual" {
			continue
		}
		out = append(out, it)
		if len(out) >= maxItems {
			break
		}
	}
	return out, nil
}

func (c *fixtureClient) StoreKnowledge(ctx context.Context, req knowledge.StoreRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := time.Now().UTC().Format("20060102150405.000000000")
	c.items = append(c.items, knowledge.Item{
		ID:              id,
		Title:           req.Title,
		Content:         req.Content,
		KnowledgeType:   req.KnowledgeType,
		Category:        req.Category,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		ImportanceScore: models.IntPtr(req.ImportanceScore),
	})
	return id, nil
}

// seedCorpus seeds eight items covering the procedural,
// technical_discovery, experiential, contextual and factual types
// (no relational item) across a handful of categories; of the
// domain-keyword families only database and testing appear as
// categories. kb-8 carries an explicit zero importance score to keep that a
// distinct, reachable case from "score not supplied".
func seedCorpus() []knowledge.Item {
	now := time.Now().UTC().Format(time.RFC3339)
	return []knowledge.Item{
		{ID: "kb-1", Title: "Database connection pooling", Content: "Use pgxpool with a bounded max size for postgres workloads.", KnowledgeType: "procedural", Category: "database", CreatedAt: now, ImportanceScore: models.IntPtr(70), AccessCount: models.IntPtr(12)},
		{ID: "kb-2", Title: "API rate limit handling", Content: "Back off exponentially on 429 responses from the REST api.", KnowledgeType: "procedural", Category: "api", CreatedAt: now, ImportanceScore: models.IntPtr(55), AccessCount: models.IntPtr(8)},
		{ID: "kb-3", Title: "Kubernetes rollout strategy", Content: "Prefer rolling updates with readiness probes over recreate on the kubernetes cluster.", KnowledgeType: "technical_discovery", Category: "deployment", CreatedAt: now, ImportanceScore: models.IntPtr(85), AccessCount: models.IntPtr(3)},
		{ID: "kb-4", Title: "Flaky integration test fixed", Content: "The race was a missing context cancellation in the test harness.", KnowledgeType: "experiential", Category: "testing", CreatedAt: now, ImportanceScore: models.IntPtr(40), AccessCount: models.IntPtr(5)},
		{ID: "kb-5", Title: "Prior session note", Content: "User asked about the cache warming schedule last session.", KnowledgeType: "contextual", Category: "session", CreatedAt: now, ImportanceScore: models.IntPtr(20), AccessCount: models.IntPtr(1)},
		{ID: "kb-6", Title: "Company release policy", Content: "Releases ship every other Tuesday after a green nightly run.", KnowledgeType: "factual", Category: "process", CreatedAt: now, ImportanceScore: models.IntPtr(30), AccessCount: models.IntPtr(2)},
		{ID: "kb-7", Title: "Security review checklist", Content: "Check for SQL injection and missing auth on every new endpoint.", KnowledgeType: "procedural", Category: "security", CreatedAt: now, ImportanceScore: models.IntPtr(90), AccessCount: models.IntPtr(15)},
		{ID: "kb-8", Title: "Deprecated logging shim", Content: "Legacy helper kept only for one external caller; scored at the floor on purpose.", KnowledgeType: "factual", Category: "process", CreatedAt: now, ImportanceScore: models.IntPtr(0), AccessCount: models.IntPtr(0)},
	}
}
