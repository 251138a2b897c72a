// Package context implements the context manager: it loads the seven
// layer strings, enforces per-layer token budgets, and compiles the
// final layered context string.
package context

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cagcore/engine/internal/tokens"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
	"github.com/cagcore/engine/pkg/observability"
)

const systemPreamble = `CAG-enabled assistant backed by a warm, priority-ranked knowledge cache.
Context below is assembled under a fixed token budget from layered, pre-scored knowledge.`

const projectSummaryFallback = `Project context unavailable.`

// Manager assembles the layered context string for a query.
type Manager struct {
	client           knowledge.Client
	history          models.SessionHistorySource // may be nil: direct-mode session layer degrades to "unavailable"
	logger           observability.Logger
	maxContextTokens int
	projectSummary   string // fixed, implementation-chosen project-state summary
}

// Option configures a Manager.
type Option func(*Manager)

// WithSessionHistory wires the direct-mode session history collaborator.
func WithSessionHistory(src models.SessionHistorySource) Option {
	return func(m *Manager) { m.history = src }
}

// WithProjectSummary overrides the fixed project-state summary text.
func WithProjectSummary(summary string) Option {
	return func(m *Manager) { m.projectSummary = summary }
}

// New constructs a Context Manager bound to maxContextTokens (default
// 128000).
func New(client knowledge.Client, logger observability.Logger, maxContextTokens int, opts ...Option) *Manager {
	m := &Manager{
		client:           client,
		logger:           logger,
		maxContextTokens: maxContextTokens,
		projectSummary:   projectSummaryFallback,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadContextForQuery loads all seven layers (response is always
// empty, reserved for the caller) and compiles them into the stable,
// canonically-ordered context string.
func (m *Manager) LoadContextForQuery(ctx context.Context, query, sessionID string) string {
	bodies := make(map[models.ContextLayer]string, len(models.CanonicalLayerOrder))

	// Layers 1-3 (system, project, session) and domain/experience/
	// strategic are independent of each other and of the running
	// token total, so they can fetch concurrently.
	var mu sync.Mutex
	var wg sync.WaitGroup
	set := func(layer models.ContextLayer, body string) {
		body = m.enforceBudget(layer, body)
		mu.Lock()
		bodies[layer] = body
		mu.Unlock()
	}
	spawn := func(layer models.ContextLayer, fn func() string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set(layer, fn())
		}()
	}

	spawn(models.LayerSystem, func() string { return m.loadSystem() })
	spawn(models.LayerProject, func() string { return m.loadProject(ctx) })
	spawn(models.LayerSession, func() string { return m.loadSession(ctx, sessionID) })

	domains := AnalyzeQueryDomains(query, m.client.Mode() == knowledge.ModeTool)
	spawn(models.LayerDomain, func() string { return m.loadDomain(ctx, domains) })
	spawn(models.LayerExperience, func() string { return m.loadExperience(ctx, query) })
	spawn(models.LayerStrategic, func() string { return m.loadStrategic(ctx, query) })

	wg.Wait()

	// The dynamic layer depends on the token total of layers 1-6, so it
	// must run after the barrier above.
	used := 0
	for _, layer := range models.CanonicalLayerOrder[:6] {
		used += tokens.Estimate(bodies[layer])
	}
	remaining := m.maxContextTokens - used
	if remaining < 0 {
		remaining = 0
	}
	bodies[models.LayerDynamic] = m.enforceBudget(models.LayerDynamic, m.loadDynamic(ctx, query, remaining))
	bodies[models.LayerResponse] = "" // reserved for the caller, always empty from the core

	return Compile(bodies)
}

// enforceBudget implements the BudgetError invariant: a layer body that
// exceeds its per-layer token allocation by more than 2x is logged and
// truncated down to the allocation rather than left to blow the overall
// context budget.
func (m *Manager) enforceBudget(layer models.ContextLayer, body string) string {
	budget, ok := models.LayerTokenBudget[layer]
	if !ok || budget <= 0 {
		return body
	}
	estimated := tokens.Estimate(body)
	if estimated <= budget*2 {
		return body
	}
	m.logger.Warn("layer body exceeded its token budget by more than 2x, truncating", map[string]interface{}{
		"layer":     string(layer),
		"budget":    budget,
		"estimated": estimated,
	})
	maxWords := int(float64(budget) / 1.3)
	words := strings.Fields(body)
	if maxWords >= len(words) {
		return body
	}
	return strings.Join(words[:maxWords], " ") + " ...[truncated]"
}

// Compile emits layers in canonical order; each non-empty layer gets a
// "=== <LAYER> CONTEXT ===" header, its body, and a blank line. A
// layer that failed and returned a diagnostic string is still emitted
// because the diagnostic is itself a non-empty body.
func Compile(bodies map[models.ContextLayer]string) string {
	var sb strings.Builder
	for _, layer := range models.CanonicalLayerOrder {
		body := bodies[layer]
		if body == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("=== %s CONTEXT ===\n", strings.ToUpper(string(layer))))
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// EmittedLayers reports, for each canonical layer, whether it appears
// non-empty in a compiled context string — used by the engine to build
// Envelope.ContextLayers without re-deriving the bodies map.
func EmittedLayers(compiled string) map[models.ContextLayer]bool {
	out := make(map[models.ContextLayer]bool, len(models.CanonicalLayerOrder))
	for _, layer := range models.CanonicalLayerOrder {
		marker := fmt.Sprintf("=== %s CONTEXT ===", strings.ToUpper(string(layer)))
		out[layer] = strings.Contains(compiled, marker)
	}
	return out
}
