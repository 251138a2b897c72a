// Package engine implements the CAG Engine: it orchestrates the cache
// warmer and context manager per query, records metrics, and builds the
// response envelope.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	cachepkg "github.com/cagcore/engine/internal/cache"
	contextpkg "github.com/cagcore/engine/internal/context"
	"github.com/cagcore/engine/internal/tokens"
	"github.com/cagcore/engine/internal/warmer"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
	"github.com/cagcore/engine/pkg/observability"
)

// StateError reports a call made before the engine finished
// constructing, or in a state that makes the call invalid.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Reason)
}

// Engine wires the warmer, context manager, and warm cache together and
// exposes the process_query/warm_domain_cache/get_cached_knowledge_summary
// operations.
type Engine struct {
	client  knowledge.Client
	cache   *cachepkg.WarmCache
	warmer  *warmer.Warmer
	manager *contextpkg.Manager
	logger  observability.Logger
	metrics observability.MetricsClient

	registered bool // set true once New finishes, guards StateError

	// mu serializes updates to perf, matching the five-field atomic
	// update the engine's performance record requires under concurrent
	// process_query calls.
	mu   sync.Mutex
	perf models.PerformanceMetrics
}

// New constructs an Engine around an already-built warmer, cache, and
// context manager.
func New(client knowledge.Client, cache *cachepkg.WarmCache, w *warmer.Warmer, manager *contextpkg.Manager, logger observability.Logger, metrics observability.MetricsClient) *Engine {
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	return &Engine{
		client:     client,
		cache:      cache,
		warmer:     w,
		manager:    manager,
		logger:     logger,
		metrics:    metrics,
		registered: true,
	}
}

// ProcessQuery runs the full per-query pipeline: ensure the session is
// warmed, load layered context, build the envelope, update metrics, and
// best-effort write the interaction back to the store.
func (e *Engine) ProcessQuery(ctx context.Context, query, sessionID string, uc *warmer.UserContext) (models.Envelope, error) {
	if !e.registered {
		return models.Envelope{}, &StateError{Op: "process_query", Reason: "engine not fully constructed"}
	}

	ctx, span := observability.StartSpan(ctx, "cag.process_query")
	defer span.End()

	start := time.Now()

	cacheHit := e.ensureWarmed(ctx, sessionID, uc)

	loadStart := time.Now()
	fullContext := e.manager.LoadContextForQuery(ctx, query, sessionID)
	contextLoadTime := time.Since(loadStart)

	contextSizeTokens := tokens.Estimate(fullContext)
	cachedItems := e.cache.Size()
	totalProcessingTime := time.Since(start)

	envelope := models.Envelope{
		Query:                query,
		SessionID:            sessionID,
		ContextLoaded:        true,
		ContextSizeTokens:    contextSizeTokens,
		CachedKnowledgeItems: cachedItems,
		Performance: models.Performance{
			ContextLoadTime:     contextLoadTime,
			TotalProcessingTime: totalProcessingTime,
			CacheHit:            cacheHit,
		},
		ContextLayers: contextpkg.EmittedLayers(fullContext),
		FullContext:   fullContext,
	}

	e.recordMetrics(envelope)
	e.writeBack(ctx, query, envelope)

	return envelope, nil
}

// ensureWarmed runs the cache warmer at most once per session, and
// reports whether the session was already warm on entry (the envelope's
// cache_hit flag).
func (e *Engine) ensureWarmed(ctx context.Context, sessionID string, uc *warmer.UserContext) bool {
	warmCtx, span := observability.StartSpan(ctx, "cag.warm_cache_for_session")
	defer span.End()

	userContext := warmer.Default()
	if uc != nil {
		userContext = *uc
	}

	before := e.warmer.AlreadyWarmed(sessionID)
	e.warmer.WarmCacheForSession(warmCtx, sessionID, userContext)
	return before
}

func (e *Engine) recordMetrics(envelope models.Envelope) {
	e.mu.Lock()
	e.perf.TotalQueries++
	if envelope.Performance.CacheHit {
		e.perf.CacheHits++
	} else {
		e.perf.CacheMisses++
	}
	// Rolling mean: new_mean = old_mean + (sample - old_mean) / n
	n := e.perf.TotalQueries
	delta := envelope.Performance.TotalProcessingTime - e.perf.AverageResponseTime
	e.perf.AverageResponseTime += delta / time.Duration(n)
	e.mu.Unlock()

	hitLabel := "false"
	if envelope.Performance.CacheHit {
		hitLabel = "true"
	}
	e.metrics.IncCounter("queries_total", map[string]string{"cache_hit": hitLabel})
	e.metrics.ObserveHistogram("query_duration_seconds", envelope.Performance.TotalProcessingTime.Seconds(), map[string]string{"phase": "total"})
	e.metrics.ObserveHistogram("query_duration_seconds", envelope.Performance.ContextLoadTime.Seconds(), map[string]string{"phase": "context_load"})
	e.metrics.SetGauge("cached_knowledge_items", float64(envelope.CachedKnowledgeItems), nil)
}

// writeBack is the optional, best-effort interaction record. Failures
// are logged but never returned to the caller.
func (e *Engine) writeBack(ctx context.Context, query string, envelope models.Envelope) {
	title := "CAG Query: " + truncateRunes(query, 50)
	content := fmt.Sprintf("query=%q context_load_time=%s total_processing_time=%s context_size_tokens=%d cached_knowledge_items=%d",
		query, envelope.Performance.ContextLoadTime, envelope.Performance.TotalProcessingTime,
		envelope.ContextSizeTokens, envelope.CachedKnowledgeItems)

	_, err := e.client.StoreKnowledge(ctx, knowledge.StoreRequest{
		KnowledgeType:   string(models.KnowledgeTypeContextual),
		Title:           title,
		Content:         content,
		Category:        "cag_interaction",
		ImportanceScore: 30,
	})
	if err != nil {
		e.logger.Warn("interaction write-back failed", map[string]interface{}{"error": err.Error()})
	}
}

// DomainWarmResult is returned by WarmDomainCache.
type DomainWarmResult struct {
	ItemsLoaded int
	Success     bool
}

// WarmDomainCache searches for items matching domain, scores and
// preloads them pinned to a domain-named cache layer, and reports how
// many were loaded. priority is currently advisory (default "normal")
// and does not alter the scoring formula.
func (e *Engine) WarmDomainCache(ctx context.Context, domain, priority string) DomainWarmResult {
	_, span := observability.StartSpan(ctx, "cag.warm_domain_cache")
	defer span.End()
	if priority == "" {
		priority = "normal"
	}
	n := e.warmer.WarmDomain(ctx, domain)
	return DomainWarmResult{ItemsLoaded: n, Success: true}
}

// GetCachedKnowledgeSummary reports cache totals, optionally scoped to
// a single layer.
func (e *Engine) GetCachedKnowledgeSummary(layer models.ContextLayer) models.CacheSummary {
	if layer == "" {
		summary := e.cache.Stats()
		summary.SampleEntries = e.cache.TopN("", 5)
		return summary
	}

	entries := e.cache.ByLayer(layer)
	summary := models.CacheSummary{TotalItems: len(entries)}
	if len(entries) == 0 {
		return summary
	}
	summary.Layers = 1
	var prioritySum float64
	var memory int
	for _, v := range entries {
		prioritySum += v.Priority
		memory += len(v.Content) + len(v.Title) + len(string(v.KnowledgeType))
	}
	summary.AveragePriority = prioritySum / float64(len(entries))
	summary.MemoryEstimate = memory
	summary.SampleEntries = e.cache.TopN(layer, 5)
	return summary
}

// PerformanceSnapshot returns a copy of the current rolling metrics.
func (e *Engine) PerformanceSnapshot() models.PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perf
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
