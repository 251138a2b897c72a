// Package warmer implements the phased cache warmer: a loader that
// fills the Warm Cache via the Knowledge Client, scorer, and
// classifier across four phases.
package warmer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cachepkg "github.com/cagcore/engine/internal/cache"
	"github.com/cagcore/engine/internal/classifier"
	"github.com/cagcore/engine/internal/scoring"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
	"github.com/cagcore/engine/pkg/observability"
)

// UserContext seeds Phase 2's session-prediction query. Its zero value
// is replaced by Default().
type UserContext struct {
	Keywords []string
	Project  string
}

// Default returns the fallback user context used when a session warms
// with no keywords or project given: {["CAG","implementation"], "<default>"}.
func Default() UserContext {
	return UserContext{Keywords: []string{"CAG", "implementation"}, Project: "<default>"}
}

// PatternRecognizer backs Phase 3. Its absence (a nil recognizer passed
// to New) makes Phase 3 a no-op that returns zero items.
type PatternRecognizer interface {
	// Predict may use sessionID to personalize predictions; the
	// reference recognizer ignores it and always returns true, after
	// which Phase 3 tags recent experiential items.
	Predict(ctx context.Context, sessionID string) bool
}

// Warmer runs the four warming phases and writes into a WarmCache.
type Warmer struct {
	client     knowledge.Client
	cache      *cachepkg.WarmCache
	registry   *SessionRegistry
	logger     observability.Logger
	recognizer PatternRecognizer
	now        func() time.Time

	// sessionLocks serializes concurrent WarmCacheForSession calls for
	// the same session so the idempotency check-then-run is atomic
	// without holding a single global lock across the whole warming
	// duration.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// New constructs a Warmer. recognizer may be nil (Phase 3 becomes a
// no-op).
func New(client knowledge.Client, cache *cachepkg.WarmCache, registry *SessionRegistry, logger observability.Logger, recognizer PatternRecognizer) *Warmer {
	return &Warmer{
		client:       client,
		cache:        cache,
		registry:     registry,
		logger:       logger,
		recognizer:   recognizer,
		now:          time.Now,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// AlreadyWarmed reports whether sessionID has already completed
// warming, without taking the per-session lock. Callers that need this
// as a cache_hit signal must read it before calling WarmCacheForSession,
// since that call may warm the session as a side effect.
func (w *Warmer) AlreadyWarmed(sessionID string) bool {
	return w.registry.Has(sessionID)
}

func (w *Warmer) lockFor(sessionID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.sessionLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		w.sessionLocks[sessionID] = l
	}
	return l
}

// WarmCacheForSession runs all four warming phases. It is idempotent
// per session: a session already present in the registry short-
// circuits and returns the recorded stats immediately.
func (w *Warmer) WarmCacheForSession(ctx context.Context, sessionID string, uc UserContext) models.CacheStats {
	sessionLock := w.lockFor(sessionID)
	sessionLock.Lock()
	defer sessionLock.Unlock()

	if rec, ok := w.registry.Get(sessionID); ok {
		w.logger.Debug("cache already warmed for session", map[string]interface{}{"session_id": sessionID})
		return rec.CacheStats
	}

	if len(uc.Keywords) == 0 && uc.Project == "" {
		uc = Default()
	}

	start := w.now()
	stats := models.CacheStats{}

	// Phase 1 and 2 are on the critical path: they must complete before
	// warming is considered done.
	phase1 := w.phase1CoreKnowledge(ctx)
	stats.ItemsLoaded += w.preload(phase1, false)
	stats.PhasesCompleted++

	phase2 := w.phase2SessionPrediction(ctx, uc)
	stats.ItemsLoaded += w.preload(phase2, false)
	stats.PhasesCompleted++

	// Phases 3 and 4 may run concurrently with each other once phase 2
	// completes, but must be joined before this method returns so
	// items_loaded stays accurate.
	var phase3, phase4 []models.KnowledgeItem
	var group errgroup.Group
	group.Go(func() error {
		phase3 = w.phase3PatternPrediction(ctx, sessionID)
		return nil
	})
	group.Go(func() error {
		phase4 = w.phase4StrategicInsights(ctx)
		return nil
	})
	_ = group.Wait() // phase bodies never return an error; failures degrade to empty slices internally

	stats.ItemsLoaded += w.preload(phase3, false)
	stats.PhasesCompleted++
	stats.ItemsLoaded += w.preload(phase4, true)
	stats.PhasesCompleted++

	stats.CacheSize = w.cache.Size()
	stats.WarmingTime = w.now().Sub(start)
	stats.MCPIntegrated = w.client.Mode() == knowledge.ModeTool

	w.registry.Record(sessionID, stats)
	w.logger.Info("cache warming complete", map[string]interface{}{
		"session_id":   sessionID,
		"items_loaded": stats.ItemsLoaded,
		"warming_time": stats.WarmingTime.String(),
	})
	return stats
}

// preload scores, classifies (unless pinned to strategic), and inserts
// each candidate. It returns the count of items the phase produced,
// not the count that passed the cache's insertion threshold — an empty
// phase result is reported as zero items_loaded regardless of cache
// state.
func (w *Warmer) preload(items []models.KnowledgeItem, pinStrategic bool) int {
	mode := modeOf(w.client)
	for _, item := range items {
		priority := scoring.Score(mode, item, w.now())
		layer := models.LayerStrategic
		if !pinStrategic {
			layer = classifier.Classify(mode, item)
		}
		w.cache.Insert(layer, item.ID, models.CacheEntry{
			Content:       item.Content,
			Title:         item.Title,
			KnowledgeType: models.ParseKnowledgeType(string(item.KnowledgeType)),
			Priority:      priority,
			LoadedAt:      w.now(),
			SourceTag:     string(layer),
			AccessCount:   item.AccessCountOrDefault(),
		})
	}
	return len(items)
}

// WarmDomain searches for items whose category or content matches
// domain, scores them, and preloads them pinned to a cache layer named
// after domain itself (rather than letting the classifier pick one).
// It returns the number of items the search produced.
func (w *Warmer) WarmDomain(ctx context.Context, domain string) int {
	items, err := w.client.SearchKnowledge(ctx, domain, nil, 25)
	if err != nil {
		w.logger.Warn("domain warming degraded to zero items", map[string]interface{}{"domain": domain, "error": err.Error()})
		return 0
	}
	modelItems := toModelItems(items)
	mode := modeOf(w.client)
	for _, item := range modelItems {
		priority := scoring.Score(mode, item, w.now())
		w.cache.Insert(models.ContextLayer(domain), item.ID, models.CacheEntry{
			Content:       item.Content,
			Title:         item.Title,
			KnowledgeType: models.ParseKnowledgeType(string(item.KnowledgeType)),
			Priority:      priority,
			LoadedAt:      w.now(),
			SourceTag:     domain,
			AccessCount:   item.AccessCountOrDefault(),
		})
	}
	return len(modelItems)
}

func modeOf(c knowledge.Client) scoring.Mode {
	if c.Mode() == knowledge.ModeTool {
		return scoring.ModeTool
	}
	return scoring.ModeDirect
}

func toModelItems(items []knowledge.Item) []models.KnowledgeItem {
	out := make([]models.KnowledgeItem, 0, len(items))
	for _, it := range items {
		out = append(out, fromClientItem(it))
	}
	return out
}

func fromClientItem(it knowledge.Item) models.KnowledgeItem {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	return models.KnowledgeItem{
		ID:              it.ID,
		Title:           it.Title,
		Content:         it.Content,
		KnowledgeType:   models.ParseKnowledgeType(it.KnowledgeType),
		Category:        it.Category,
		CreatedAt:       createdAt,
		ImportanceScore: it.ImportanceScore,
		AccessCount:     it.AccessCount,
	}
}
