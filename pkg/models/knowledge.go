// Package models defines the typed records shared across the CAG core:
// knowledge items ingested from the store, cache entries held in the warm
// cache, and the envelopes/metrics returned to callers.
package models

import "time"

// KnowledgeType is the closed set of knowledge categories the scorer and
// classifier know how to weight. Unknown tags from the store are coerced
// to KnowledgeTypeFactual by ParseKnowledgeType.
type KnowledgeType string

const (
	KnowledgeTypeFactual             KnowledgeType = "factual"
	KnowledgeTypeProcedural          KnowledgeType = "procedural"
	KnowledgeTypeContextual          KnowledgeType = "contextual"
	KnowledgeTypeRelational          KnowledgeType = "relational"
	KnowledgeTypeExperiential        KnowledgeType = "experiential"
	KnowledgeTypeTechnicalDiscovery  KnowledgeType = "technical_discovery"
	KnowledgeTypePatternRecognition  KnowledgeType = "pattern_recognition"
)

var knownKnowledgeTypes = map[KnowledgeType]bool{
	KnowledgeTypeFactual:            true,
	KnowledgeTypeProcedural:         true,
	KnowledgeTypeContextual:         true,
	KnowledgeTypeRelational:         true,
	KnowledgeTypeExperiential:       true,
	KnowledgeTypeTechnicalDiscovery: true,
	KnowledgeTypePatternRecognition: true,
}

// ParseKnowledgeType coerces an arbitrary store-supplied tag into the
// closed set, defaulting unknown tags to factual.
func ParseKnowledgeType(raw string) KnowledgeType {
	t := KnowledgeType(raw)
	if knownKnowledgeTypes[t] {
		return t
	}
	return KnowledgeTypeFactual
}

// ContextLayer is the ordered, closed set used both as a warm-cache
// partition and as a section of the compiled context. Order is the
// compilation order.
type ContextLayer string

const (
	LayerSystem     ContextLayer = "system"
	LayerProject    ContextLayer = "project"
	LayerSession    ContextLayer = "session"
	LayerDomain     ContextLayer = "domain"
	LayerExperience ContextLayer = "experience"
	LayerStrategic  ContextLayer = "strategic"
	LayerDynamic    ContextLayer = "dynamic"
	LayerResponse   ContextLayer = "response"
)

// CanonicalLayerOrder is the fixed compilation order.
var CanonicalLayerOrder = []ContextLayer{
	LayerSystem, LayerProject, LayerSession, LayerDomain,
	LayerExperience, LayerStrategic, LayerDynamic, LayerResponse,
}

// LayerTokenBudget is the fixed per-layer token allocation.
var LayerTokenBudget = map[ContextLayer]int{
	LayerSystem:     2000,
	LayerProject:    8000,
	LayerSession:    16000,
	LayerDomain:     32000,
	LayerExperience: 24000,
	LayerStrategic:  16000,
	LayerDynamic:    24000,
	LayerResponse:   6000,
}

// KnowledgeItem is the unit of cached content retrieved from the
// knowledge store or the tool registry.
type KnowledgeItem struct {
	ID            string
	Title         string
	Content       string
	KnowledgeType KnowledgeType
	Category      string
	CreatedAt     time.Time
	// ImportanceScore is 0-100; nil means the store has no opinion, not
	// that the item scores zero. An item legitimately scored 0 must
	// stay 0 through scoring, never get coerced up to the default.
	ImportanceScore *int
	// AccessCount is nil when the store has no opinion.
	AccessCount *int

	// PredictionConfidence is set by the pattern-prediction warming
	// phase; zero value means "not set".
	PredictionConfidence float64
}

// IntPtr is a convenience constructor for the optional *int fields on
// KnowledgeItem and Item, in the style of pointer-of-literal helpers
// such as aws.Int64.
func IntPtr(v int) *int { return &v }

// ImportanceOrDefault returns ImportanceScore, defaulting to 50 when the
// store didn't supply one. A present-but-zero score is returned as-is.
func (k KnowledgeItem) ImportanceOrDefault() int {
	if k.ImportanceScore == nil {
		return 50
	}
	return *k.ImportanceScore
}

// AccessCountOrDefault mirrors ImportanceOrDefault for access_count.
func (k KnowledgeItem) AccessCountOrDefault() int {
	if k.AccessCount == nil {
		return 1
	}
	return *k.AccessCount
}

// CacheEntry is the value stored in the Warm Cache, keyed by "<layer>:<id>".
type CacheEntry struct {
	Content       string
	Title         string
	KnowledgeType KnowledgeType
	Priority      float64
	LoadedAt      time.Time
	SourceTag     string
	AccessCount   int
}

// CacheKey formats the Warm Cache key for a given layer/item pair.
func CacheKey(layer ContextLayer, id string) string {
	return string(layer) + ":" + id
}

// SessionWarmingRecord is the per-session idempotency record.
type SessionWarmingRecord struct {
	WarmedAt  time.Time
	CacheStats CacheStats
}

// CacheStats is returned by warm_cache_for_session.
type CacheStats struct {
	PhasesCompleted int
	ItemsLoaded     int
	CacheSize       int
	WarmingTime     time.Duration
	MCPIntegrated   bool
}

// PerformanceMetrics are the process-wide performance aggregates.
type PerformanceMetrics struct {
	TotalQueries        int64
	CacheHits           int64
	CacheMisses         int64
	AverageResponseTime time.Duration
	ToolCalls           int64
}

// Performance captures the per-query timings embedded in Envelope.
type Performance struct {
	ContextLoadTime     time.Duration
	TotalProcessingTime time.Duration
	CacheHit            bool
}

// Envelope is the record returned by process_query.
type Envelope struct {
	Query                string
	SessionID            string
	ContextLoaded        bool
	ContextSizeTokens    int
	CachedKnowledgeItems int
	Performance          Performance
	ContextLayers        map[ContextLayer]bool
	FullContext          string
}

// CacheSummary backs get_cached_knowledge_summary.
type CacheSummary struct {
	TotalItems     int
	Layers         int
	AveragePriority float64
	MemoryEstimate  int
	SampleEntries   []SampleEntry
}

// SampleEntry is one row of CacheSummary.SampleEntries.
type SampleEntry struct {
	Key   string
	Entry CacheEntry
}
