package warmer

import (
	"context"
	"strings"

	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
)

// coreKnowledgeTypes backs Phase 1's direct-mode type filter.
var coreKnowledgeTypes = []knowledge.KnowledgeTypeFilter{
	knowledge.KnowledgeTypeFilter(models.KnowledgeTypeProcedural),
	knowledge.KnowledgeTypeFilter(models.KnowledgeTypeTechnicalDiscovery),
	knowledge.KnowledgeTypeFilter(models.KnowledgeTypeExperiential),
}

var strategicKnowledgeTypes = []knowledge.KnowledgeTypeFilter{
	knowledge.KnowledgeTypeFilter(models.KnowledgeTypeProcedural),
	knowledge.KnowledgeTypeFilter(models.KnowledgeTypeTechnicalDiscovery),
}

// phase1CoreKnowledge: top 20 most-recent procedural/technical_discovery/
// experiential items (direct mode) or a contextual-knowledge fetch
// (tool mode). A ClientError here degrades to zero items without
// aborting later phases.
func (w *Warmer) phase1CoreKnowledge(ctx context.Context) []models.KnowledgeItem {
	var items []knowledge.Item
	var err error
	if w.client.Mode() == knowledge.ModeTool {
		items, err = w.client.GetContextualKnowledge(ctx, "CAG core knowledge warming across procedural, technical discovery, and experiential knowledge", 20)
	} else {
		items, err = w.client.SearchKnowledge(ctx, "", coreKnowledgeTypes, 20)
	}
	if err != nil {
		w.logger.Warn("phase 1 (core knowledge) degraded to zero items", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return toModelItems(items)
}

// phase2SessionPrediction: up to 15 items matching user context keywords
// or project (direct mode, falling back to the 10 most recent when no
// keywords are given), or a single search call joining project+keywords
// (tool mode).
func (w *Warmer) phase2SessionPrediction(ctx context.Context, uc UserContext) []models.KnowledgeItem {
	if w.client.Mode() == knowledge.ModeTool {
		query := strings.TrimSpace(uc.Project + " " + strings.Join(uc.Keywords, " "))
		items, err := w.client.SearchKnowledge(ctx, query, nil, 15)
		if err != nil {
			w.logger.Warn("phase 2 (session prediction) degraded to zero items", map[string]interface{}{"error": err.Error()})
			return nil
		}
		return toModelItems(items)
	}

	if len(uc.Keywords) == 0 {
		items, err := w.client.SearchKnowledge(ctx, "", nil, 10)
		if err != nil {
			w.logger.Warn("phase 2 (session prediction) degraded to zero items", map[string]interface{}{"error": err.Error()})
			return nil
		}
		return toModelItems(items)
	}

	seen := make(map[string]bool)
	var merged []models.KnowledgeItem
	addUnique := func(items []knowledge.Item) {
		for _, it := range items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			merged = append(merged, fromClientItem(it))
		}
	}

	for _, kw := range append(append([]string{}, uc.Keywords...), uc.Project) {
		if kw == "" {
			continue
		}
		items, err := w.client.SearchKnowledge(ctx, kw, nil, 15)
		if err != nil {
			w.logger.Warn("phase 2 keyword search degraded", map[string]interface{}{"keyword": kw, "error": err.Error()})
			continue
		}
		addUnique(items)
		if len(merged) >= 15 {
			break
		}
	}
	if len(merged) > 15 {
		merged = merged[:15]
	}
	return merged
}

// phase3PatternPrediction: optional, empty when no recognizer is
// configured; otherwise up to 5 recent experiential items tagged with
// prediction_confidence = 0.7.
func (w *Warmer) phase3PatternPrediction(ctx context.Context, sessionID string) []models.KnowledgeItem {
	if w.recognizer == nil {
		return nil
	}
	if !w.recognizer.Predict(ctx, sessionID) {
		return nil
	}
	experiential := []knowledge.KnowledgeTypeFilter{knowledge.KnowledgeTypeFilter(models.KnowledgeTypeExperiential)}
	items, err := w.client.SearchKnowledge(ctx, "", experiential, 5)
	if err != nil {
		w.logger.Warn("phase 3 (pattern prediction) degraded to zero items", map[string]interface{}{"error": err.Error()})
		return nil
	}
	out := toModelItems(items)
	for i := range out {
		out[i].PredictionConfidence = 0.7
	}
	return out
}

// phase4StrategicInsights: up to 8 procedural/technical_discovery
// items; tool mode additionally requires importance_score > 60.
// Results are pinned to the strategic layer by the caller, never
// classified.
func (w *Warmer) phase4StrategicInsights(ctx context.Context) []models.KnowledgeItem {
	items, err := w.client.SearchKnowledge(ctx, "", strategicKnowledgeTypes, 8)
	if err != nil {
		w.logger.Warn("phase 4 (strategic insights) degraded to zero items", map[string]interface{}{"error": err.Error()})
		return nil
	}
	result := toModelItems(items)
	if w.client.Mode() == knowledge.ModeTool {
		filtered := result[:0]
		for _, it := range result {
			if it.ImportanceOrDefault() > 60 {
				filtered = append(filtered, it)
			}
		}
		result = filtered
	}
	return result
}
