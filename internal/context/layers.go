package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/cagcore/engine/internal/tokens"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
)

// truncate returns the first n runes of s followed by an ellipsis when
// s is longer than n.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (m *Manager) loadSystem() string {
	return systemPreamble
}

func (m *Manager) loadProject(ctx context.Context) string {
	summary := m.projectSummary
	if m.client.Mode() != knowledge.ModeTool {
		return summary
	}
	items, err := m.client.GetSessionContext(ctx, 5, "")
	if err != nil {
		m.logger.Warn("project layer degraded", map[string]interface{}{"error": err.Error()})
		return summary
	}
	if len(items) == 0 {
		return summary
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s", it.Title))
	}
	return summary + "\nRecent session context:\n" + strings.Join(lines, "\n")
}

func (m *Manager) loadSession(ctx context.Context, sessionID string) string {
	if m.client.Mode() != knowledge.ModeTool {
		if m.history == nil {
			return "Session history unavailable - no database connection"
		}
		exchanges, err := m.history.GetSessionHistory(ctx, sessionID, 10)
		if err != nil {
			return fmt.Sprintf("Session history error: %s", err.Error())
		}
		if len(exchanges) == 0 {
			return "No session history found"
		}
		var lines []string
		for _, ex := range exchanges {
			prefix := "AI:"
			if ex.FromUser {
				prefix = "USER:"
			}
			lines = append(lines, fmt.Sprintf("%s %s", prefix, ex.Content))
		}
		return strings.Join(lines, "\n")
	}

	items, err := m.client.GetSessionContext(ctx, 10, "")
	if err != nil {
		return fmt.Sprintf("Session history error: %s", err.Error())
	}
	var contextual []string
	for _, it := range items {
		if models.ParseKnowledgeType(it.KnowledgeType) == models.KnowledgeTypeContextual {
			contextual = append(contextual, fmt.Sprintf("[%s] %s", it.KnowledgeType, it.Title))
		}
	}
	if len(contextual) == 0 {
		return "No session history found"
	}
	if len(contextual) > 5 {
		contextual = contextual[len(contextual)-5:]
	}
	return strings.Join(contextual, "\n")
}

func (m *Manager) loadDomain(ctx context.Context, domains []string) string {
	var items []knowledge.Item
	var err error
	if m.client.Mode() == knowledge.ModeTool {
		types := []knowledge.KnowledgeTypeFilter{
			knowledge.KnowledgeTypeFilter(models.KnowledgeTypeProcedural),
			knowledge.KnowledgeTypeFilter(models.KnowledgeTypeTechnicalDiscovery),
		}
		items, err = m.client.SearchKnowledge(ctx, strings.Join(domains, " "), types, 10)
	} else {
		items, err = m.searchAnyOf(ctx, domains, nil, 10)
	}
	if err != nil {
		return fmt.Sprintf("Domain knowledge unavailable: %s", err.Error())
	}
	if len(items) == 0 {
		return "No domain knowledge found"
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", it.KnowledgeType, it.Title, truncate(it.Content, 200)))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) loadExperience(ctx context.Context, query string) string {
	experiential := []knowledge.KnowledgeTypeFilter{knowledge.KnowledgeTypeFilter(models.KnowledgeTypeExperiential)}
	var items []knowledge.Item
	var err error
	if m.client.Mode() == knowledge.ModeTool {
		items, err = m.client.GetContextualKnowledge(ctx, query, 10)
		items = filterByType(items, models.KnowledgeTypeExperiential)
	} else {
		items, err = m.client.SearchKnowledge(ctx, query, experiential, 5)
	}
	if err != nil {
		return fmt.Sprintf("Experience memory unavailable: %s", err.Error())
	}
	if len(items) > 5 {
		items = items[:5]
	}
	if len(items) == 0 {
		return "No experience memory available"
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", it.Category, it.Title, truncate(it.Content, 150)))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) loadStrategic(ctx context.Context, query string) string {
	types := []knowledge.KnowledgeTypeFilter{
		knowledge.KnowledgeTypeFilter(models.KnowledgeTypeProcedural),
		knowledge.KnowledgeTypeFilter(models.KnowledgeTypeTechnicalDiscovery),
	}
	items, err := m.client.SearchKnowledge(ctx, "", types, 5)
	if err != nil {
		return fmt.Sprintf("Strategic insights unavailable: %s", err.Error())
	}
	if m.client.Mode() == knowledge.ModeTool {
		filtered := items[:0]
		for _, it := range items {
			score := 50
			if it.ImportanceScore != nil {
				score = *it.ImportanceScore
			}
			if score > 60 {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if len(items) == 0 {
		return "No strategic insights available"
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", it.KnowledgeType, it.Title, truncate(it.Content, 150)))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) loadDynamic(ctx context.Context, query string, remainingTokens int) string {
	if remainingTokens < 1000 {
		return "Limited space for dynamic content"
	}
	items, err := m.client.SearchKnowledge(ctx, query, nil, 3)
	if err != nil {
		return fmt.Sprintf("Dynamic content unavailable: %s", err.Error())
	}
	if len(items) == 0 {
		return "No additional dynamic content available"
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", it.KnowledgeType, it.Title, truncate(it.Content, 100)))
	}
	return strings.Join(lines, "\n")
}

// searchAnyOf is the direct-mode helper for "category ILIKE any of
// tags", implemented as one SearchKnowledge call per tag merged and
// deduplicated, since the uniform Client capability takes a single
// query string rather than a tag set (see DESIGN.md).
func (m *Manager) searchAnyOf(ctx context.Context, tags []string, types []knowledge.KnowledgeTypeFilter, limit int) ([]knowledge.Item, error) {
	seen := make(map[string]bool)
	var merged []knowledge.Item
	for _, tag := range tags {
		items, err := m.client.SearchKnowledge(ctx, tag, types, limit)
		if err != nil {
			if len(merged) > 0 {
				// Partial results already gathered; don't discard them
				// for one bad tag query.
				continue
			}
			return nil, err
		}
		for _, it := range items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			merged = append(merged, it)
		}
		if len(merged) >= limit {
			break
		}
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func filterByType(items []knowledge.Item, t models.KnowledgeType) []knowledge.Item {
	out := items[:0]
	for _, it := range items {
		if models.ParseKnowledgeType(it.KnowledgeType) == t {
			out = append(out, it)
		}
	}
	return out
}

// tokensUsedByLayers sums the estimated tokens of the given layers'
// bodies, the same sum the remaining-budget calculation uses.
func tokensUsedByLayers(bodies map[models.ContextLayer]string, layers []models.ContextLayer) int {
	used := 0
	for _, l := range layers {
		used += tokens.Estimate(bodies[l])
	}
	return used
}
