// Package classifier assigns a knowledge item to the context layer it
// should warm.
package classifier

import (
	"github.com/cagcore/engine/internal/scoring"
	"github.com/cagcore/engine/pkg/models"
)

// Classify picks a layer for item; first match wins. The
// importance>80 escalation rule only applies in ModeTool.
func Classify(mode scoring.Mode, item models.KnowledgeItem) models.ContextLayer {
	if mode == scoring.ModeTool && item.ImportanceOrDefault() > 80 {
		return models.LayerStrategic
	}

	switch models.ParseKnowledgeType(string(item.KnowledgeType)) {
	case models.KnowledgeTypeProcedural, models.KnowledgeTypeTechnicalDiscovery:
		return models.LayerDomain
	case models.KnowledgeTypeExperiential:
		return models.LayerExperience
	case models.KnowledgeTypeContextual:
		return models.LayerSession
	default:
		return models.LayerDynamic
	}
}
