package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cagcore/engine/pkg/models"
)

func TestRecency_ZeroValueCreatedAtScoresOne(t *testing.T) {
	assert.Equal(t, 1.0, Recency(time.Time{}, time.Now()))
}

func TestRecency_DecaysOverThirtyDays(t *testing.T) {
	now := time.Now()
	assert.InDelta(t, 1.0, Recency(now, now), 0.001)
	assert.InDelta(t, 0.5, Recency(now.Add(-15*24*time.Hour), now), 0.01)
	assert.Equal(t, 0.0, Recency(now.Add(-60*24*time.Hour), now))
}

func TestFrequency_ClampedAtOne(t *testing.T) {
	assert.Equal(t, 0.0, Frequency(0))
	assert.InDelta(t, 0.5, Frequency(5), 0.001)
	assert.Equal(t, 1.0, Frequency(20))
}

func TestImportance_ScaledByHundred(t *testing.T) {
	assert.Equal(t, 0.0, Importance(0))
	assert.InDelta(t, 0.8, Importance(80), 0.001)
	assert.Equal(t, 1.0, Importance(100))
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	now := time.Now()
	item := models.KnowledgeItem{
		KnowledgeType:   models.KnowledgeTypeProcedural,
		CreatedAt:       now,
		ImportanceScore: models.IntPtr(100),
		AccessCount:     models.IntPtr(50),
	}
	for _, mode := range []Mode{ModeDirect, ModeTool} {
		s := Score(mode, item, now)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScore_ModeToolWeightsImportanceHigher(t *testing.T) {
	now := time.Now()
	lowImportance := models.KnowledgeItem{KnowledgeType: models.KnowledgeTypeFactual, CreatedAt: now, ImportanceScore: models.IntPtr(10)}
	highImportance := models.KnowledgeItem{KnowledgeType: models.KnowledgeTypeFactual, CreatedAt: now, ImportanceScore: models.IntPtr(90)}

	assert.Less(t, Score(ModeTool, lowImportance, now), Score(ModeTool, highImportance, now))
}

func TestScore_UnknownTypeFallsBackToDefaultWeight(t *testing.T) {
	now := time.Now()
	item := models.KnowledgeItem{KnowledgeType: models.KnowledgeType("unknown_tag"), CreatedAt: now, AccessCount: models.IntPtr(1)}
	// ParseKnowledgeType coerces unknown tags to factual before scoring,
	// so this should equal scoring an explicit factual item.
	factual := models.KnowledgeItem{KnowledgeType: models.KnowledgeTypeFactual, CreatedAt: now, AccessCount: models.IntPtr(1)}
	assert.Equal(t, Score(ModeDirect, item, now), Score(ModeDirect, factual, now))
}
