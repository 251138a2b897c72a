// Package scoring computes a pure, total cache priority in [0,1] for a
// knowledge item.
package scoring

import (
	"time"

	"github.com/cagcore/engine/pkg/models"
)

// typeWeight and strategicValue are the fixed weighting tables. Unknown
// types are coerced to factual by models.ParseKnowledgeType before
// reaching the scorer and so take the factual 0.5 row; a known type
// missing from a table (pattern_recognition) gets the 0.5 default via
// weightFor/strategicFor.
var typeWeight = map[models.KnowledgeType]float64{
	models.KnowledgeTypeProcedural:         0.9,
	models.KnowledgeTypeTechnicalDiscovery: 0.8,
	models.KnowledgeTypeExperiential:       0.7,
	models.KnowledgeTypeContextual:         0.6,
	models.KnowledgeTypeFactual:            0.5,
	models.KnowledgeTypeRelational:         0.4,
}

var strategicValue = map[models.KnowledgeType]float64{
	models.KnowledgeTypeTechnicalDiscovery: 0.9,
	models.KnowledgeTypeProcedural:         0.8,
	models.KnowledgeTypeExperiential:       0.7,
	models.KnowledgeTypeContextual:         0.6,
	models.KnowledgeTypeFactual:            0.5,
	models.KnowledgeTypeRelational:         0.4,
}

const defaultWeight = 0.5

func weightFor(t models.KnowledgeType) float64 {
	if w, ok := typeWeight[t]; ok {
		return w
	}
	return defaultWeight
}

func strategicFor(t models.KnowledgeType) float64 {
	if w, ok := strategicValue[t]; ok {
		return w
	}
	return defaultWeight
}

// Mode selects which composite formula Score applies.
type Mode int

const (
	// ModeDirect: 0.3*recency + 0.25*strategic_value + 0.25*frequency + 0.2*type_weight
	ModeDirect Mode = iota
	// ModeTool: 0.4*importance + 0.3*type_weight + 0.3*recency
	ModeTool
)

// Recency returns max(0, 1 - age_days/30). A zero-value CreatedAt is
// treated as missing and scores recency = 1.
func Recency(createdAt time.Time, now time.Time) float64 {
	if createdAt.IsZero() {
		return 1
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	r := 1 - ageDays/30
	if r < 0 {
		return 0
	}
	return r
}

// Frequency returns min(1, access_count/10).
func Frequency(accessCount int) float64 {
	f := float64(accessCount) / 10
	if f > 1 {
		return 1
	}
	return f
}

// Importance returns importance_score/100.
func Importance(importanceScore int) float64 {
	return float64(importanceScore) / 100
}

// Score is the pure scoring function. now is passed explicitly so the
// function has no hidden clock dependency and is trivially testable.
func Score(mode Mode, item models.KnowledgeItem, now time.Time) float64 {
	knowledgeType := models.ParseKnowledgeType(string(item.KnowledgeType))
	recency := Recency(item.CreatedAt, now)

	var score float64
	switch mode {
	case ModeTool:
		importance := Importance(item.ImportanceOrDefault())
		score = 0.4*importance + 0.3*weightFor(knowledgeType) + 0.3*recency
	default: // ModeDirect
		frequency := Frequency(item.AccessCountOrDefault())
		score = 0.3*recency + 0.25*strategicFor(knowledgeType) + 0.25*frequency + 0.2*weightFor(knowledgeType)
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
