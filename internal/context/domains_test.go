package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeQueryDomains_MatchesKeywords(t *testing.T) {
	domains := AnalyzeQueryDomains("how do I configure postgresql", false)
	assert.Contains(t, domains, "database")
	assert.Contains(t, domains, "configuration")
}

func TestAnalyzeQueryDomains_NoMatchFallsBackToGeneral(t *testing.T) {
	domains := AnalyzeQueryDomains("hello there", false)
	assert.Equal(t, []string{"general"}, domains)
}

func TestAnalyzeQueryDomains_MCPGatedByIncludeMCP(t *testing.T) {
	assert.NotContains(t, AnalyzeQueryDomains("mcp integration tools", false), "mcp")
	assert.Contains(t, AnalyzeQueryDomains("mcp integration tools", true), "mcp")
}

func TestAnalyzeQueryDomains_DeterministicOrder(t *testing.T) {
	domains := AnalyzeQueryDomains("test the database architecture", false)
	assert.Equal(t, []string{"database", "architecture", "testing"}, domains)
}
