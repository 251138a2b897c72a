package context

import "strings"

// domainKeywords is the fixed table of domain tags to query keywords.
// The "mcp" domain only participates in tool mode.
var domainKeywords = map[string][]string{
	"database":      {"database", "postgresql", "sql", "pgvector"},
	"architecture":  {"architecture", "design", "system", "framework"},
	"implementation": {"implement", "code", "develop", "build"},
	"configuration": {"config", "setup", "install", "deploy"},
	"testing":       {"test", "validate", "verify", "debug"},
	"knowledge":     {"knowledge", "learning", "pattern", "insight"},
	"mcp":           {"mcp", "integration", "tools", "framework"},
}

// domainOrder fixes iteration order so AnalyzeQueryDomains is
// deterministic regardless of map iteration randomness.
var domainOrder = []string{"database", "architecture", "implementation", "configuration", "testing", "knowledge", "mcp"}

// AnalyzeQueryDomains derives domain tags from a query. includeMCP
// gates the tool-mode-only "mcp" domain. All matches are collected; if
// none matches, the result is ["general"].
func AnalyzeQueryDomains(query string, includeMCP bool) []string {
	lower := strings.ToLower(query)
	var domains []string
	for _, domain := range domainOrder {
		if domain == "mcp" && !includeMCP {
			continue
		}
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(lower, kw) {
				domains = append(domains, domain)
				break
			}
		}
	}
	if len(domains) == 0 {
		return []string{"general"}
	}
	return domains
}
