package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cagcore/engine/internal/cache"
	contextpkg "github.com/cagcore/engine/internal/context"
	"github.com/cagcore/engine/internal/engine"
	"github.com/cagcore/engine/internal/warmer"
	"github.com/cagcore/engine/pkg/knowledge"
	"github.com/cagcore/engine/pkg/models"
	"github.com/cagcore/engine/pkg/observability"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := observability.NewLogger("cag")
	ctx := context.Background()

	switch os.Args[1] {
	case "test":
		runSelfTest(ctx, logger)
	case "query":
		fs := flag.NewFlagSet("query", flag.ExitOnError)
		session := fs.String("session", "cli-session", "session ID")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() == 0 {
			fmt.Println("usage: cag query [-session ID] <text...>")
			os.Exit(1)
		}
		runQuery(ctx, logger, strings.Join(fs.Args(), " "), *session)
	case "domain-warm":
		fs := flag.NewFlagSet("domain-warm", flag.ExitOnError)
		priority := fs.String("priority", "normal", "warming priority")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			fmt.Println("usage: cag domain-warm [-priority P] <domain>")
			os.Exit(1)
		}
		runDomainWarm(ctx, logger, fs.Arg(0), *priority)
	case "cache-summary":
		fs := flag.NewFlagSet("cache-summary", flag.ExitOnError)
		layer := fs.String("layer", "", "restrict to one layer (empty = all)")
		_ = fs.Parse(os.Args[2:])
		runCacheSummary(ctx, logger, models.ContextLayer(*layer))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: cag <test|query|domain-warm|cache-summary> [flags] [args]")
}

func buildFixtureEngine(logger observability.Logger) *engine.Engine {
	client := newFixtureClient(knowledge.ModeDirect)
	warmCache := cache.New(0.3, 100)
	registry := warmer.NewSessionRegistry()
	w := warmer.New(client, warmCache, registry, logger, warmer.AlwaysPredictRecognizer{})
	manager := contextpkg.New(client, logger, 128000)
	return engine.New(client, warmCache, w, manager, logger, observability.NewNoopMetricsClient())
}

// runSelfTest drives a fixed set of queries, each in its own session,
// through the fixture client and reports a failure for any query that
// errors or compiles an empty context. It does not check individual
// layers.
func runSelfTest(ctx context.Context, logger observability.Logger) {
	eng := buildFixtureEngine(logger)
	queries := []string{
		"database connection pooling",
		"api rate limit",
		"kubernetes rollout",
		"security review",
	}
	failures := 0
	for i, q := range queries {
		sessionID := fmt.Sprintf("selftest-%d", i)
		envelope, err := eng.ProcessQuery(ctx, q, sessionID, nil)
		if err != nil {
			fmt.Printf("FAIL  %-35s error: %v\n", q, err)
			failures++
			continue
		}
		if !envelope.ContextLoaded || envelope.ContextSizeTokens == 0 {
			fmt.Printf("FAIL  %-35s empty context\n", q)
			failures++
			continue
		}
		fmt.Printf("OK    %-35s tokens=%d items=%d layers=%d\n", q, envelope.ContextSizeTokens, envelope.CachedKnowledgeItems, countLayers(envelope.ContextLayers))
	}
	if failures > 0 {
		fmt.Printf("%d/%d queries failed\n", failures, len(queries))
		os.Exit(1)
	}
	fmt.Println("all self-test queries passed")
}

func countLayers(layers map[models.ContextLayer]bool) int {
	n := 0
	for _, present := range layers {
		if present {
			n++
		}
	}
	return n
}

func runQuery(ctx context.Context, logger observability.Logger, query, sessionID string) {
	eng := buildFixtureEngine(logger)
	envelope, err := eng.ProcessQuery(ctx, query, sessionID, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(envelope.FullContext)
	fmt.Printf("--- context_size_tokens=%d cached_knowledge_items=%d total_processing_time=%s\n",
		envelope.ContextSizeTokens, envelope.CachedKnowledgeItems, envelope.Performance.TotalProcessingTime)
}

func runDomainWarm(ctx context.Context, logger observability.Logger, domain, priority string) {
	eng := buildFixtureEngine(logger)
	result := eng.WarmDomainCache(ctx, domain, priority)
	fmt.Printf("domain=%s priority=%s items_loaded=%d success=%t\n", domain, priority, result.ItemsLoaded, result.Success)
}

func runCacheSummary(ctx context.Context, logger observability.Logger, layer models.ContextLayer) {
	eng := buildFixtureEngine(logger)
	// Warm once so the summary has something to report.
	_, _ = eng.ProcessQuery(ctx, "database connection pooling", "cache-summary-warm", nil)
	summary := eng.GetCachedKnowledgeSummary(layer)
	fmt.Printf("total_items=%d layers=%d avg_priority=%.3f memory_estimate=%d\n",
		summary.TotalItems, summary.Layers, summary.AveragePriority, summary.MemoryEstimate)
	for _, s := range summary.SampleEntries {
		fmt.Printf("  %s\n", s.Key)
	}
}
