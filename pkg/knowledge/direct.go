package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// knowledgeRow mirrors the knowledge_items relation: id, knowledge_type,
// category, title, content, created_at, plus the two optional columns.
type knowledgeRow struct {
	ID              string         `db:"id"`
	KnowledgeType   string         `db:"knowledge_type"`
	Category        sql.NullString `db:"category"`
	Title           string         `db:"title"`
	Content         string         `db:"content"`
	CreatedAt       time.Time      `db:"created_at"`
	ImportanceScore sql.NullInt64  `db:"importance_score"`
	AccessCount     sql.NullInt64  `db:"access_count"`
}

func (r knowledgeRow) toItem() Item {
	item := Item{
		ID:            r.ID,
		Title:         r.Title,
		Content:       r.Content,
		KnowledgeType: r.KnowledgeType,
		Category:      r.Category.String,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	// NULL columns carry no opinion; a stored 0 is a real score and
	// must survive as a pointer to 0, not be dropped to "unset".
	if r.ImportanceScore.Valid {
		v := int(r.ImportanceScore.Int64)
		item.ImportanceScore = &v
	}
	if r.AccessCount.Valid {
		v := int(r.AccessCount.Int64)
		item.AccessCount = &v
	}
	return item
}

// DirectStoreConfig configures the Postgres-backed client.
type DirectStoreConfig struct {
	// RateLimitPerSecond bounds outbound query rate; 0 selects the
	// default of 50 per second.
	RateLimitPerSecond float64
	RateLimitBurst     int
	// MaxRetries bounds the client-owned retry of transient errors.
	// The core itself never retries; this knob lives here instead.
	MaxRetries uint64
	// BreakerFailureThreshold trips the circuit after this many
	// consecutive failures; 0 selects the default of 5.
	BreakerFailureThreshold uint32
}

func (c DirectStoreConfig) withDefaults() DirectStoreConfig {
	if c.RateLimitPerSecond == 0 {
		c.RateLimitPerSecond = 50
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BreakerFailureThreshold == 0 {
		c.BreakerFailureThreshold = 5
	}
	return c
}

// DirectStoreClient implements Client against a Postgres-compatible
// knowledge_items relation using case-insensitive ILIKE matching.
// Resilience (rate limiting, retry, circuit breaking) wraps every
// query; the query shapes themselves are type-set filters, ILIKE
// filters, created_at DESC, LIMIT N.
type DirectStoreClient struct {
	db      *sqlx.DB
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries uint64
}

// SessionHistory returns a DirectSessionHistory over the same
// connection, for wiring into the Context Manager's direct-mode
// session layer.
func (c *DirectStoreClient) SessionHistory() *DirectSessionHistory {
	return NewDirectSessionHistory(c.db)
}

// NewDirectStoreClient wraps an already-open *sqlx.DB.
func NewDirectStoreClient(db *sqlx.DB, cfg DirectStoreConfig) *DirectStoreClient {
	cfg = cfg.withDefaults()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "knowledge-direct-store",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
	})
	return &DirectStoreClient{
		db:      db,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
		breaker: breaker,
		retries: cfg.MaxRetries,
	}
}

func (c *DirectStoreClient) Mode() Mode { return ModeDirect }

// run executes op through the rate limiter, circuit breaker, and a
// bounded exponential backoff, classifying the final error as
// transient or permanent. A context cancellation or deadline is never
// retried and is always transient (the caller asked to stop, it isn't
// a store fault).
func (c *DirectStoreClient) run(ctx context.Context, name string, op func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transient(name, err)
	}

	attempt := func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(transient(name, err))
		}
		if isPermanentDBError(err) {
			return backoff.Permanent(permanent(name, err))
		}
		return transient(name, err)
	}, bo)

	if err == nil {
		return nil
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}
	return transient(name, err)
}

// isPermanentDBError flags classes of failure that a retry can never
// fix: bad SQL, auth failures, missing relations.
func isPermanentDBError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"syntax error", "does not exist", "permission denied", "password authentication failed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *DirectStoreClient) SearchKnowledge(ctx context.Context, query string, types []KnowledgeTypeFilter, limit int) ([]Item, error) {
	var rows []knowledgeRow
	err := c.run(ctx, "search_knowledge", func(ctx context.Context) error {
		sqlStr, args := buildSearchQuery(query, types, limit)
		return c.db.SelectContext(ctx, &rows, sqlStr, args...)
	})
	if err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

func buildSearchQuery(query string, types []KnowledgeTypeFilter, limit int) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	argN := 0
	next := func(v interface{}) string {
		argN++
		args = append(args, v)
		return fmt.Sprintf("$%d", argN)
	}

	if query != "" {
		p := "%" + query + "%"
		clauses = append(clauses, fmt.Sprintf("(category ILIKE %s OR content ILIKE %s)", next(p), next(p)))
	}
	if len(types) > 0 {
		var placeholders []string
		for _, t := range types {
			placeholders = append(placeholders, next(string(t)))
		}
		clauses = append(clauses, fmt.Sprintf("knowledge_type IN (%s)", strings.Join(placeholders, ", ")))
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	q := fmt.Sprintf(`SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count
		FROM knowledge_items %s ORDER BY created_at DESC LIMIT %s`, where, next(limit))
	return q, args
}

func (c *DirectStoreClient) GetContextualKnowledge(ctx context.Context, situation string, maxResults int) ([]Item, error) {
	// The direct-store variant has no separate "contextual" index; it
	// treats the situation string as a content/category search
	// (ILIKE, most-recent-first).
	return c.SearchKnowledge(ctx, situation, nil, maxResults)
}

func (c *DirectStoreClient) GetSessionContext(ctx context.Context, maxItems int, project string) ([]Item, error) {
	var rows []knowledgeRow
	err := c.run(ctx, "get_session_context", func(ctx context.Context) error {
		if project != "" {
			q := `SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count
				FROM knowledge_items WHERE category ILIKE $1 ORDER BY created_at DESC LIMIT $2`
			return c.db.SelectContext(ctx, &rows, q, "%"+project+"%", maxItems)
		}
		q := `SELECT id, knowledge_type, category, title, content, created_at, importance_score, access_count
			FROM knowledge_items ORDER BY created_at DESC LIMIT $1`
		return c.db.SelectContext(ctx, &rows, q, maxItems)
	})
	if err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

func (c *DirectStoreClient) StoreKnowledge(ctx context.Context, req StoreRequest) (string, error) {
	id := uuid.NewString()
	err := c.run(ctx, "store_knowledge", func(ctx context.Context) error {
		q := `INSERT INTO knowledge_items (id, knowledge_type, category, title, content, created_at, importance_score)
			VALUES ($1, $2, $3, $4, $5, now(), $6)`
		_, err := c.db.ExecContext(ctx, q, id, req.KnowledgeType, req.Category, req.Title, req.Content, req.ImportanceScore)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func toItems(rows []knowledgeRow) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toItem())
	}
	return items
}
