// Package retrieval selects the passages that ground an answer.
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/webdedesign/vergiai/internal/metrics"
	"github.com/webdedesign/vergiai/internal/storage"
)

// DefaultTopN is the number of passages returned per query.
const DefaultTopN = 5

// Citation locates a passage in its source.
type Citation struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
}

// Passage is one retrieved fragment.
type Passage struct {
	Text     string   `json:"text"`
	Citation Citation `json:"citation"`
	Score    float64  `json:"score"`
}

// Result holds ranked passages, best first.
type Result struct {
	Passages []Passage
}

// Empty reports whether nothing cleared the score floor.
func (r Result) Empty() bool {
	return len(r.Passages) == 0
}

// Citations returns each distinct (document, page) once, in rank order.
func (r Result) Citations() []Citation {
	seen := make(map[Citation]struct{}, len(r.Passages))
	var out []Citation
	for _, p := range r.Passages {
		if _, ok := seen[p.Citation]; ok {
			continue
		}
		seen[p.Citation] = struct{}{}
		out = append(out, p.Citation)
	}
	return out
}

// Retriever queries a store and applies its score floor and top-N cut.
type Retriever struct {
	store    storage.Store
	topN     int
	minScore *float64
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopN sets how many passages to return.
func WithTopN(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithMinScore overrides the backend's score floor.
func WithMinScore(score float64) Option {
	return func(r *Retriever) {
		r.minScore = &score
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records retrieval outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// New creates a Retriever over store.
func New(store storage.Store, opts ...Option) *Retriever {
	r := &Retriever{
		store:  store,
		topN:   DefaultTopN,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopN returns the configured passage limit.
func (r *Retriever) TopN() int {
	return r.topN
}

// Retrieve returns the best passages for query. It never fails: an empty,
// missing or unreachable store yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string) Result {
	return r.RetrieveN(ctx, query, r.topN)
}

// RetrieveN is Retrieve with an explicit limit.
func (r *Retriever) RetrieveN(ctx context.Context, query string, limit int) Result {
	if strings.TrimSpace(query) == "" {
		return Result{}
	}
	if limit <= 0 {
		limit = r.topN
	}

	matches, err := r.store.Search(ctx, query, limit)
	if err != nil {
		r.logger.Warn("retrieval degraded to empty result", zap.Error(err))
		r.record(metrics.OutcomeDegraded, 0)
		return Result{}
	}

	floor := r.store.ScoreFloor()
	if r.minScore != nil {
		floor = *r.minScore
	}

	var result Result
	for _, m := range matches {
		if m.Score <= floor {
			continue
		}
		result.Passages = append(result.Passages, Passage{
			Text:     m.Text,
			Citation: Citation{Document: m.Document, Page: m.Page},
			Score:    m.Score,
		})
		if len(result.Passages) == limit {
			break
		}
	}

	outcome := metrics.OutcomeHit
	if result.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	r.record(outcome, len(result.Passages))
	r.logger.Debug("retrieved passages",
		zap.Int("candidates", len(matches)),
		zap.Int("passages", len(result.Passages)),
		zap.Float64("floor", floor),
	)
	return result
}

func (r *Retriever) record(outcome string, passages int) {
	if r.metrics == nil {
		return
	}
	r.metrics.Retrievals.WithLabelValues(outcome).Inc()
	r.metrics.Passages.Observe(float64(passages))
}
