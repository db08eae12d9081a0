package match

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utsavhq/vendormatch/internal/directory"
	"github.com/utsavhq/vendormatch/internal/tracing"
)

// Matcher wraps the pure ranking pipeline with observability: tracing spans,
// Prometheus metrics, and a per-request log line. The pure functions (Score,
// Rank and friends) stay available for library callers that want none of
// that.
type Matcher struct {
	weights *Weights
	logger  *slog.Logger
	metrics *Metrics
}

// NewMatcher creates a Matcher. A nil weights pointer means defaults, a nil
// logger falls back to slog.Default, and a nil metrics instance disables
// metric recording.
func NewMatcher(weights *Weights, logger *slog.Logger, metrics *Metrics) *Matcher {
	if weights == nil {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		weights: weights,
		logger:  logger,
		metrics: metrics,
	}
}

// Weights returns the weights the Matcher ranks with.
func (m *Matcher) Weights() *Weights {
	return m.weights
}

// Match ranks a directory snapshot against a request. The context is used
// for tracing only; the computation itself has no cancellation points.
func (m *Matcher) Match(ctx context.Context, vendors []directory.Vendor, req Request) Result {
	ctx, endSpan := tracing.StartSpan(ctx, "match.rank")
	defer endSpan(nil)

	start := time.Now()
	req.Categories = NormalizeCategories(req.Categories)

	var mismatched, blacklisted int
	for _, v := range vendors {
		if !req.Needs(v.Category) {
			mismatched++
			continue
		}
		if v.Status == directory.StatusBlacklisted {
			blacklisted++
		}
	}

	result := RankWith(vendors, req, m.weights)

	returned := 0
	for _, list := range result {
		returned += len(list)
	}
	duration := time.Since(start)

	tracing.SetAttributes(ctx,
		attribute.String("match.event_type", string(req.EventType)),
		attribute.Int("match.categories", len(req.Categories)),
		attribute.Int("match.vendors", len(vendors)),
		attribute.Int("match.candidates", returned),
	)

	if m.metrics != nil {
		m.metrics.IncRequests()
		m.metrics.ObserveDuration(duration.Seconds())
		m.metrics.AddVendorsEvaluated(len(vendors))
		m.metrics.AddVendorsIneligible(ReasonCategoryMismatch, mismatched)
		m.metrics.AddVendorsIneligible(ReasonBlacklisted, blacklisted)
		m.metrics.ObserveCandidatesReturned(returned)
	}

	m.logger.DebugContext(ctx, "match computed",
		slog.String("event_type", string(req.EventType)),
		slog.Int("categories", len(req.Categories)),
		slog.Int("vendors", len(vendors)),
		slog.Int("candidates", returned),
		slog.Duration("duration", duration))

	return result
}
