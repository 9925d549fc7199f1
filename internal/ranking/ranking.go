// Package ranking implements the multi-factor re-ranking engine for retrieved
// prompt/response candidates.
//
// Candidates arrive from vector similarity search with a raw distance. The
// engine derives three more features (recency, response length, retrieval
// count), normalizes each against the current candidate batch, combines them
// into a single weighted score under caller-supplied weights, and selects the
// top results. Normalization is deliberately batch-local: distance and recency
// scales are corpus-dependent and only mean something relative to sibling
// results of the same query, so denominators are recomputed per call and never
// cached.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Feature names recognized by the engine. A ranking request must supply a
// weight for every one of them.
const (
	FeatureDistance       = "distance"
	FeatureTimeElapsed    = "time_elapsed_since_added"
	FeatureLength         = "length"
	FeatureRetrievalCount = "retrieval_count"
)

// FeatureNames lists all recognized features in scoring order.
var FeatureNames = []string{
	FeatureDistance,
	FeatureTimeElapsed,
	FeatureLength,
	FeatureRetrievalCount,
}

// ErrInvalidRequest is returned when a ranking request fails validation.
var ErrInvalidRequest = errors.New("invalid ranking request")

// Candidate is a raw record returned by vector similarity search.
type Candidate struct {
	Prompt   string
	Response string

	// Distance is the similarity distance from the vector search.
	// Lower means more similar.
	Distance float64

	// CreatedAt is the record creation time in unix seconds.
	CreatedAt float64

	// RetrievalCount is the number of times this record has been returned
	// to a caller. Absent counts are treated as 0 upstream.
	RetrievalCount int
}

// FeatureContribution is the per-feature breakdown of a weighted score,
// kept for explainability of ranking decisions.
type FeatureContribution struct {
	Feature      string
	Value        float64
	Score        float64
	Weight       float64
	Contribution float64
}

// Record is a candidate with its derived features, normalized per-feature
// scores and the combined weighted score. Records are built fresh per call
// and are not reused across requests.
type Record struct {
	Candidate

	TimeElapsedSeconds float64

	DistanceScore       float64
	TimeElapsedScore    float64
	LengthScore         float64
	RetrievalCountScore float64

	WeightedScore float64
	Contributions []FeatureContribution
}

// Weights maps feature names to non-negative weights.
type Weights map[string]float64

// Request configures a single ranking call.
type Request struct {
	// TopN is the maximum number of records to return. Must be positive.
	TopN int

	// Weights must contain an entry for every recognized feature.
	Weights Weights

	// DistanceFilter excludes candidates with Distance > DistanceFilter
	// before any scoring takes place.
	DistanceFilter float64
}

// Validate checks the request before any work is done.
func (r Request) Validate() error {
	if r.TopN <= 0 {
		return fmt.Errorf("%w: top_n must be positive, got %d", ErrInvalidRequest, r.TopN)
	}
	for _, name := range FeatureNames {
		w, ok := r.Weights[name]
		if !ok {
			return fmt.Errorf("%w: missing weight for feature %q", ErrInvalidRequest, name)
		}
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%w: weight for feature %q must be non-negative", ErrInvalidRequest, name)
		}
	}
	return nil
}

// Engine ranks candidate batches. It holds no per-request state; the clock is
// injectable so tests can pin "now".
type Engine struct {
	now func() time.Time
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used to derive elapsed time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a ranking engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank filters, scores, orders and truncates a candidate batch.
//
// Steps, in order: validate the request, drop candidates beyond the distance
// filter, derive elapsed time from a single "now" captured for the whole
// batch, compute batch-local normalization denominators, score each feature
// into [0,1], combine scores under the request weights, sort descending by
// weighted score (ties broken by ascending distance, then original retrieval
// order), deduplicate exact (prompt, response) pairs keeping the first-ranked
// instance, and truncate to TopN.
//
// An empty input or a batch with no survivors returns an empty slice, not an
// error; the caller decides how to present "no answer".
func (e *Engine) Rank(candidates []Candidate, req Request) ([]Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Single timestamp for the whole batch so elapsed-time scores are
	// comparable across records.
	now := float64(e.now().UnixMilli()) / 1000.0

	batch := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		if c.Distance > req.DistanceFilter {
			continue
		}
		batch = append(batch, Record{
			Candidate:          c,
			TimeElapsedSeconds: now - c.CreatedAt,
		})
	}
	if len(batch) == 0 {
		return nil, nil
	}

	// Denominators are computed after filtering so scores are relative to
	// the records that can actually be returned.
	var maxElapsed, maxLength, maxCount float64
	for _, r := range batch {
		maxElapsed = math.Max(maxElapsed, r.TimeElapsedSeconds)
		maxLength = math.Max(maxLength, float64(len(r.Response)))
		maxCount = math.Max(maxCount, float64(r.RetrievalCount))
	}

	for i := range batch {
		r := &batch[i]
		r.DistanceScore = clamp01(1 - r.Distance)
		r.TimeElapsedScore = invertedRatio(r.TimeElapsedSeconds, maxElapsed)
		r.LengthScore = ratio(float64(len(r.Response)), maxLength)
		r.RetrievalCountScore = ratio(float64(r.RetrievalCount), maxCount)
		e.aggregate(r, req.Weights)
	}

	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].WeightedScore != batch[j].WeightedScore {
			return batch[i].WeightedScore > batch[j].WeightedScore
		}
		return batch[i].Distance < batch[j].Distance
	})

	deduped := dedupe(batch)
	if len(deduped) > req.TopN {
		deduped = deduped[:req.TopN]
	}
	return deduped, nil
}

// aggregate combines the four feature scores into the weighted score and
// records the per-feature contribution breakdown. The weighted score is the
// exact sum of the contributions.
func (e *Engine) aggregate(r *Record, weights Weights) {
	features := []struct {
		name  string
		value float64
		score float64
	}{
		{FeatureDistance, r.Distance, r.DistanceScore},
		{FeatureTimeElapsed, r.CreatedAt, r.TimeElapsedScore},
		{FeatureLength, float64(len(r.Response)), r.LengthScore},
		{FeatureRetrievalCount, float64(r.RetrievalCount), r.RetrievalCountScore},
	}

	r.Contributions = make([]FeatureContribution, 0, len(features))
	r.WeightedScore = 0
	for _, f := range features {
		w := weights[f.name]
		c := w * f.score
		r.WeightedScore += c
		r.Contributions = append(r.Contributions, FeatureContribution{
			Feature:      f.name,
			Value:        f.value,
			Score:        f.score,
			Weight:       w,
			Contribution: c,
		})
	}
}

// dedupe drops records whose exact (prompt, response) pair was already seen.
// The input is sorted by rank, so the kept instance is the best-scoring one.
func dedupe(records []Record) []Record {
	type key struct{ prompt, response string }
	seen := make(map[key]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		k := key{r.Prompt, r.Response}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// ratio normalizes value against the batch maximum, clamped to [0,1].
// A zero (or degenerate) denominator means every record shares the same
// value, which carries no ranking signal, so the score is 0 for all.
func ratio(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(value / max)
}

// invertedRatio is ratio with the sense flipped: smaller raw values score
// higher. Used for elapsed time, where fresher records rank better.
func invertedRatio(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(1 - value/max)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
