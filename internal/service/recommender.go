package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smartops/recall/internal/embedder"
	"github.com/smartops/recall/internal/ranking"
	"github.com/smartops/recall/internal/vectorstore"
)

// NoAnswerResponse is the canned response returned when no candidate
// survives retrieval and filtering.
const NoAnswerResponse = "I'm sorry, I don't have an answer for that."

// DefaultSearchLimit is how many candidates are fetched from the vector
// store for re-ranking when not configured otherwise.
const DefaultSearchLimit = 50

// RecommendRequest is the body of POST /recommender.
type RecommendRequest struct {
	Message        string             `json:"message"`
	TopN           int                `json:"top_n"`
	Weights        map[string]float64 `json:"weights"`
	DistanceFilter float64            `json:"distance_filter"`
}

// FeatureContribution is the per-feature score breakdown in a response.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Recommendation is one ranked record in the response. Score fields are
// pointers so the no-answer fallback can carry nulls.
type Recommendation struct {
	Prompt                     string                `json:"prompt"`
	Response                   string                `json:"response"`
	DistanceScore              *float64              `json:"distance_score"`
	TimeElapsedSinceAddedScore *float64              `json:"time_elapsed_since_added_score"`
	LengthScore                *float64              `json:"length_score"`
	RetrievalCount             *int                  `json:"retrieval_count"`
	RetrievalCountScore        *float64              `json:"retrieval_count_score"`
	WeightedScore              *float64              `json:"weighted_score"`
	CreationTime               *float64              `json:"creation_time"`
	TimeElapsed                *string               `json:"time_elapsed"`
	Contributions              []FeatureContribution `json:"contributions"`
}

// RecommenderService runs the retrieval and re-ranking pipeline:
// embed the query, fetch nearest candidates, rank them, emit retrieval-count
// feedback for the returned records, and shape the response.
type RecommenderService struct {
	embedder    embedder.Embedder
	store       vectorstore.Store
	engine      *ranking.Engine
	searchLimit int
	logger      *slog.Logger
}

// RecommenderOption is a functional option for configuring RecommenderService.
type RecommenderOption func(*RecommenderService)

// WithSearchLimit sets how many candidates are fetched for re-ranking.
func WithSearchLimit(limit int) RecommenderOption {
	return func(s *RecommenderService) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) RecommenderOption {
	return func(s *RecommenderService) {
		s.logger = logger
	}
}

// NewRecommenderService creates a new RecommenderService.
func NewRecommenderService(emb embedder.Embedder, store vectorstore.Store, engine *ranking.Engine, opts ...RecommenderOption) *RecommenderService {
	s := &RecommenderService{
		embedder:    emb,
		store:       store,
		engine:      engine,
		searchLimit: DefaultSearchLimit,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend executes one ranking request. Validation happens before any
// external call; an empty candidate or post-filter set yields the single
// no-answer fallback record, not an error.
func (s *RecommenderService) Recommend(ctx context.Context, req RecommendRequest) ([]Recommendation, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	rankReq := ranking.Request{
		TopN:           req.TopN,
		Weights:        req.Weights,
		DistanceFilter: req.DistanceFilter,
	}
	if err := rankReq.Validate(); err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.Embed(ctx, req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrUpstream, err)
	}

	stored, err := s.store.Nearest(ctx, queryVector, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", ErrUpstream, err)
	}

	candidates := make([]ranking.Candidate, len(stored))
	for i, p := range stored {
		candidates[i] = ranking.Candidate{
			Prompt:         p.Prompt,
			Response:       p.Response,
			Distance:       p.Distance,
			CreatedAt:      p.CreatedAt,
			RetrievalCount: p.RetrievalCount,
		}
	}

	records, err := s.engine.Rank(candidates, rankReq)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Recommendation{noAnswerFallback()}, nil
	}

	s.recordRetrievals(ctx, records)

	out := make([]Recommendation, len(records))
	for i, r := range records {
		out[i] = presentRecord(r)
	}
	return out, nil
}

// recordRetrievals bumps the feedback counter of each returned record.
// Failures are logged per record and never fail the response: the ranked
// list has already been produced, and the counter is a best-effort
// statistic. Concurrent requests that return the same record may race and
// lose an increment.
func (s *RecommenderService) recordRetrievals(ctx context.Context, records []ranking.Record) {
	for _, r := range records {
		pair, err := s.store.FindExact(ctx, r.Prompt, r.Response)
		if err != nil {
			if errors.Is(err, vectorstore.ErrNotFound) {
				s.logger.Warn("record not found for retrieval count update",
					"prompt", truncate(r.Prompt, 80))
			} else {
				s.logger.Warn("retrieval count lookup failed",
					"prompt", truncate(r.Prompt, 80), "error", err)
			}
			continue
		}
		if err := s.store.SetRetrievalCount(ctx, pair.ID, pair.RetrievalCount+1); err != nil {
			s.logger.Warn("retrieval count update failed",
				"id", pair.ID, "error", err)
		}
	}
}

// presentRecord shapes a ranked record for the response: scores rounded to
// 3 decimals, elapsed time as "D day HH:MM:SS".
func presentRecord(r ranking.Record) Recommendation {
	contributions := make([]FeatureContribution, len(r.Contributions))
	for i, c := range r.Contributions {
		contributions[i] = FeatureContribution{
			Feature:      c.Feature,
			Value:        ranking.Round3(c.Value),
			Score:        ranking.Round3(c.Score),
			Weight:       ranking.Round3(c.Weight),
			Contribution: ranking.Round3(c.Contribution),
		}
	}

	return Recommendation{
		Prompt:                     r.Prompt,
		Response:                   r.Response,
		DistanceScore:              ptr(ranking.Round3(r.DistanceScore)),
		TimeElapsedSinceAddedScore: ptr(ranking.Round3(r.TimeElapsedScore)),
		LengthScore:                ptr(ranking.Round3(r.LengthScore)),
		RetrievalCount:             ptr(r.RetrievalCount),
		RetrievalCountScore:        ptr(ranking.Round3(r.RetrievalCountScore)),
		WeightedScore:              ptr(ranking.Round3(r.WeightedScore)),
		CreationTime:               ptr(r.CreatedAt),
		TimeElapsed:                ptr(ranking.FormatElapsed(r.TimeElapsedSeconds)),
		Contributions:              contributions,
	}
}

// noAnswerFallback is the sentinel record for an empty result set: all
// optional fields null, contributions empty.
func noAnswerFallback() Recommendation {
	return Recommendation{
		Response:      NoAnswerResponse,
		Contributions: []FeatureContribution{},
	}
}

func ptr[T any](v T) *T {
	return &v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
