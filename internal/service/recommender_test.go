package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/smartops/recall/internal/ranking"
	"github.com/smartops/recall/internal/vectorstore"
)

// fakeEmbedder returns a fixed vector and records whether it was called.
type fakeEmbedder struct {
	called bool
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake-model" }

// fakeStore serves canned search results and records counter updates.
type fakeStore struct {
	pairs      []vectorstore.StoredPair
	nearestErr error

	findErr error
	setErr  error

	counts    map[string]int // id -> value passed to SetRetrievalCount
	upserted  []vectorstore.Pair
	upsertErr error

	exists            bool
	ensuredDimension  int
	deletedCollection bool
}

func newFakeStore(pairs ...vectorstore.StoredPair) *fakeStore {
	return &fakeStore{pairs: pairs, counts: make(map[string]int), exists: true}
}

func (f *fakeStore) EnsureCollection(ctx context.Context, dimension int) error {
	f.exists = true
	f.ensuredDimension = dimension
	return nil
}

func (f *fakeStore) CollectionExists(ctx context.Context) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) DeleteCollection(ctx context.Context) error {
	f.exists = false
	f.deletedCollection = true
	return nil
}
func (f *fakeStore) Upsert(ctx context.Context, pairs []vectorstore.Pair) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, pairs...)
	return nil
}

func (f *fakeStore) Nearest(ctx context.Context, vector []float32, limit int) ([]vectorstore.StoredPair, error) {
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	if len(f.pairs) > limit {
		return f.pairs[:limit], nil
	}
	return f.pairs, nil
}

func (f *fakeStore) FindExact(ctx context.Context, prompt, response string) (*vectorstore.StoredPair, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, p := range f.pairs {
		if p.Prompt == prompt && p.Response == response {
			return &p, nil
		}
	}
	return nil, vectorstore.ErrNotFound
}

func (f *fakeStore) SetRetrievalCount(ctx context.Context, id string, count int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.counts[id] = count
	return nil
}

func equalWeights() map[string]float64 {
	return map[string]float64{
		ranking.FeatureDistance:       0.25,
		ranking.FeatureTimeElapsed:    0.25,
		ranking.FeatureLength:         0.25,
		ranking.FeatureRetrievalCount: 0.25,
	}
}

func validRequest() RecommendRequest {
	return RecommendRequest{
		Message:        "how do I restart a pod?",
		TopN:           5,
		Weights:        equalWeights(),
		DistanceFilter: 0.5,
	}
}

func TestRecommend_EmptyMessage(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := NewRecommenderService(emb, newFakeStore(), ranking.NewEngine())

	req := validRequest()
	req.Message = "   "
	_, err := svc.Recommend(context.Background(), req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if emb.called {
		t.Error("embedder should not be called for an invalid request")
	}
}

func TestRecommend_InvalidWeights(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := NewRecommenderService(emb, newFakeStore(), ranking.NewEngine())

	req := validRequest()
	delete(req.Weights, ranking.FeatureLength)
	_, err := svc.Recommend(context.Background(), req)
	if !errors.Is(err, ranking.ErrInvalidRequest) {
		t.Fatalf("expected ranking.ErrInvalidRequest, got %v", err)
	}
	if emb.called {
		t.Error("embedder should not be called before validation passes")
	}
}

func TestRecommend_EmbedderFailure(t *testing.T) {
	emb := &fakeEmbedder{err: fmt.Errorf("connection refused")}
	svc := NewRecommenderService(emb, newFakeStore(), ranking.NewEngine())

	_, err := svc.Recommend(context.Background(), validRequest())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRecommend_SearchFailure(t *testing.T) {
	store := newFakeStore()
	store.nearestErr = fmt.Errorf("qdrant unavailable")
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine())

	_, err := svc.Recommend(context.Background(), validRequest())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRecommend_NoCandidatesReturnsFallback(t *testing.T) {
	svc := NewRecommenderService(&fakeEmbedder{}, newFakeStore(), ranking.NewEngine())

	recs, err := svc.Recommend(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 fallback record, got %d", len(recs))
	}

	fb := recs[0]
	if fb.Response != NoAnswerResponse {
		t.Errorf("expected fallback response %q, got %q", NoAnswerResponse, fb.Response)
	}
	if fb.Prompt != "" {
		t.Errorf("expected empty fallback prompt, got %q", fb.Prompt)
	}
	if fb.WeightedScore != nil || fb.DistanceScore != nil || fb.RetrievalCount != nil {
		t.Error("fallback score fields should be nil")
	}
	if fb.Contributions == nil || len(fb.Contributions) != 0 {
		t.Errorf("fallback contributions should be empty, got %v", fb.Contributions)
	}
}

func TestRecommend_AllFilteredReturnsFallback(t *testing.T) {
	store := newFakeStore(
		vectorstore.StoredPair{ID: "a", Prompt: "p", Response: "r", Distance: 0.9},
	)
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine())

	req := validRequest()
	req.DistanceFilter = 0.5
	recs, err := svc.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Response != NoAnswerResponse {
		t.Fatalf("expected fallback record, got %+v", recs)
	}
	if len(store.counts) != 0 {
		t.Errorf("no counter updates expected for a fallback, got %v", store.counts)
	}
}

func TestRecommend_RanksAndUpdatesCounters(t *testing.T) {
	store := newFakeStore(
		vectorstore.StoredPair{ID: "far", Prompt: "p1", Response: "r1", Distance: 0.4, CreatedAt: 1000, RetrievalCount: 2},
		vectorstore.StoredPair{ID: "near", Prompt: "p2", Response: "r2", Distance: 0.1, CreatedAt: 2000, RetrievalCount: 7},
		vectorstore.StoredPair{ID: "dropped", Prompt: "p3", Response: "r3", Distance: 0.8},
	)
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine())

	recs, err := svc.Recommend(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Prompt != "p2" {
		t.Errorf("expected closest pair ranked first, got %q", recs[0].Prompt)
	}
	for _, r := range recs {
		if r.WeightedScore == nil || *r.WeightedScore < 0 || *r.WeightedScore > 1 {
			t.Errorf("weighted score out of range for %q: %v", r.Prompt, r.WeightedScore)
		}
		if r.TimeElapsed == nil || *r.TimeElapsed == "" {
			t.Errorf("expected formatted elapsed time for %q", r.Prompt)
		}
		if len(r.Contributions) != len(ranking.FeatureNames) {
			t.Errorf("expected %d contributions for %q, got %d",
				len(ranking.FeatureNames), r.Prompt, len(r.Contributions))
		}
	}

	// Each returned record gets its counter incremented; the filtered one
	// does not.
	if got := store.counts["near"]; got != 8 {
		t.Errorf("expected counter 8 for near, got %d", got)
	}
	if got := store.counts["far"]; got != 3 {
		t.Errorf("expected counter 3 for far, got %d", got)
	}
	if _, ok := store.counts["dropped"]; ok {
		t.Error("filtered record should not get a counter update")
	}
}

func TestRecommend_CounterLookupFailureIsNonFatal(t *testing.T) {
	store := newFakeStore(
		vectorstore.StoredPair{ID: "a", Prompt: "p", Response: "r", Distance: 0.1},
	)
	store.findErr = vectorstore.ErrNotFound
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine())

	recs, err := svc.Recommend(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("counter lookup failure must not fail the request: %v", err)
	}
	if len(recs) != 1 || recs[0].Prompt != "p" {
		t.Fatalf("expected ranked record despite counter failure, got %+v", recs)
	}
}

func TestRecommend_CounterUpdateFailureIsNonFatal(t *testing.T) {
	store := newFakeStore(
		vectorstore.StoredPair{ID: "a", Prompt: "p", Response: "r", Distance: 0.1},
	)
	store.setErr = fmt.Errorf("write timeout")
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine())

	recs, err := svc.Recommend(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("counter update failure must not fail the request: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
}

func TestRecommend_SearchLimitOption(t *testing.T) {
	pairs := make([]vectorstore.StoredPair, 10)
	for i := range pairs {
		pairs[i] = vectorstore.StoredPair{
			ID:       fmt.Sprintf("id-%d", i),
			Prompt:   fmt.Sprintf("p%d", i),
			Response: fmt.Sprintf("r%d", i),
			Distance: 0.1,
		}
	}
	store := newFakeStore(pairs...)
	svc := NewRecommenderService(&fakeEmbedder{}, store, ranking.NewEngine(),
		WithSearchLimit(3),
	)

	req := validRequest()
	req.TopN = 10
	recs, err := svc.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected search limit to cap candidates at 3, got %d", len(recs))
	}
}
