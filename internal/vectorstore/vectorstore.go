// Package vectorstore provides interfaces and implementations for vector
// similarity search over stored prompt/response pairs.
package vectorstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an exact-match lookup finds no stored pair.
var ErrNotFound = errors.New("pair not found")

// Pair is a prompt/response pair to be stored with its embedding.
type Pair struct {
	ID       string
	Prompt   string
	Response string
	Vector   []float32

	// RetrievalCount is the initial feedback counter value.
	RetrievalCount int

	// CreatedAt is the creation time in unix seconds.
	CreatedAt float64
}

// StoredPair is a pair as returned by the store.
type StoredPair struct {
	ID       string
	Prompt   string
	Response string

	// Distance is the similarity distance to the query vector.
	// Lower means more similar. Zero when the pair was fetched by exact
	// match rather than similarity search.
	Distance float64

	// CreatedAt is the creation time in unix seconds.
	CreatedAt float64

	// RetrievalCount is the feedback counter; pairs stored without one
	// read as 0.
	RetrievalCount int
}

// Store defines the vector storage operations the recommender needs.
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(ctx context.Context, dimension int) error

	// CollectionExists checks if the collection exists.
	CollectionExists(ctx context.Context) (bool, error)

	// DeleteCollection deletes the collection and everything in it.
	DeleteCollection(ctx context.Context) error

	// Upsert inserts or updates pairs.
	Upsert(ctx context.Context, pairs []Pair) error

	// Nearest returns up to limit pairs by vector similarity, closest first.
	Nearest(ctx context.Context, vector []float32, limit int) ([]StoredPair, error)

	// FindExact looks up a stored pair by exact (prompt, response) match.
	// Returns ErrNotFound when no such pair exists.
	FindExact(ctx context.Context, prompt, response string) (*StoredPair, error)

	// SetRetrievalCount overwrites the feedback counter of a stored pair.
	// This is a plain read-modify-write from the caller's perspective;
	// concurrent updates may lose increments (best-effort counter).
	SetRetrievalCount(ctx context.Context, id string, count int) error
}
