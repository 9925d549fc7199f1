// Package repository defines the domain model and data access interface for
// stored prompt/response exchanges.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Exchange sources
const (
	SourceChat = "chat"
	SourceSeed = "seed"
)

// Exchange is a stored prompt/response pair. Postgres is the durable system
// of record; the vector index (and its retrieval counter) lives in the
// vector store.
type Exchange struct {
	ID        uuid.UUID
	Prompt    string
	Response  string
	Source    string // "chat" or "seed"
	CreatedAt time.Time
}

// ExchangeRepository defines operations for exchange persistence
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *Exchange) error
	GetByID(ctx context.Context, id uuid.UUID) (*Exchange, error)
	List(ctx context.Context, limit, offset int) ([]*Exchange, int, error)
	DeleteAll(ctx context.Context) error
}
