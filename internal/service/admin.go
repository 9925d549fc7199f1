package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smartops/recall/internal/embedder"
	"github.com/smartops/recall/internal/repository"
	"github.com/smartops/recall/internal/vectorstore"
)

// ExchangeRecord is one stored exchange in an admin listing.
type ExchangeRecord struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// ExchangePage is one page of stored exchanges.
type ExchangePage struct {
	Exchanges []ExchangeRecord `json:"exchanges"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// AdminService manages the vector collection schema and exposes the durable
// exchange log. All of it sits behind admin auth.
type AdminService struct {
	store     vectorstore.Store
	exchanges repository.ExchangeRepository
	dimension int
}

// NewAdminService creates a new AdminService. dimension is the embedding
// dimension used when creating the collection.
func NewAdminService(store vectorstore.Store, exchanges repository.ExchangeRepository, emb embedder.Embedder) *AdminService {
	return &AdminService{
		store:     store,
		exchanges: exchanges,
		dimension: emb.Dimension(),
	}
}

// CreateCollection creates the vector collection if missing.
func (s *AdminService) CreateCollection(ctx context.Context) error {
	if err := s.store.EnsureCollection(ctx, s.dimension); err != nil {
		return fmt.Errorf("%w: creating collection: %v", ErrUpstream, err)
	}
	return nil
}

// DropCollection deletes the vector collection and purges the exchange log
// so the two stores stay consistent.
func (s *AdminService) DropCollection(ctx context.Context) error {
	exists, err := s.store.CollectionExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrUpstream, err)
	}
	if !exists {
		return fmt.Errorf("%w: collection does not exist", ErrInvalidRequest)
	}
	if err := s.store.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("%w: deleting collection: %v", ErrUpstream, err)
	}
	if err := s.exchanges.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: purging exchanges: %v", ErrUpstream, err)
	}
	return nil
}

// ListExchanges returns a page of stored exchanges, newest first.
func (s *AdminService) ListExchanges(ctx context.Context, limit, offset int) (*ExchangePage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		return nil, fmt.Errorf("%w: limit must be at most 500", ErrInvalidRequest)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidRequest)
	}

	exchanges, total, err := s.exchanges.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: listing exchanges: %v", ErrUpstream, err)
	}

	records := make([]ExchangeRecord, len(exchanges))
	for i, ex := range exchanges {
		records[i] = ExchangeRecord{
			ID:        ex.ID.String(),
			Prompt:    ex.Prompt,
			Response:  ex.Response,
			Source:    ex.Source,
			CreatedAt: ex.CreatedAt,
		}
	}
	return &ExchangePage{Exchanges: records, Total: total, Limit: limit, Offset: offset}, nil
}
