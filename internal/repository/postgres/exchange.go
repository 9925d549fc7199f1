package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/smartops/recall/internal/repository"
)

// ExchangeRepo implements repository.ExchangeRepository
type ExchangeRepo struct {
	db *DB
}

// NewExchangeRepo creates a new exchange repository
func NewExchangeRepo(db *DB) *ExchangeRepo {
	return &ExchangeRepo{db: db}
}

// Create stores a new exchange
func (r *ExchangeRepo) Create(ctx context.Context, exchange *repository.Exchange) error {
	query := `
		INSERT INTO exchanges (id, prompt, response, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		exchange.ID, exchange.Prompt, exchange.Response, exchange.Source, exchange.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create exchange: %w", err)
	}
	return nil
}

// GetByID retrieves an exchange by ID
func (r *ExchangeRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Exchange, error) {
	query := `
		SELECT id, prompt, response, source, created_at
		FROM exchanges
		WHERE id = $1
	`
	var ex repository.Exchange
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&ex.ID, &ex.Prompt, &ex.Response, &ex.Source, &ex.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return &ex, nil
}

// List retrieves exchanges with pagination, newest first
func (r *ExchangeRepo) List(ctx context.Context, limit, offset int) ([]*repository.Exchange, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count exchanges: %w", err)
	}

	query := `
		SELECT id, prompt, response, source, created_at
		FROM exchanges
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*repository.Exchange
	for rows.Next() {
		var ex repository.Exchange
		if err := rows.Scan(&ex.ID, &ex.Prompt, &ex.Response, &ex.Source, &ex.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, &ex)
	}

	return exchanges, total, nil
}

// DeleteAll removes every stored exchange. Used when the vector collection
// is dropped so the two stores stay in sync.
func (r *ExchangeRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM exchanges`); err != nil {
		return fmt.Errorf("failed to delete exchanges: %w", err)
	}
	return nil
}

// Ensure ExchangeRepo implements the interface
var _ repository.ExchangeRepository = (*ExchangeRepo)(nil)
