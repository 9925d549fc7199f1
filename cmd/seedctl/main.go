// seedctl loads prompt/response pairs from a JSON file into the vector
// collection and the exchange log. It can also mint an admin token for the
// HTTP admin endpoints.
//
// Usage:
//
//	seedctl -file pairs.json
//	seedctl -mint-token ops@example.com
//
// The input file is a JSON array of {"prompt": ..., "response": ...} objects.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/smartops/recall/internal/auth"
	"github.com/smartops/recall/internal/config"
	"github.com/smartops/recall/internal/embedder"
	"github.com/smartops/recall/internal/repository"
	"github.com/smartops/recall/internal/repository/postgres"
	"github.com/smartops/recall/internal/vectorstore"
)

type seedPair struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

func main() {
	var (
		file      = flag.String("file", "", "path to a JSON file of prompt/response pairs")
		mintToken = flag.String("mint-token", "", "print an admin token for the given subject and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*file, *mintToken); err != nil {
		slog.Error("seedctl failed", "error", err)
		os.Exit(1)
	}
}

func run(file, mintSubject string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if mintSubject != "" {
		manager := auth.NewJWTManager(auth.DefaultJWTConfig(cfg.JWTSecret))
		token, err := manager.GenerateAdminToken(mintSubject)
		if err != nil {
			return fmt.Errorf("failed to mint admin token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	if file == "" {
		return fmt.Errorf("either -file or -mint-token is required")
	}

	pairs, err := loadPairs(file)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs found in %s", file)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}
	exchangeRepo := postgres.NewExchangeRepo(db)

	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	var embed embedder.Embedder
	switch cfg.EmbeddingProvider {
	case "openai":
		embed = embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIEmbeddingModel,
		})
	case "ollama":
		embed = embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		})
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	if err := store.EnsureCollection(ctx, embed.Dimension()); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	texts := make([]string, len(pairs))
	for i, p := range pairs {
		texts[i] = fmt.Sprintf("Prompt: %s Response: %s", p.Prompt, p.Response)
	}

	slog.Info("embedding pairs", "count", len(texts), "model", embed.ModelName())
	vectors, err := embed.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed pairs: %w", err)
	}

	now := time.Now()
	stored := make([]vectorstore.Pair, len(pairs))
	for i, p := range pairs {
		stored[i] = vectorstore.Pair{
			ID:             uuid.New().String(),
			Prompt:         p.Prompt,
			Response:       p.Response,
			Vector:         vectors[i],
			RetrievalCount: 0,
			CreatedAt:      float64(now.UnixMilli()) / 1000.0,
		}
	}

	if err := store.Upsert(ctx, stored); err != nil {
		return fmt.Errorf("failed to upsert pairs: %w", err)
	}

	for i, p := range pairs {
		exchange := &repository.Exchange{
			ID:        uuid.MustParse(stored[i].ID),
			Prompt:    p.Prompt,
			Response:  p.Response,
			Source:    repository.SourceSeed,
			CreatedAt: now,
		}
		if err := exchangeRepo.Create(ctx, exchange); err != nil {
			slog.Warn("failed to record seeded exchange", "prompt", p.Prompt, "error", err)
		}
	}

	slog.Info("seeded pairs", "count", len(stored), "collection", cfg.QdrantCollection)
	return nil
}

func loadPairs(path string) ([]seedPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pairs []seedPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, p := range pairs {
		if p.Prompt == "" || p.Response == "" {
			return nil, fmt.Errorf("pair %d in %s has an empty prompt or response", i, path)
		}
	}
	return pairs, nil
}
