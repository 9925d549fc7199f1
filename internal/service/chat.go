package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smartops/recall/internal/embedder"
	"github.com/smartops/recall/internal/llm"
	"github.com/smartops/recall/internal/memory"
	"github.com/smartops/recall/internal/repository"
	"github.com/smartops/recall/internal/vectorstore"
)

// chatSystemPrompt instructs the model to answer as a DevOps assistant in
// HTML, with hyperlinks and steps where useful.
const chatSystemPrompt = `You are a DevOps helpful assistant.
Send Response as html format don't send information as ` + "```html" + `,
Please necessary hyperlinks for information, don't add much
Give Answer more descriptive, so that user can understand properly, also added steps if needed`

// historyWindow is how many prior messages are replayed into the prompt
// when a session id is supplied (5 turns).
const historyWindow = 10

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the stored prompt/response pair returned to the caller.
type ChatResponse struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// ChatService answers free-text questions with the LLM and stores each new
// exchange: the pair is embedded as one unit and upserted into the vector
// store with an initial retrieval count of 1, and recorded durably in
// postgres.
type ChatService struct {
	llmClient llm.LLM
	embedder  embedder.Embedder
	store     vectorstore.Store
	exchanges repository.ExchangeRepository
	sessions  *memory.Store
	logger    *slog.Logger
}

// ChatOption is a functional option for configuring ChatService.
type ChatOption func(*ChatService)

// WithChatLogger sets the service logger.
func WithChatLogger(logger *slog.Logger) ChatOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// WithSessions sets the session history store.
func WithSessions(sessions *memory.Store) ChatOption {
	return func(s *ChatService) {
		s.sessions = sessions
	}
}

// NewChatService creates a new ChatService.
func NewChatService(
	llmClient llm.LLM,
	emb embedder.Embedder,
	store vectorstore.Store,
	exchanges repository.ExchangeRepository,
	opts ...ChatOption,
) *ChatService {
	s := &ChatService{
		llmClient: llmClient,
		embedder:  emb,
		store:     store,
		exchanges: exchanges,
		sessions:  memory.DefaultStore(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat generates an answer, stores the new pair, and returns it.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	prompt := req.Message
	if req.SessionID != "" {
		if history := s.sessions.Recent(req.SessionID, historyWindow); len(history) > 0 {
			prompt = memory.FormatForPrompt(history) + "User: " + req.Message
		}
		s.sessions.Append(req.SessionID, memory.RoleUser, req.Message)
	}

	answer, err := s.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		SystemPrompt: chatSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generating response: %v", ErrUpstream, err)
	}

	if req.SessionID != "" {
		s.sessions.Append(req.SessionID, memory.RoleAssistant, answer)
	}

	// The pair is embedded as one unit so a future query can match on
	// either side of the exchange.
	combined := fmt.Sprintf("Prompt: %s Response: %s", req.Message, answer)
	vector, err := s.embedder.Embed(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding exchange: %v", ErrUpstream, err)
	}

	now := time.Now()
	id := uuid.New()
	err = s.store.Upsert(ctx, []vectorstore.Pair{{
		ID:             id.String(),
		Prompt:         req.Message,
		Response:       answer,
		Vector:         vector,
		RetrievalCount: 1, // counts the retrieval that produced it
		CreatedAt:      float64(now.UnixMilli()) / 1000.0,
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: storing exchange: %v", ErrUpstream, err)
	}

	// The postgres record is an audit copy; the answer is already stored
	// and indexed, so a failure here is logged rather than surfaced.
	if err := s.exchanges.Create(ctx, &repository.Exchange{
		ID:        id,
		Prompt:    req.Message,
		Response:  answer,
		Source:    repository.SourceChat,
		CreatedAt: now,
	}); err != nil {
		s.logger.Warn("failed to record exchange", "id", id, "error", err)
	}

	return &ChatResponse{Prompt: req.Message, Response: answer}, nil
}
