package service

import "errors"

var (
	// ErrInvalidRequest marks client errors: empty message, bad pagination.
	// Ranking parameter validation uses ranking.ErrInvalidRequest; both map
	// to a 400 at the HTTP layer.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstream marks failures of an external collaborator (embedding
	// API, vector store, LLM). These terminate the request; feedback
	// counter failures deliberately do not.
	ErrUpstream = errors.New("upstream dependency failed")
)
