package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartops/recall/internal/repository"
)

func TestAdminCreateCollection(t *testing.T) {
	store := newFakeStore()
	store.exists = false
	svc := NewAdminService(store, &fakeExchangeRepo{}, &fakeEmbedder{})

	if err := svc.CreateCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.exists {
		t.Error("collection should exist after create")
	}
	if store.ensuredDimension != 3 {
		t.Errorf("expected embedder dimension 3, got %d", store.ensuredDimension)
	}
}

func TestAdminDropCollection(t *testing.T) {
	store := newFakeStore()
	exchanges := &fakeExchangeRepo{}
	exchanges.created = append(exchanges.created, &repository.Exchange{
		ID:        uuid.New(),
		Prompt:    "p",
		Response:  "r",
		Source:    repository.SourceChat,
		CreatedAt: time.Now(),
	})
	svc := NewAdminService(store, exchanges, &fakeEmbedder{})

	if err := svc.DropCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.deletedCollection {
		t.Error("collection should have been deleted")
	}
	if len(exchanges.created) != 0 {
		t.Error("exchange log should be purged with the collection")
	}
}

func TestAdminDropMissingCollection(t *testing.T) {
	store := newFakeStore()
	store.exists = false
	svc := NewAdminService(store, &fakeExchangeRepo{}, &fakeEmbedder{})

	err := svc.DropCollection(context.Background())
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for a missing collection, got %v", err)
	}
}

func TestAdminListExchanges(t *testing.T) {
	exchanges := &fakeExchangeRepo{}
	for i := 0; i < 3; i++ {
		exchanges.created = append(exchanges.created, &repository.Exchange{
			ID:        uuid.New(),
			Prompt:    "p",
			Response:  "r",
			Source:    repository.SourceSeed,
			CreatedAt: time.Now(),
		})
	}
	svc := NewAdminService(newFakeStore(), exchanges, &fakeEmbedder{})

	page, err := svc.ListExchanges(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || len(page.Exchanges) != 3 {
		t.Errorf("expected 3 exchanges, got total=%d len=%d", page.Total, len(page.Exchanges))
	}
	if page.Limit != 50 {
		t.Errorf("expected default limit 50, got %d", page.Limit)
	}
	if page.Exchanges[0].ID == "" || page.Exchanges[0].Source != repository.SourceSeed {
		t.Errorf("unexpected record shape: %+v", page.Exchanges[0])
	}
}

func TestAdminListExchangesBounds(t *testing.T) {
	svc := NewAdminService(newFakeStore(), &fakeExchangeRepo{}, &fakeEmbedder{})

	if _, err := svc.ListExchanges(context.Background(), 501, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for limit 501, got %v", err)
	}
	if _, err := svc.ListExchanges(context.Background(), 10, -1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for negative offset, got %v", err)
	}
}
