package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// Payload field names for stored pairs
const (
	fieldPrompt         = "prompt"
	fieldResponse       = "response"
	fieldRetrievalCount = "retrieval_count"
	fieldCreatedAt      = "created_at"
)

// QdrantStore implements Store using a single Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url, collection string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection with cosine distance if it does not exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// CollectionExists checks if the collection exists
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// DeleteCollection deletes the collection
func (s *QdrantStore) DeleteCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Upsert inserts or updates pairs in the collection
func (s *QdrantStore) Upsert(ctx context.Context, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(pairs))
	for i, pair := range pairs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pair.ID),
			Vectors: qdrant.NewVectors(pair.Vector...),
			Payload: map[string]*qdrant.Value{
				fieldPrompt:         qdrant.NewValueString(pair.Prompt),
				fieldResponse:       qdrant.NewValueString(pair.Response),
				fieldRetrievalCount: qdrant.NewValueInt(int64(pair.RetrievalCount)),
				fieldCreatedAt:      qdrant.NewValueDouble(pair.CreatedAt),
			},
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Nearest performs similarity search and returns candidates closest first.
func (s *QdrantStore) Nearest(ctx context.Context, vector []float32, limit int) ([]StoredPair, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	pairs := make([]StoredPair, 0, len(response))
	for _, point := range response {
		pair := pairFromPayload(point.Payload)
		pair.ID = point.Id.GetUuid()
		// Qdrant reports cosine similarity (higher = closer); the ranking
		// contract wants a distance where lower = more similar.
		pair.Distance = 1 - float64(point.Score)
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// FindExact looks up a stored pair by exact (prompt, response) payload match.
func (s *QdrantStore) FindExact(ctx context.Context, prompt, response string) (*StoredPair, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(fieldPrompt, prompt),
				qdrant.NewMatch(fieldResponse, response),
			},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll for exact match: %w", err)
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}

	pair := pairFromPayload(points[0].Payload)
	pair.ID = points[0].Id.GetUuid()
	return &pair, nil
}

// SetRetrievalCount overwrites the retrieval counter payload of a point.
func (s *QdrantStore) SetRetrievalCount(ctx context.Context, id string, count int) error {
	_, err := s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collection,
		Payload: map[string]*qdrant.Value{
			fieldRetrievalCount: qdrant.NewValueInt(int64(count)),
		},
		PointsSelector: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(id)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set retrieval count: %w", err)
	}
	return nil
}

// pairFromPayload maps point payload fields onto a StoredPair. A missing
// retrieval_count reads as 0.
func pairFromPayload(payload map[string]*qdrant.Value) StoredPair {
	var pair StoredPair
	if payload == nil {
		return pair
	}
	if v, ok := payload[fieldPrompt]; ok {
		pair.Prompt = v.GetStringValue()
	}
	if v, ok := payload[fieldResponse]; ok {
		pair.Response = v.GetStringValue()
	}
	if v, ok := payload[fieldRetrievalCount]; ok {
		pair.RetrievalCount = int(v.GetIntegerValue())
	}
	if v, ok := payload[fieldCreatedAt]; ok {
		pair.CreatedAt = v.GetDoubleValue()
	}
	return pair
}

// Ensure QdrantStore implements Store
var _ Store = (*QdrantStore)(nil)
