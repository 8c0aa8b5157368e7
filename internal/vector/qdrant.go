package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

const defaultQdrantPort = 6334

// QdrantProvider stores vectors in a Qdrant server over gRPC. Collections
// use cosine distance, so scores are directly comparable with chromem's.
type QdrantProvider struct {
	client *qdrant.Client
	log    logger.Interface
}

// NewQdrantProvider connects to the Qdrant server named by cfg.
func NewQdrantProvider(cfg config.VectorConfig, log logger.Interface) (*QdrantProvider, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultQdrantPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client for %s:%d: %w", host, port, err)
	}

	log.Info("connected to qdrant", "host", host, "port", port, "tls", cfg.UseTLS)
	return &QdrantProvider{client: client, log: log}, nil
}

func (p *QdrantProvider) Name() string { return "qdrant" }

// EnsureCollection creates the collection when missing. Concurrent
// creators race benignly; "already exists" from the loser is swallowed.
func (p *QdrantProvider) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection %q: %w", collection, err)
	}
	return nil
}

// Upsert writes the points in one request.
func (p *QdrantProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, pt := range points {
		payload, err := buildQdrantPayload(pt.Payload)
		if err != nil {
			return err
		}
		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(pt.ID),
			Vectors: qdrant.NewVectors(pt.Vector...),
			Payload: payload,
		})
	}

	if _, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	}); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(qpoints), err)
	}
	return nil
}

// Search queries the collection. A missing collection yields no hits
// rather than an error so callers can probe sessions that have not
// indexed anything yet.
func (p *QdrantProvider) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]Hit, error) {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil, nil
	}

	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}

	res, err := p.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(res.Result))
	for _, point := range res.Result {
		payload := decodeQdrantPayload(point.Payload)
		hits = append(hits, Hit{
			ID:      pointIDString(point.Id),
			Score:   point.Score,
			Content: payloadString(payload, "content"),
			Payload: payload,
		})
	}
	return hits, nil
}

// DeleteByDoc removes every chunk of the document by payload filter.
func (p *QdrantProvider) DeleteByDoc(ctx context.Context, collection, docID string) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "doc_id",
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: docID},
					},
				},
			},
		}},
	}

	if _, err := p.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete points for doc %s: %w", docID, err)
	}
	return nil
}

// DropCollection removes the collection if it exists.
func (p *QdrantProvider) DropCollection(ctx context.Context, collection string) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil
	}
	if err := p.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	return nil
}

// Count reports the exact point count, zero for a missing collection.
func (p *QdrantProvider) Count(ctx context.Context, collection string) (uint64, error) {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return 0, nil
	}

	exact := true
	count, err := p.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %q: %w", collection, err)
	}
	return count, nil
}

// Ping round-trips the server's health check.
func (p *QdrantProvider) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	return nil
}

func (p *QdrantProvider) Close() error {
	return p.client.Close()
}

func buildQdrantPayload(payload map[string]any) (map[string]*qdrant.Value, error) {
	out := make(map[string]*qdrant.Value, len(payload))
	for key, value := range payload {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to convert payload key %s: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

func decodeQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = v.BoolValue
		}
	}
	return out
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}

var _ Provider = (*QdrantProvider)(nil)
