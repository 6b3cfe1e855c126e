// Copyright 2025 The Legal-MCP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrantIDNamespace derives deterministic point UUIDs from record IDs.
// Qdrant accepts only UUID or integer point IDs, so the logical record ID
// travels in the payload instead.
var qdrantIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

const qdrantRecordIDKey = "_record_id"

// QdrantConfig configures the Qdrant vector provider.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`

	// Port is the Qdrant gRPC port (default: 6334).
	Port int `yaml:"port"`

	// APIKey for authenticated access (optional).
	APIKey string `yaml:"api_key,omitempty"`

	// UseTLS enables TLS connections.
	UseTLS bool `yaml:"use_tls,omitempty"`

	// Dimension of the stored vectors.
	Dimension int `yaml:"dimension"`
}

// QdrantProvider implements Provider using the Qdrant vector database.
type QdrantProvider struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantProvider creates a new Qdrant provider.
func NewQdrantProvider(cfg QdrantConfig) (*QdrantProvider, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimension < 1 {
		cfg.Dimension = 768
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Qdrant client for %s:%d: %v",
			ErrUnavailable, cfg.Host, cfg.Port, err)
	}

	return &QdrantProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name returns the provider name.
func (p *QdrantProvider) Name() string {
	return "qdrant"
}

// Upsert persists records with pre-computed embeddings, idempotent by ID.
func (p *QdrantProvider) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := p.ensureCollection(ctx, collection); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		payload := make(map[string]*qdrant.Value, len(rec.Metadata)+2)
		for key, value := range rec.Metadata {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return fmt.Errorf("failed to convert metadata value for key %s: %w", key, err)
			}
			payload[key] = val
		}
		payload[qdrantRecordIDKey] = qdrant.NewValueString(rec.ID)
		payload["content"] = qdrant.NewValueString(rec.Content)

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewSHA1(qdrantIDNamespace, []byte(rec.ID)).String()),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: payload,
		})
	}

	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search combines vector similarity with metadata filtering.
func (p *QdrantProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter Expr) ([]Result, error) {
	searchRequest := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter != nil {
		searchRequest.Filter = buildQdrantFilter(filter)
	}

	pointsClient := p.client.GetPointsClient()
	searchResult, err := pointsClient.Search(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search points: %v", ErrUnavailable, err)
	}

	out := convertQdrantResults(searchResult.Result)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes all documents matching the filter.
func (p *QdrantProvider) Delete(ctx context.Context, collection string, filter Expr) error {
	deletePoints := &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: buildQdrantFilter(filter),
			},
		},
	}

	_, err := p.client.Delete(ctx, deletePoints)
	if err != nil {
		return fmt.Errorf("failed to delete by filter: %w", err)
	}
	return nil
}

// Count reports how many points match the filter.
func (p *QdrantProvider) Count(ctx context.Context, collection string, filter Expr) (int, error) {
	req := &qdrant.CountPoints{
		CollectionName: collection,
	}
	if filter != nil {
		req.Filter = buildQdrantFilter(filter)
	}

	count, err := p.client.Count(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "doesn't exist") || strings.Contains(err.Error(), "Not found") {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to count points: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// ensureCollection creates the collection on first use.
func (p *QdrantProvider) ensureCollection(ctx context.Context, collection string) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection existence: %v", ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(p.config.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Close closes the Qdrant client.
func (p *QdrantProvider) Close() error {
	return p.client.Close()
}

// buildQdrantFilter serialises the filter expression to Qdrant's native
// shape. Every predicate lands in the Must clause, so both the bare
// predicate and the conjunction serialise as explicit AND.
func buildQdrantFilter(filter Expr) *qdrant.Filter {
	if filter == nil {
		return nil
	}

	preds := filter.Predicates()
	conditions := make([]*qdrant.Condition, 0, len(preds))
	for _, pred := range preds {
		conditions = append(conditions, qdrantCondition(pred))
	}
	return &qdrant.Filter{
		Must: conditions,
	}
}

// qdrantCondition builds a match condition typed the same way Upsert
// wrote the payload value, so numeric and boolean predicates keep
// matching stored points.
func qdrantCondition(pred Predicate) *qdrant.Condition {
	switch v := pred.Value.(type) {
	case string:
		return qdrant.NewMatch(pred.Field, v)
	case bool:
		return qdrant.NewMatchBool(pred.Field, v)
	case int:
		return qdrant.NewMatchInt(pred.Field, int64(v))
	case int32:
		return qdrant.NewMatchInt(pred.Field, int64(v))
	case int64:
		return qdrant.NewMatchInt(pred.Field, v)
	default:
		return qdrant.NewMatch(pred.Field, fmt.Sprint(v))
	}
}

// convertQdrantResults converts Qdrant results to our Result type. The
// logical record ID is restored from the payload.
func convertQdrantResults(points []*qdrant.ScoredPoint) []Result {
	results := make([]Result, 0, len(points))

	for _, point := range points {
		metadata := make(map[string]any)
		for key, value := range point.Payload {
			switch v := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				metadata[key] = v.StringValue
			case *qdrant.Value_IntegerValue:
				metadata[key] = v.IntegerValue
			case *qdrant.Value_DoubleValue:
				metadata[key] = v.DoubleValue
			case *qdrant.Value_BoolValue:
				metadata[key] = v.BoolValue
			default:
				metadata[key] = value
			}
		}

		id := ""
		if v, ok := metadata[qdrantRecordIDKey].(string); ok {
			id = v
			delete(metadata, qdrantRecordIDKey)
		}
		content := ""
		if v, ok := metadata["content"].(string); ok {
			content = v
			delete(metadata, "content")
		}

		results = append(results, Result{
			ID:       id,
			Content:  content,
			Metadata: metadata,
			Score:    point.Score,
		})
	}

	return results
}

// Ensure QdrantProvider implements Provider.
var _ Provider = (*QdrantProvider)(nil)
