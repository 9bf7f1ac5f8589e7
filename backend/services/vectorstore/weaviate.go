package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

// WeaviateConfig holds the connection settings for a Weaviate cluster.
type WeaviateConfig struct {
	Host    string
	Scheme  string
	APIKey  string
	Class   string
	Timeout time.Duration
}

// WeaviateStore stores vectors in a Weaviate class with an external
// vectorizer (vectors are supplied by the embedding service, not Weaviate).
type WeaviateStore struct {
	client *weaviate.Client
	class  string
	logger *zap.Logger
}

// NewWeaviateStore connects to Weaviate and ensures the snippet class exists.
func NewWeaviateStore(ctx context.Context, cfg WeaviateConfig, logger *zap.Logger) (*WeaviateStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Class == "" {
		cfg.Class = "HealthSnippet"
	}

	clientConfig := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	store := &WeaviateStore{
		client: client,
		class:  cfg.Class,
		logger: logger,
	}

	if err := store.ensureClass(ctx); err != nil {
		// The store still works for queries against an existing class; log
		// and continue so a transient schema error does not block startup.
		logger.Warn("failed to ensure weaviate class", zap.String("class", cfg.Class), zap.Error(err))
	}

	return store, nil
}

// ensureClass creates the snippet class when it does not exist yet.
func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "type", DataType: []string{"text"}},
		},
	}

	return s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

// Upsert stores the vector and metadata under id.
func (s *WeaviateStore) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	properties := map[string]interface{}{
		"text":   truncateText(meta.Text),
		"source": meta.Source,
		"type":   meta.Type,
	}

	_, err := s.client.Data().Creator().
		WithClassName(s.class).
		WithID(deterministicUUID(id)).
		WithProperties(properties).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert vector %s: %w", id, err)
	}

	return nil
}

// Query runs a nearVector search and returns up to topK snippets. When the
// cluster is unreachable or the query fails, it returns an empty slice so
// analyses proceed without context.
func (s *WeaviateStore) Query(ctx context.Context, vector []float32, topK int, typeFilter string) ([]Snippet, error) {
	if topK <= 0 {
		return []Snippet{}, nil
	}

	nearVector := (&graphql.NearVectorArgumentBuilder{}).WithVector(vector)

	query := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(
			graphql.Field{Name: "text"},
			graphql.Field{Name: "source"},
			graphql.Field{Name: "type"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "id"},
				{Name: "distance"},
			}},
		)

	if typeFilter != "" {
		where := filters.Where().
			WithPath([]string{"type"}).
			WithOperator(filters.Equal).
			WithValueString(typeFilter)
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		s.logger.Warn("weaviate query failed", zap.Error(err))
		return []Snippet{}, nil
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("weaviate query returned errors", zap.String("error", result.Errors[0].Message))
		return []Snippet{}, nil
	}

	return s.parseResults(result.Data), nil
}

// parseResults walks the GraphQL Get response into snippets.
func (s *WeaviateStore) parseResults(data map[string]models.JSONObject) []Snippet {
	snippets := []Snippet{}

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return snippets
	}
	items, ok := get[s.class].([]interface{})
	if !ok {
		return snippets
	}

	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		snippet := Snippet{
			Text:   stringField(obj, "text"),
			Source: stringField(obj, "source"),
			Type:   stringField(obj, "type"),
		}

		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			snippet.ID = stringField(additional, "id")
			if distance, ok := additional["distance"].(float64); ok {
				// Weaviate reports cosine distance; similarity is its complement
				snippet.Score = float32(1.0 - distance)
			}
		}

		snippets = append(snippets, snippet)
	}

	return snippets
}

// IsAvailable checks cluster readiness.
func (s *WeaviateStore) IsAvailable(ctx context.Context) bool {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	return err == nil && ready
}

func stringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// deterministicUUID maps an arbitrary chunk identifier to a stable UUID,
// since Weaviate requires UUID object IDs. Re-ingesting the same document
// overwrites its chunks instead of duplicating them.
func deterministicUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
