package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateStore implements Store against a Weaviate instance. All
// projects share one class; isolation comes from a namespace property
// filtered on every query.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

var _ Store = (*WeaviateStore)(nil)

// NewWeaviateStore connects to the given Weaviate URL and ensures the
// chunk class exists.
func NewWeaviateStore(ctx context.Context, rawURL, class string) (*WeaviateStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", rawURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: u.Host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client: %w", err)
	}

	s := &WeaviateStore{client: client, class: class}
	if err := s.ensureClass(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "key", DataType: []string{"text"}},
			{Name: "namespace", DataType: []string{"text"}},
			{Name: "qualifiedName", DataType: []string{"text"}},
			{Name: "summary", DataType: []string{"text"}},
			{Name: "rawText", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create weaviate class %s: %w", s.class, err)
	}
	return nil
}

// Put upserts one vector. The object ID is derived deterministically
// from namespace and key so re-runs overwrite rather than duplicate.
func (s *WeaviateStore) Put(ctx context.Context, namespace, key string, vector []float32, md Metadata) error {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+key)).String()
	properties := map[string]interface{}{
		"key":           key,
		"namespace":     namespace,
		"qualifiedName": md.QualifiedName,
		"summary":       md.Summary,
		"rawText":       md.RawText,
	}

	// Delete-then-create gives upsert semantics without a merge call.
	_ = s.client.Data().Deleter().WithClassName(s.class).WithID(id).Do(ctx)

	_, err := s.client.Data().Creator().
		WithClassName(s.class).
		WithID(id).
		WithProperties(properties).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate put %s: %w", key, err)
	}
	return nil
}

// Query returns the topK nearest chunks within the namespace.
func (s *WeaviateStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	where := filters.Where().
		WithPath([]string{"namespace"}).
		WithOperator(filters.Equal).
		WithValueString(namespace)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "key"},
		{Name: "qualifiedName"},
		{Name: "summary"},
		{Name: "rawText"},
		{Name: "_additional { certainty }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query: %s", result.Errors[0].Message)
	}

	return s.parseMatches(result)
}

func (s *WeaviateStore) parseMatches(result *models.GraphQLResponse) ([]Match, error) {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[s.class].([]interface{})
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		match := Match{
			Key: str(m["key"]),
			Metadata: Metadata{
				QualifiedName: str(m["qualifiedName"]),
				Summary:       str(m["summary"]),
				RawText:       str(m["rawText"]),
			},
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				match.Score = float32(c)
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
