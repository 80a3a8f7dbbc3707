// Package vector retrieves precedent extracts from a Weaviate instance for
// the draft command. Retrieval is optional: an unreachable store degrades to
// drafting without precedent context.
package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// PrecedentClass is the Weaviate class holding precedent extracts.
const PrecedentClass = "Precedent"

// Precedent is one retrieved extract.
type Precedent struct {
	Title    string
	Citation string
	Extract  string
}

// Store wraps the Weaviate client.
type Store struct {
	client *weaviate.Client
}

// New connects to the Weaviate instance at scheme://host.
func New(scheme, host string) (*Store, error) {
	client, err := weaviate.NewClient(weaviate.Config{Scheme: scheme, Host: host})
	if err != nil {
		return nil, fmt.Errorf("vector: client: %w", err)
	}
	return &Store{client: client}, nil
}

// Retrieve returns up to limit precedent extracts semantically near query.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]Precedent, error) {
	if limit <= 0 {
		limit = 5
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "title"},
		{Name: "citation"},
		{Name: "extract"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(PrecedentClass).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector: retrieve: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector: retrieve: %s", result.Errors[0].Message)
	}

	return parsePrecedents(result.Data)
}

// parsePrecedents unpacks the GraphQL response shape
// {"Get": {"Precedent": [{...}, ...]}}.
func parsePrecedents(data map[string]models.JSONObject) ([]Precedent, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("vector: response missing Get block")
	}
	rows, ok := get[PrecedentClass].([]any)
	if !ok {
		return nil, nil // class empty or absent
	}
	var out []Precedent
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Precedent{
			Title:    stringField(m, "title"),
			Citation: stringField(m, "citation"),
			Extract:  stringField(m, "extract"),
		})
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// FormatForPrompt renders precedents as a block for inclusion in the draft
// prompt.
func FormatForPrompt(precedents []Precedent) string {
	if len(precedents) == 0 {
		return "(no precedent extracts available)"
	}
	var sb strings.Builder
	for i, p := range precedents {
		fmt.Fprintf(&sb, "--- Extract %d: %s %s ---\n%s\n\n", i+1, p.Title, p.Citation, p.Extract)
	}
	return strings.TrimSpace(sb.String())
}
