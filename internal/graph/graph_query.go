package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphQuerier reads terminology from the graph.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// AllTerms returns every translated term as a lookup map.
func (gq *GraphQuerier) AllTerms(ctx context.Context) (map[string]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, gq.driver, `
		MATCH (t:Term)
		WHERE t.translation <> ''
		RETURN t.original AS original, t.translation AS translation, t.category AS category
	`, nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("get all terms: %w", err)
	}

	terms, err := termsFromRecords(result.Records)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(terms))
	for _, t := range terms {
		out[t.Original] = t.Translation
	}

	log.Info().Int("count", len(out)).Msg("Loaded terminology from graph")
	return out, nil
}

func termsFromRecords(records []*neo4j.Record) ([]Term, error) {
	terms := make([]Term, 0, len(records))
	for _, rec := range records {
		original, _, err := neo4j.GetRecordValue[string](rec, "original")
		if err != nil {
			return nil, fmt.Errorf("read term: %w", err)
		}
		translation, _, err := neo4j.GetRecordValue[string](rec, "translation")
		if err != nil {
			return nil, fmt.Errorf("read term %s: %w", original, err)
		}
		// category may be null for nodes created outside this tool.
		category, _, _ := neo4j.GetRecordValue[string](rec, "category")
		terms = append(terms, Term{Original: original, Translation: translation, Category: category})
	}
	return terms, nil
}
