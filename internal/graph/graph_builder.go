// Package graph keeps the terminology of a translation project in Neo4j:
// speaker names and glossary terms as Term nodes, linked to the scripts
// they appear in.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"

	"msg-translator/internal/corpus"
	"msg-translator/internal/glossary"
)

// Term categories.
const (
	CategorySpeaker = "speaker"
	CategoryTerm    = "term"
)

// Term is a source-to-target terminology mapping.
type Term struct {
	Original    string
	Translation string
	Category    string
}

// Connect opens a driver and verifies that the server is reachable.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	return driver, nil
}

// GraphBuilder writes terminology into the graph.
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (t:Term) REQUIRE t.original IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Script) REQUIRE s.key IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// UpsertTerms merges terms into the graph in one transaction.
func (gb *GraphBuilder) UpsertTerms(ctx context.Context, terms []Term) error {
	if len(terms) == 0 {
		return nil
	}
	rows := make([]map[string]any, len(terms))
	for i, t := range terms {
		rows[i] = map[string]any{
			"original":    t.Original,
			"translation": t.Translation,
			"category":    t.Category,
		}
	}

	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MERGE (t:Term {original: row.original})
			SET t.translation = row.translation,
			    t.category = row.category
		`, map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upsert terms: %w", err)
	}

	log.Info().Int("terms", len(terms)).Msg("Upserted terminology nodes")
	return nil
}

// LinkScripts records which scripts each speaker appears in.
func (gb *GraphBuilder) LinkScripts(ctx context.Context, scripts map[string][]string) error {
	var rows []map[string]any
	for _, speaker := range sortedKeys(scripts) {
		for _, key := range scripts[speaker] {
			rows = append(rows, map[string]any{"speaker": speaker, "script": key})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MERGE (t:Term {original: row.speaker})
			ON CREATE SET t.category = 'speaker', t.translation = ''
			MERGE (s:Script {key: row.script})
			MERGE (t)-[:APPEARS_IN]->(s)
		`, map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("link scripts: %w", err)
	}

	log.Info().Int("links", len(rows)).Msg("Linked speakers to scripts")
	return nil
}

// SpeakerTerms returns the translated speakers as terms, sorted by name.
func SpeakerTerms(speakers corpus.Speakers) []Term {
	var out []Term
	for _, name := range speakers.Keys() {
		if v := strings.TrimSpace(speakers[name]); v != "" {
			out = append(out, Term{Original: name, Translation: v, Category: CategorySpeaker})
		}
	}
	return out
}

// GlossaryTerms returns glossary entries as terms, sorted by original.
func GlossaryTerms(terms glossary.Terms) []Term {
	out := make([]Term, 0, len(terms))
	for _, k := range sortedKeys(terms) {
		out = append(out, Term{Original: k, Translation: terms[k], Category: CategoryTerm})
	}
	return out
}

// SpeakerScripts maps each speaker to the sorted file keys it speaks in.
func SpeakerScripts(texts corpus.Texts) map[string][]string {
	seen := make(map[string]map[string]bool)
	for key, items := range texts {
		for _, it := range items {
			name := it.SpeakerName()
			if name == "" {
				continue
			}
			if seen[name] == nil {
				seen[name] = make(map[string]bool)
			}
			seen[name][key] = true
		}
	}

	out := make(map[string][]string, len(seen))
	for name, keys := range seen {
		out[name] = sortedKeys(keys)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
