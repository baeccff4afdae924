// Package cache is a translation memory kept in memory and, when a database
// is configured, persisted in PostgreSQL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"msg-translator/internal/textutil"
	"msg-translator/internal/worker"
)

// batchSize bounds the statements queued in one pgx batch.
const batchSize = 500

const schema = `
CREATE TABLE IF NOT EXISTS translation_cache (
	hash        TEXT PRIMARY KEY,
	target_lang TEXT NOT NULL,
	source      TEXT NOT NULL,
	translated  TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO translation_cache (hash, target_lang, source, translated)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hash) DO UPDATE SET translated = EXCLUDED.translated, updated_at = now()`

// TranslationCache stores translations keyed by source text and target
// language.
type TranslationCache struct {
	pool   *pgxpool.Pool
	lang   string
	mu     sync.RWMutex
	memory map[string]string // hash → translated text
}

// NewTranslationCache creates a cache for targetLang. pool may be nil, in
// which case the cache lives in memory only.
func NewTranslationCache(pool *pgxpool.Pool, targetLang string) *TranslationCache {
	return &TranslationCache{
		pool:   pool,
		lang:   targetLang,
		memory: make(map[string]string),
	}
}

func (c *TranslationCache) key(source string) string {
	return textutil.Hash(c.lang + "\x00" + source)
}

// EnsureSchema creates the cache table if needed.
func (c *TranslationCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Get retrieves a cached translation.
func (c *TranslationCache) Get(ctx context.Context, source string) (string, bool) {
	hash := c.key(source)

	c.mu.RLock()
	v, ok := c.memory[hash]
	c.mu.RUnlock()
	if ok || c.pool == nil {
		return v, ok
	}

	var translated string
	err := c.pool.QueryRow(ctx, `SELECT translated FROM translation_cache WHERE hash = $1`, hash).Scan(&translated)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Msg("Cache lookup failed")
		}
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()
	return translated, true
}

// Set stores a translation.
func (c *TranslationCache) Set(ctx context.Context, source, translated string) error {
	hash := c.key(source)

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, upsertSQL, hash, c.lang, source, translated); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// SetBatch stores many translations using pgx batches.
func (c *TranslationCache) SetBatch(ctx context.Context, pairs map[string]string) error {
	type row struct{ hash, source, translated string }
	rows := make([]row, 0, len(pairs))

	c.mu.Lock()
	for source, translated := range pairs {
		hash := c.key(source)
		c.memory[hash] = translated
		rows = append(rows, row{hash, source, translated})
	}
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}
	for _, chunk := range worker.Batch(rows, batchSize) {
		batch := &pgx.Batch{}
		for _, r := range chunk {
			batch.Queue(upsertSQL, r.hash, c.lang, r.source, r.translated)
		}
		if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("cache set batch: %w", err)
		}
	}
	return nil
}

// Preload loads every cached translation for the target language into
// memory.
func (c *TranslationCache) Preload(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	rows, err := c.pool.Query(ctx, `SELECT hash, translated FROM translation_cache WHERE target_lang = $1`, c.lang)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	type entry struct {
		Hash       string
		Translated string
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entry])
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.memory[e.Hash] = e.Translated
	}

	log.Info().Int("count", len(entries)).Msg("Preloaded translation cache")
	return nil
}

// Len returns the number of translations held in memory.
func (c *TranslationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}
