package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakhedingi/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
)

// Ensure PromptCache implements the interface.
var _ driven.PromptCache = (*PromptCache)(nil)

// promptDBFile is the database file holding the exact-match cache.
const promptDBFile = "prompts.db"

// PromptCache is the SQLite-backed exact-match response cache.
// Rows are unique per (query_hash, context_hash); the constraint, not
// caller logic, resolves races between equal concurrent queries.
type PromptCache struct {
	db   *sql.DB
	path string
}

// NewPromptCache opens the prompt cache in dataDir, creating it if needed.
func NewPromptCache(dataDir string) (*PromptCache, error) {
	db, path, err := openDB(dataDir, promptDBFile)
	if err != nil {
		return nil, err
	}

	if err := migrate(db, migrations.FS, "prompts"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreIntegrity, err)
	}

	return &PromptCache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *PromptCache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *PromptCache) Path() string {
	return c.path
}

// Get looks up the cached entry for (query, context). With an empty
// context the key degrades to query-hash-only and the first row found
// wins. A hit bumps access bookkeeping before returning.
func (c *PromptCache) Get(ctx context.Context, query, contextText string) (*domain.CachedPrompt, error) {
	queryHash := domain.HashText(query)

	var row *sql.Row
	if contextText != "" {
		row = c.db.QueryRowContext(ctx, `
			SELECT query, context, context_hash, response, model_id, tokens_saved,
			       created_at, last_accessed, access_count
			FROM cached_prompts
			WHERE query_hash = ? AND context_hash = ?
		`, queryHash, domain.HashText(contextText))
	} else {
		row = c.db.QueryRowContext(ctx, `
			SELECT query, context, context_hash, response, model_id, tokens_saved,
			       created_at, last_accessed, access_count
			FROM cached_prompts
			WHERE query_hash = ?
			ORDER BY id
			LIMIT 1
		`, queryHash)
	}

	var entry domain.CachedPrompt
	var contextHash string
	var createdAt, lastAccessed sql.NullTime
	if err := row.Scan(&entry.Query, &entry.Context, &contextHash, &entry.Response,
		&entry.ModelID, &entry.TokensSaved, &createdAt, &lastAccessed, &entry.AccessCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning cached prompt: %w", err)
	}
	if createdAt.Valid {
		entry.CreatedAt = createdAt.Time
	}
	if lastAccessed.Valid {
		entry.LastAccessed = lastAccessed.Time
	}

	if _, err := c.db.ExecContext(ctx, `
		UPDATE cached_prompts
		SET last_accessed = CURRENT_TIMESTAMP, access_count = access_count + 1
		WHERE query_hash = ? AND context_hash = ?
	`, queryHash, contextHash); err != nil {
		return nil, fmt.Errorf("updating access stats: %w", err)
	}
	entry.AccessCount++

	return &entry, nil
}

// Put inserts a new entry. An existing (query, context) key makes the
// call a no-op: a cached response is never silently overwritten.
func (c *PromptCache) Put(ctx context.Context, entry domain.CachedPrompt) error {
	if entry.Query == "" {
		return domain.ErrInvalidInput
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cached_prompts
			(query_hash, query, context_hash, context, response, model_id, tokens_saved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash, context_hash) DO NOTHING
	`, domain.HashText(entry.Query), entry.Query, domain.HashText(entry.Context),
		entry.Context, entry.Response, entry.ModelID, entry.TokensSaved)

	if err != nil {
		return fmt.Errorf("caching response: %w", err)
	}
	return nil
}

// CacheChunk stores a content-addressed context fragment. Identical
// content bumps reuse_count instead of inserting a second row.
func (c *PromptCache) CacheChunk(ctx context.Context, content string, metadata map[string]any) (string, error) {
	chunkHash := domain.HashText(content)

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO context_chunks (chunk_hash, content, metadata)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_hash) DO UPDATE SET reuse_count = reuse_count + 1
	`, chunkHash, content, string(metadataJSON))

	if err != nil {
		return "", fmt.Errorf("caching context chunk: %w", err)
	}
	return chunkHash, nil
}

// TopChunks returns the most-reused context fragments, most reused first.
func (c *PromptCache) TopChunks(ctx context.Context, limit int) ([]domain.CachedChunk, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT content, metadata, reuse_count FROM context_chunks
		ORDER BY reuse_count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying context chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.CachedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.CachedChunk
		var metadataJSON sql.NullString
		if err := rows.Scan(&chunk.Content, &metadataJSON, &chunk.ReuseCount); err != nil {
			return nil, fmt.Errorf("scanning context chunk: %w", err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating context chunks: %w", err)
	}

	return chunks, nil
}

// Stats summarises the cache.
func (c *PromptCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	var stats domain.CacheStats

	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(tokens_saved), 0), COALESCE(SUM(access_count), 0)
		FROM cached_prompts
	`).Scan(&stats.CachedPrompts, &stats.TotalTokensSaved, &stats.TotalHits)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("reading prompt stats: %w", err)
	}

	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(reuse_count), 0) FROM context_chunks
	`).Scan(&stats.ContextChunks, &stats.ChunkReuses)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("reading chunk stats: %w", err)
	}

	return stats, nil
}

// Clear removes cached entries. This is the only eviction path: there is
// no automatic size- or LRU-based eviction.
func (c *PromptCache) Clear(ctx context.Context, olderThan time.Duration) error {
	if olderThan > 0 {
		cutoff := formatTime(time.Now().Add(-olderThan))
		if _, err := c.db.ExecContext(ctx,
			"DELETE FROM cached_prompts WHERE created_at < ?", cutoff); err != nil {
			return fmt.Errorf("clearing old cached prompts: %w", err)
		}
		return nil
	}

	if _, err := c.db.ExecContext(ctx, "DELETE FROM cached_prompts"); err != nil {
		return fmt.Errorf("clearing cached prompts: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM context_chunks"); err != nil {
		return fmt.Errorf("clearing context chunks: %w", err)
	}
	return nil
}
