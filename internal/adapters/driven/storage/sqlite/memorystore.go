package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sakhedingi/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
)

// Ensure MemoryStore implements the interface.
var _ driven.MemoryStore = (*MemoryStore)(nil)

// contextDBFile is the database file holding the long-term context memory.
const contextDBFile = "contexts.db"

// cleanupAccessFloor protects frequently accessed entries from Cleanup:
// rows at or above this access count are never auto-deleted.
const cleanupAccessFloor = 5

// MemoryStore is the SQLite-backed long-term memory of answered
// exchanges. Repeat stores of the same (query, context) pair bump the
// existing row's access statistics rather than inserting a duplicate.
type MemoryStore struct {
	db   *sql.DB
	path string
}

// NewMemoryStore opens the context memory in dataDir, creating it if needed.
func NewMemoryStore(dataDir string) (*MemoryStore, error) {
	db, path, err := openDB(dataDir, contextDBFile)
	if err != nil {
		return nil, err
	}

	if err := migrate(db, migrations.FS, "contexts"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreIntegrity, err)
	}

	return &MemoryStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *MemoryStore) Path() string {
	return s.path
}

// Store inserts the entry, or bumps access statistics of the existing
// row when the (query, context) key is already present. The row id is
// returned either way.
func (s *MemoryStore) Store(ctx context.Context, entry domain.MemoryEntry) (int64, error) {
	if entry.Query == "" {
		return 0, domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshalling entry metadata: %w", err)
	}
	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshalling entry tags: %w", err)
	}

	queryHash := domain.HashText(entry.Query)
	contextHash := domain.HashText(entry.Context)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_memory
			(query_hash, query, context_hash, context, response, metadata, tags,
			 confidence_score, model_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash, context_hash) DO UPDATE SET
			access_count = access_count + 1,
			last_accessed = CURRENT_TIMESTAMP
	`, queryHash, entry.Query, contextHash, entry.Context, entry.Response,
		string(metadataJSON), string(tagsJSON), entry.ConfidenceScore, entry.ModelID)
	if err != nil {
		return 0, fmt.Errorf("storing memory entry: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM context_memory WHERE query_hash = ? AND context_hash = ?",
		queryHash, contextHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reading stored entry id: %w", err)
	}

	return id, nil
}

// RetrieveSimilar returns stored entries for the query. An exact
// query-hash match above the confidence floor wins; without one the
// most recently accessed entries are returned as a recency fallback.
func (s *MemoryStore) RetrieveSimilar(ctx context.Context, query string, limit int, minConfidence float64) ([]domain.MemoryEntry, error) {
	entries, err := s.queryEntries(ctx, `
		SELECT id, query, context, response, metadata, tags, confidence_score,
		       model_id, created_at, last_accessed, access_count
		FROM context_memory
		WHERE query_hash = ? AND confidence_score >= ?
		ORDER BY access_count DESC, confidence_score DESC
		LIMIT ?
	`, domain.HashText(query), minConfidence, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}

	return s.queryEntries(ctx, `
		SELECT id, query, context, response, metadata, tags, confidence_score,
		       model_id, created_at, last_accessed, access_count
		FROM context_memory
		WHERE confidence_score >= ?
		ORDER BY last_accessed DESC, access_count DESC
		LIMIT ?
	`, minConfidence, limit)
}

// GetByTags returns entries whose tag list contains each tag. Results
// are concatenated per tag without deduplication.
func (s *MemoryStore) GetByTags(ctx context.Context, tags []string, limit int) ([]domain.MemoryEntry, error) {
	var entries []domain.MemoryEntry
	for _, tag := range tags {
		tagEntries, err := s.queryEntries(ctx, `
			SELECT id, query, context, response, metadata, tags, confidence_score,
			       model_id, created_at, last_accessed, access_count
			FROM context_memory
			WHERE tags LIKE ?
			ORDER BY access_count DESC
			LIMIT ?
		`, "%"+tag+"%", limit)
		if err != nil {
			return nil, err
		}
		entries = append(entries, tagEntries...)
	}
	return entries, nil
}

// CreateThread creates an empty conversation thread.
func (s *MemoryStore) CreateThread(ctx context.Context, threadID, title string) error {
	if threadID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversation_threads (thread_id, title) VALUES (?, ?)",
		threadID, title)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("creating thread: %w", err)
	}
	return nil
}

// AddToThread appends a memory entry id to a thread. Appending an id
// already present is a no-op. The read-modify-write runs in one
// transaction so concurrent appends cannot drop each other.
func (s *MemoryStore) AddToThread(ctx context.Context, threadID string, contextID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning thread update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var idsJSON string
	err = tx.QueryRowContext(ctx,
		"SELECT context_ids FROM conversation_threads WHERE thread_id = ?",
		threadID).Scan(&idsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("reading thread: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return fmt.Errorf("%w: thread %s has malformed context ids: %v",
			domain.ErrStoreIntegrity, threadID, err)
	}
	for _, id := range ids {
		if id == contextID {
			return tx.Commit()
		}
	}
	ids = append(ids, contextID)

	updated, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshalling thread context ids: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversation_threads
		SET context_ids = ?, last_updated = CURRENT_TIMESTAMP
		WHERE thread_id = ?
	`, string(updated), threadID)
	if err != nil {
		return fmt.Errorf("updating thread: %w", err)
	}

	return tx.Commit()
}

// GetThread returns a thread by its external identifier.
func (s *MemoryStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	var idsJSON string
	var createdAt, lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT thread_id, title, context_ids, created_at, last_updated
		FROM conversation_threads
		WHERE thread_id = ?
	`, threadID).Scan(&thread.ThreadID, &thread.Title, &idsJSON, &createdAt, &lastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading thread: %w", err)
	}

	if err := json.Unmarshal([]byte(idsJSON), &thread.ContextIDs); err != nil {
		return nil, fmt.Errorf("%w: thread %s has malformed context ids: %v",
			domain.ErrStoreIntegrity, threadID, err)
	}
	if createdAt.Valid {
		thread.CreatedAt = createdAt.Time
	}
	if lastUpdated.Valid {
		thread.LastUpdated = lastUpdated.Time
	}

	return &thread, nil
}

// Cleanup deletes entries older than the given number of days, keeping
// any row accessed cleanupAccessFloor times or more regardless of age.
// Returns the number of rows deleted.
func (s *MemoryStore) Cleanup(ctx context.Context, days int) (int, error) {
	cutoff := formatTime(time.Now().AddDate(0, 0, -days))

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM context_memory
		WHERE created_at < ? AND access_count < ?
	`, cutoff, cleanupAccessFloor)
	if err != nil {
		return 0, fmt.Errorf("cleaning up memory entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return int(deleted), nil
}

// Stats summarises the memory store.
func (s *MemoryStore) Stats(ctx context.Context) (domain.MemoryStats, error) {
	var stats domain.MemoryStats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(confidence_score), 0), COALESCE(SUM(access_count), 0)
		FROM context_memory
	`).Scan(&stats.TotalEntries, &stats.AverageConfidence, &stats.TotalAccesses)
	if err != nil {
		return domain.MemoryStats{}, fmt.Errorf("reading memory stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversation_threads").Scan(&stats.Threads)
	if err != nil {
		return domain.MemoryStats{}, fmt.Errorf("reading thread stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM context_memory
		WHERE created_at > datetime('now', '-1 day')
	`).Scan(&stats.RecentEntries24h)
	if err != nil {
		return domain.MemoryStats{}, fmt.Errorf("reading recent entry stats: %w", err)
	}

	return stats, nil
}

// Clear removes all memory entries and threads.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM context_memory"); err != nil {
		return fmt.Errorf("clearing memory entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversation_threads"); err != nil {
		return fmt.Errorf("clearing threads: %w", err)
	}
	return nil
}

func (s *MemoryStore) queryEntries(ctx context.Context, query string, args ...any) ([]domain.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memory entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.MemoryEntry
	for rows.Next() {
		var entry domain.MemoryEntry
		var metadataJSON, tagsJSON sql.NullString
		var modelID sql.NullString
		var createdAt, lastAccessed sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.Query, &entry.Context, &entry.Response,
			&metadataJSON, &tagsJSON, &entry.ConfidenceScore, &modelID,
			&createdAt, &lastAccessed, &entry.AccessCount); err != nil {
			return nil, fmt.Errorf("scanning memory entry: %w", err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling entry metadata: %w", err)
			}
		}
		if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &entry.Tags); err != nil {
				return nil, fmt.Errorf("unmarshaling entry tags: %w", err)
			}
		}
		entry.ModelID = modelID.String
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}
		if lastAccessed.Valid {
			entry.LastAccessed = lastAccessed.Time
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory entries: %w", err)
	}

	return entries, nil
}
