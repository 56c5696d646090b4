package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/sakhedingi/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
	"github.com/sakhedingi/recall/internal/logger"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// chunkDBFile is the database file holding the vector index.
const chunkDBFile = "vectors.db"

const modelIDKey = "model_id"

// ChunkStore persists embedded chunks and the corpus fingerprint in a
// dedicated SQLite file. The chunk set is only ever replaced wholesale,
// inside a single transaction, so readers see either the old or the new
// complete index.
type ChunkStore struct {
	db   *sql.DB
	path string
}

// NewChunkStore opens the chunk store in dataDir, creating it if needed.
// A corrupt database file is discarded and recreated: losing the index
// only forces a rebuild, it must never prevent startup.
func NewChunkStore(dataDir string) (*ChunkStore, error) {
	db, path, err := openDB(dataDir, chunkDBFile)
	if err != nil {
		return nil, err
	}

	if err := migrate(db, migrations.FS, "chunks"); err != nil {
		// Unreadable index is "no cache", not a crash.
		logger.Warn("Chunk store at %s is unreadable (%v), recreating", path, err)
		db.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("%w: removing corrupt chunk store: %v", domain.ErrStoreIntegrity, rmErr)
		}
		db, path, err = openDB(dataDir, chunkDBFile)
		if err != nil {
			return nil, err
		}
		if err := migrate(db, migrations.FS, "chunks"); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreIntegrity, err)
		}
	}

	return &ChunkStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *ChunkStore) Path() string {
	return s.path
}

// Fingerprint returns the persisted corpus fingerprint. A missing or
// unreadable fingerprint is reported as the zero value, which never
// matches a freshly computed one and so forces a rebuild.
func (s *ChunkStore) Fingerprint(ctx context.Context) (domain.Fingerprint, error) {
	var fp domain.Fingerprint

	row := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", modelIDKey)
	if err := row.Scan(&fp.ModelID); err != nil {
		if err == sql.ErrNoRows {
			return domain.Fingerprint{}, nil
		}
		logger.Warn("Reading index fingerprint: %v (treating index as absent)", err)
		return domain.Fingerprint{}, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT filename, content_hash FROM index_files")
	if err != nil {
		logger.Warn("Reading index file hashes: %v (treating index as absent)", err)
		return domain.Fingerprint{}, nil
	}
	defer rows.Close()

	fp.Files = make(map[string]string)
	for rows.Next() {
		var filename, hash string
		if err := rows.Scan(&filename, &hash); err != nil {
			logger.Warn("Scanning index file hash: %v (treating index as absent)", err)
			return domain.Fingerprint{}, nil
		}
		fp.Files[filename] = hash
	}
	if err := rows.Err(); err != nil {
		logger.Warn("Iterating index file hashes: %v (treating index as absent)", err)
		return domain.Fingerprint{}, nil
	}

	return fp, nil
}

// Load returns all persisted chunks in insertion order.
func (s *ChunkStore) Load(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, content, position, embedding, created_at
		FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var createdAt sql.NullTime
		if err := rows.Scan(&chunk.ID, &chunk.Name, &chunk.Source, &chunk.Content,
			&chunk.Position, &embeddingBlob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if createdAt.Valid {
			chunk.CreatedAt = createdAt.Time
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Replace swaps the persisted chunk set and fingerprint in one transaction.
func (s *ChunkStore) Replace(ctx context.Context, chunks []domain.Chunk, fp domain.Fingerprint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"chunks", "index_files", "index_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, name, source, content, position, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Name, chunk.Source,
			chunk.Content, chunk.Position, float32SliceToBytes(chunk.Embedding), createdAt); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	for filename, hash := range fp.Files {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO index_files (filename, content_hash) VALUES (?, ?)", filename, hash); err != nil {
			return fmt.Errorf("saving file hash: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?)", modelIDKey, fp.ModelID); err != nil {
		return fmt.Errorf("saving model id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Clear removes the chunk set and fingerprint.
func (s *ChunkStore) Clear(ctx context.Context) error {
	return s.Replace(ctx, nil, domain.Fingerprint{})
}

// Count returns the number of persisted chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
