package sqlite

import (
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqlTimeLayout matches SQLite's CURRENT_TIMESTAMP text format, so Go-side
// cutoffs compare correctly against rows stamped by the database.
const sqlTimeLayout = "2006-01-02 15:04:05"

// openDB opens (creating if necessary) a SQLite database in dataDir with
// WAL mode enabled for concurrent readers during writes.
func openDB(dataDir, filename string) (*sql.DB, string, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, "", fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, filename)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	return db, dbPath, nil
}

// migrate runs all pending migrations whose file name starts with prefix.
// Versions are tracked per prefix in a shared schema_migrations table, so
// each store file only ever sees its own schema.
func migrate(db *sql.DB, fsys embed.FS, prefix string) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			prefix TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (prefix, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE prefix = ?", prefix)
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "prompts_001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, prefix+"_"), "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := db.Exec(
			"INSERT INTO schema_migrations (prefix, version) VALUES (?, ?)", prefix, version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// formatTime formats t for comparison against CURRENT_TIMESTAMP columns.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
