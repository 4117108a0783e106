package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jwhitt/kindred/internal/crypto"
)

// DB wraps a sql.DB connection to the kindred SQLite database.
// All memory content columns (fact values, summaries, transcripts) pass
// through the codec on the way in and out.
type DB struct {
	*sql.DB
	Path  string
	codec crypto.Codec
}

// DefaultDBPath returns the default database path: ~/.kindred/kindred.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".kindred", "kindred.db"), nil
}

// Open opens (or creates) the SQLite database at the given path,
// configures pragmas, and runs migrations.
func Open(path string, codec crypto.Codec) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db := &DB{DB: sqlDB, Path: path, codec: codec}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing. Content is
// stored unencrypted.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}

	db := &DB{DB: sqlDB, Path: ":memory:", codec: crypto.Passthrough{}}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA mmap_size=268435456", // 256MB
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// encrypt seals a content column for storage.
func (db *DB) encrypt(plain string) (string, error) {
	return db.codec.Encrypt(plain)
}

// decrypt opens a content column. Legacy plaintext rows come back
// unchanged; a row that fails to open keeps its token so the caller
// never sees silently corrupted content.
func (db *DB) decrypt(token string) string {
	return db.codec.Decrypt(token).Text
}

// UserIDs returns every user that has stored facts or memories.
func (db *DB) UserIDs() ([]string, error) {
	rows, err := db.Query(`
		SELECT user_id FROM facts
		UNION
		SELECT user_id FROM micro_memories
		UNION
		SELECT user_id FROM super_memories
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
