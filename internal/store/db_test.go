package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwhitt/kindred/internal/crypto"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 4 {
		t.Errorf("schema version = %d, want 4", version)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserIDs(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertFact("alice", "personal", "name", "Alice", "user"); err != nil {
		t.Fatalf("UpsertFact: %v", err)
	}
	mem := &MicroMemory{ID: "m1", UserID: "bob", Summary: "talked", Importance: 5}
	if err := db.CreateMicroMemory(mem); err != nil {
		t.Fatalf("CreateMicroMemory: %v", err)
	}

	ids, err := db.UserIDs()
	if err != nil {
		t.Fatalf("UserIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("UserIDs = %v, want [alice bob]", ids)
	}
}

func TestEncryptionAtRest(t *testing.T) {
	codec, err := crypto.NewAEAD("test-key")
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	path := filepath.Join(t.TempDir(), "kindred.db")
	db, err := Open(path, codec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertFact("u1", "personal", "name", "Margaret", "user"); err != nil {
		t.Fatalf("UpsertFact: %v", err)
	}

	// The raw column must be ciphertext.
	var raw string
	if err := db.QueryRow(`SELECT value FROM facts WHERE user_id = 'u1'`).Scan(&raw); err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if !strings.HasPrefix(raw, "enc:v1:") {
		t.Errorf("stored value not encrypted: %q", raw)
	}
	if strings.Contains(raw, "Margaret") {
		t.Errorf("stored value leaks plaintext: %q", raw)
	}

	// The API must return plaintext.
	f, err := db.GetFact("u1", "personal", "name")
	if err != nil {
		t.Fatalf("GetFact: %v", err)
	}
	if f == nil || f.Value != "Margaret" {
		t.Errorf("GetFact = %+v, want value Margaret", f)
	}
}
