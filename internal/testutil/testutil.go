// Package testutil provides shared test helpers for schema directories,
// journals and an in-memory record store.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/schemafill/internal/journal"
	"github.com/starford/schemafill/internal/storage"
)

// SampleSchema declares a small catalog used across package tests.
const SampleSchema = `datasource db {
  provider = "mongodb"
  url      = env("DATABASE_URL")
}

enum Role {
  USER
  ADMIN
}

model User {
  id        String   @id @default(auto()) @map("_id")
  email     String   @unique
  name      String?
  role      Role     @default(USER)
  isActive  Boolean  @default(true)
  tags      String[]
  createdAt DateTime @default(now())
}

model UserProfile {
  id    String @id
  bio   String @default("")
  score Int    @default(0)
}
`

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSchemaDir creates a temporary schema directory holding files (path
// relative to the directory → content) and a storage.Provider on it.
func TestSchemaDir(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, src
}

// TestOutputDir creates an empty temporary output directory provider.
func TestOutputDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	return TestSchemaDir(t, nil)
}
