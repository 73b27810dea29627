package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/schemafill/internal/backfill"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := db.Record(Run{
		Model:      "User",
		Collection: "users",
		Status:     backfill.StatusCompleted,
		Fields:     []string{"isActive"},
		Scanned:    10,
		Modified:   4,
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("uuid version = %d, want 7", parsed.Version())
	}

	if _, err := db.Record(Run{
		Model:      "Post",
		Status:     backfill.StatusNotFound,
		DryRun:     true,
		StartedAt:  base.Add(time.Minute),
		FinishedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].Model != "Post" || !runs[0].DryRun || runs[0].Status != backfill.StatusNotFound {
		t.Errorf("newest run = %+v", runs[0])
	}
	if len(runs[0].Fields) != 0 {
		t.Errorf("fields = %v, want empty", runs[0].Fields)
	}
	u := runs[1]
	if u.ID != id || u.Collection != "users" || u.Scanned != 10 || u.Modified != 4 {
		t.Errorf("user run = %+v", u)
	}
	if len(u.Fields) != 1 || u.Fields[0] != "isActive" {
		t.Errorf("fields = %v", u.Fields)
	}
	if !u.StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", u.StartedAt, base)
	}
}

func TestRecentLimit(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := db.Record(Run{Model: "M", Status: backfill.StatusSkipped, StartedAt: now.Add(time.Duration(i) * time.Second), FinishedAt: now})
		if err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("len = %d, want 3", len(runs))
	}
}

func TestFromResult(t *testing.T) {
	res := &backfill.Result{Model: "User", Collection: "users", Status: backfill.StatusFailed, Fields: []string{"a"}, Scanned: 2, Modified: 1}
	start := time.Now()
	r := FromResult(res, errors.New("boom"), start, start.Add(time.Second))
	if r.Error != "boom" || r.Status != backfill.StatusFailed || r.Modified != 1 {
		t.Errorf("run = %+v", r)
	}
	if r.ID != "" {
		t.Errorf("id should be assigned by Record, got %q", r.ID)
	}
}
