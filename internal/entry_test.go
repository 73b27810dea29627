package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemafill/internal/apperr"
	"github.com/starford/schemafill/internal/backfill"
	"github.com/starford/schemafill/internal/journal"
	"github.com/starford/schemafill/internal/testutil"
)

type env struct {
	cfg   *Config
	out   *bytes.Buffer
	store *testutil.MemStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	dir, _ := testutil.TestSchemaDir(t, map[string]string{"schema.prisma": testutil.SampleSchema})
	cfg := NewDefaultConfig()
	cfg.Schema.Path = dir
	cfg.Schema.Output = filepath.Join(t.TempDir(), "out")
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	return &env{cfg: cfg, out: &bytes.Buffer{}, store: testutil.NewMemStore()}
}

func (e *env) opts(extra ...Option) []Option {
	return append([]Option{
		WithConfig(e.cfg),
		WithOutput(e.out),
		WithLogOutput(io.Discard),
		WithStore(e.store),
	}, extra...)
}

func TestRunConvert(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, RunConvert(context.Background(), e.opts()...))

	for _, name := range []string{"User.json", "UserProfile.json"} {
		_, err := os.Stat(filepath.Join(e.cfg.Schema.Output, name))
		assert.NoError(t, err, name)
	}
	assert.Contains(t, e.out.String(), "2 written, 0 unchanged")

	e.out.Reset()
	require.NoError(t, RunConvert(context.Background(), e.opts(WithModels("User"))...))
	assert.Contains(t, e.out.String(), "0 written, 1 unchanged")
}

func TestRunConvert_NoSchema(t *testing.T) {
	e := newEnv(t)
	e.cfg.Schema.Path = t.TempDir()
	err := RunConvert(context.Background(), e.opts()...)
	assert.ErrorIs(t, err, apperr.ErrNoSchema)

	e.cfg.Schema.Path = filepath.Join(t.TempDir(), "missing")
	err = RunConvert(context.Background(), e.opts()...)
	assert.ErrorIs(t, err, apperr.ErrNoSchema)
}

func TestRunBackfill_JournalsEveryModel(t *testing.T) {
	e := newEnv(t)
	e.store.Insert("users", backfill.Document{"_id": 1, "email": "a@b.com"})

	require.NoError(t, RunBackfill(context.Background(), e.opts()...))

	doc := e.store.Docs("users")[0]
	assert.Equal(t, "USER", doc["role"])
	assert.Equal(t, true, doc["isActive"])

	out := e.out.String()
	assert.Contains(t, out, "User → users [role, isActive] modified 1 of 1")
	assert.Contains(t, out, "UserProfile no matching collection")

	jr, err := journal.Open(e.cfg.Journal.Path)
	require.NoError(t, err)
	defer jr.Close()
	runs, err := jr.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	statuses := []backfill.Status{runs[0].Status, runs[1].Status}
	assert.ElementsMatch(t, []backfill.Status{backfill.StatusCompleted, backfill.StatusNotFound}, statuses)
}

func TestRunBackfill_UnknownModel(t *testing.T) {
	e := newEnv(t)
	err := RunBackfill(context.Background(), e.opts(WithModels("Ghost"))...)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, e.store.Opened())
}

func TestRunBackfill_ConnectFailureStopsRun(t *testing.T) {
	e := newEnv(t)
	e.store.ConnectErr = errors.New("auth failed")

	err := RunBackfill(context.Background(), e.opts()...)
	require.ErrorIs(t, err, e.store.ConnectErr)
	assert.Contains(t, e.out.String(), "1 models: 0 completed")
}

func TestRunBackfill_RequiresMongoURI(t *testing.T) {
	e := newEnv(t)
	err := RunBackfill(context.Background(),
		WithConfig(e.cfg), WithOutput(e.out), WithLogOutput(io.Discard))
	assert.ErrorContains(t, err, "mongo")
}

func TestRunSync(t *testing.T) {
	e := newEnv(t)
	e.store.Insert("userprofiles", backfill.Document{"_id": "p"})

	require.NoError(t, RunSync(context.Background(), e.opts()...))
	_, err := os.Stat(filepath.Join(e.cfg.Schema.Output, "UserProfile.json"))
	assert.NoError(t, err)
	assert.Equal(t, "", e.store.Docs("userprofiles")[0]["bio"])
}

func TestRunHistory(t *testing.T) {
	e := newEnv(t)
	e.store.Insert("users", backfill.Document{"_id": 1})
	require.NoError(t, RunBackfill(context.Background(), e.opts(WithModels("User"))...))

	e.out.Reset()
	require.NoError(t, RunHistory(context.Background(), e.opts(WithHistoryLimit(5))...))
	assert.Contains(t, e.out.String(), "User")
	assert.Contains(t, e.out.String(), "completed")

	e.cfg.Journal.Path = ""
	assert.Error(t, RunHistory(context.Background(), e.opts()...))
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	_, err := newApplication(nil)
	assert.Error(t, err)
}
