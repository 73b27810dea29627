package backfill_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemafill/internal/backfill"
	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/parser"
	"github.com/starford/schemafill/internal/testutil"
)

const accountSchema = `
model User {
  id        String   @id
  email     String
  isActive  Boolean  @default(true)
  score     Int      @default(10)
  nickname  String   @default("anon")
  createdAt DateTime @default(now())
  token     String?  @default(uuid())
}

model UserProfile {
  id  String @id
  bio String @default("")
}

model Plain {
  id   String @id
  name String
}

model Ledger {
  id    String @id
  kind  String @default("entry")
  @@map("ledger_v2")
}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, model string) (*models.Model, *generator.ValidationSchema) {
	t.Helper()
	s := parser.Parse(accountSchema)
	m := s.Model(model)
	require.NotNil(t, m, "model %s", model)
	return m, generator.Generate(s, m)
}

func TestBackfill_UserScenario(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("users", backfill.Document{"_id": 1, "email": "a@b.com"})

	m, vs := setup(t, "User")
	eng := backfill.New(store, backfill.WithLogger(quietLogger()))

	res, err := eng.BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, backfill.StatusCompleted, res.Status)
	assert.Equal(t, "users", res.Collection)
	assert.Equal(t, []string{"isActive", "score", "nickname"}, res.Fields)
	assert.Equal(t, int64(1), res.Scanned)
	assert.Equal(t, int64(1), res.Modified)

	doc := store.Docs("users")[0]
	assert.Equal(t, true, doc["isActive"])
	assert.Equal(t, int64(10), doc["score"])
	assert.Equal(t, "anon", doc["nickname"])
	assert.NotContains(t, doc, "createdAt", "function defaults are not synthesized")
	assert.NotContains(t, doc, "token")

	assert.Equal(t, store.Opened(), store.Closed())
}

func TestBackfill_IdempotentAndKeepsFalsyValues(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("users",
		backfill.Document{"_id": 1, "email": "a@b.com"},
		backfill.Document{"_id": 2, "email": "b@b.com", "isActive": false, "score": 0, "nickname": ""},
		backfill.Document{"_id": 3, "email": "c@b.com", "isActive": nil, "score": 5},
	)

	m, vs := setup(t, "User")
	eng := backfill.New(store, backfill.WithLogger(quietLogger()))
	ctx := context.Background()

	first, err := eng.BackfillCollection(ctx, m, vs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.Scanned)
	assert.Equal(t, int64(2), first.Modified)

	second, err := eng.BackfillCollection(ctx, m, vs)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Modified)

	docs := store.Docs("users")
	assert.Equal(t, false, docs[1]["isActive"])
	assert.Equal(t, 0, docs[1]["score"])
	assert.Equal(t, "", docs[1]["nickname"])

	assert.Equal(t, true, docs[2]["isActive"], "null counts as missing")
	assert.Equal(t, 5, docs[2]["score"])
	assert.Equal(t, "anon", docs[2]["nickname"])
}

func TestBackfill_SkippedWithoutDefaults(t *testing.T) {
	store := testutil.NewMemStore()
	m, vs := setup(t, "Plain")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, backfill.StatusSkipped, res.Status)
	assert.Empty(t, res.Fields)
	assert.Zero(t, store.Opened(), "no connection is opened when there is nothing to fill")
}

func TestBackfill_CollectionNotFound(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("unrelated", backfill.Document{"_id": 1})
	m, vs := setup(t, "User")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, backfill.StatusNotFound, res.Status)
	assert.Empty(t, res.Collection)
	assert.Equal(t, 1, store.Opened())
	assert.Equal(t, 1, store.Closed())
}

func TestBackfill_ResolvesKebabPlural(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("user-profiles", backfill.Document{"_id": "p1"})
	m, vs := setup(t, "UserProfile")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, "user-profiles", res.Collection)
	assert.Equal(t, int64(1), res.Modified)
	assert.Equal(t, "", store.Docs("user-profiles")[0]["bio"])
}

func TestBackfill_OverrideWinsOverDerivedNames(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("ledgers", backfill.Document{"_id": 1})
	store.Insert("ledger_v2", backfill.Document{"_id": 1})
	m, vs := setup(t, "Ledger")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, "ledger_v2", res.Collection)
	assert.NotContains(t, store.Docs("ledgers")[0], "kind")
}

func TestBackfill_ConnectFailure(t *testing.T) {
	store := testutil.NewMemStore()
	store.ConnectErr = errors.New("auth failed")
	m, vs := setup(t, "User")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ConnectErr)
	assert.Equal(t, backfill.StatusFailed, res.Status)
}

func TestBackfill_MidStreamFailureReleasesConnection(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("users",
		backfill.Document{"_id": 1},
		backfill.Document{"_id": 2},
		backfill.Document{"_id": 3},
	)
	store.FailApplyAt = 2
	m, vs := setup(t, "User")

	res, err := backfill.New(store, backfill.WithLogger(quietLogger())).BackfillCollection(context.Background(), m, vs)
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, backfill.StatusFailed, res.Status)
	assert.Equal(t, int64(1), res.Modified, "the update applied before the failure stays applied")
	assert.Equal(t, 1, store.Closed())

	docs := store.Docs("users")
	assert.Equal(t, true, docs[0]["isActive"])
	assert.NotContains(t, docs[2], "isActive")
}

func TestBackfill_BatchedUpdates(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("users",
		backfill.Document{"_id": 1},
		backfill.Document{"_id": 2, "isActive": true, "score": 1, "nickname": "x"},
		backfill.Document{"_id": 3},
		backfill.Document{"_id": 4},
	)
	m, vs := setup(t, "User")

	eng := backfill.New(store, backfill.WithLogger(quietLogger()), backfill.WithBatchSize(2))
	res, err := eng.BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Scanned)
	assert.Equal(t, int64(3), res.Modified)
	assert.Equal(t, 2, store.Applies())
}

func TestBackfill_DryRun(t *testing.T) {
	store := testutil.NewMemStore()
	store.Insert("users", backfill.Document{"_id": 1}, backfill.Document{"_id": 2})
	m, vs := setup(t, "User")

	eng := backfill.New(store, backfill.WithLogger(quietLogger()), backfill.WithDryRun(true))
	res, err := eng.BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, int64(2), res.Modified)
	assert.Zero(t, store.Applies())
	assert.NotContains(t, store.Docs("users")[0], "isActive")
}

func TestBackfill_FillGenerated(t *testing.T) {
	store := testutil.NewMemStore()
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.Insert("users",
		backfill.Document{"_id": 1},
		backfill.Document{"_id": 2, "createdAt": "kept"},
	)
	m, vs := setup(t, "User")

	eng := backfill.New(store,
		backfill.WithLogger(quietLogger()),
		backfill.WithFillGenerated(true),
		backfill.WithClock(func() time.Time { return stamp }),
	)
	res, err := eng.BackfillCollection(context.Background(), m, vs)
	require.NoError(t, err)
	assert.Equal(t, []string{"isActive", "score", "nickname", "createdAt", "token"}, res.Fields)

	docs := store.Docs("users")
	assert.Equal(t, stamp, docs[0]["createdAt"])
	assert.Equal(t, "kept", docs[1]["createdAt"])
	token, ok := docs[0]["token"].(string)
	require.True(t, ok)
	assert.Len(t, token, 36)
	assert.NotEqual(t, docs[0]["token"], docs[1]["token"])
}
