package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/parliament/types"
)

func testSession(id string, userID int64, projectID string, status types.SessionStatus, updated time.Time) *types.Session {
	return &types.Session{
		ID:        id,
		UserID:    userID,
		ChatID:    userID,
		ProjectID: projectID,
		Task:      "decide something",
		Status:    status,
		CreatedAt: updated.Add(-time.Minute),
		UpdatedAt: updated,
	}
}

// runSessionStoreSuite exercises the SessionStore contract against any
// backend.
func runSessionStoreSuite(t *testing.T, store SessionStore) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		s := testSession("sess-1", 7, "proj-a", types.StatusPending, base)
		s.Rounds = []types.RoundRecord{{
			RoundNumber: 1,
			Decision:    types.DecisionContinue,
			Reasoning:   "not there yet",
			Merged:      types.MergedScore{AvgConfidence: 61, MaxRisk: 44, AvgOutcome: 58},
			Generalist:  types.AgentResponse{AgentID: "generalist", Score: types.Score{Confidence: 60, Risk: 40, Outcome: 55}},
			Specialists: []types.AgentResponse{{AgentID: "specialist_1", Score: types.Score{Confidence: 62, Risk: 44, Outcome: 61}}},
			Timestamp:   base,
		}}
		require.NoError(t, store.Create(ctx, s))

		got, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", got.ID)
		assert.Equal(t, types.StatusPending, got.Status)
		require.Len(t, got.Rounds, 1)
		assert.Equal(t, types.DecisionContinue, got.Rounds[0].Decision)
		assert.Len(t, got.Rounds[0].Specialists, 1)
	})

	t.Run("CreateDuplicateFails", func(t *testing.T) {
		s := testSession("sess-1", 7, "proj-a", types.StatusPending, base)
		err := store.Create(ctx, s)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "no-such")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		s := testSession("sess-1", 7, "proj-a", types.StatusDeliberating, base.Add(time.Minute))
		require.NoError(t, store.Update(ctx, s))

		got, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusDeliberating, got.Status)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := store.Update(ctx, testSession("no-such", 7, "proj-a", types.StatusPending, base))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetActive", func(t *testing.T) {
		// A finished and a fresher active session for the same owner.
		require.NoError(t, store.Create(ctx, testSession("sess-done", 7, "proj-a", types.StatusConsensus, base.Add(2*time.Hour))))
		require.NoError(t, store.Create(ctx, testSession("sess-2", 7, "proj-a", types.StatusAwaitingContinuation, base.Add(time.Hour))))

		got, err := store.GetActive(ctx, 7, "proj-a")
		require.NoError(t, err)
		assert.Equal(t, "sess-2", got.ID)

		_, err = store.GetActive(ctx, 999, "proj-a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListRecent", func(t *testing.T) {
		got, err := store.ListRecent(ctx, 7, "proj-a", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Most recently updated first.
		assert.Equal(t, "sess-done", got[0].ID)
		assert.Equal(t, "sess-2", got[1].ID)
	})

	t.Run("DeleteProjectSessions", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, testSession("sess-other", 7, "proj-b", types.StatusPending, base)))

		n, err := store.DeleteProjectSessions(ctx, "proj-a")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		_, err = store.Get(ctx, "sess-1")
		assert.ErrorIs(t, err, ErrNotFound)

		// Sessions of other projects survive.
		_, err = store.Get(ctx, "sess-other")
		assert.NoError(t, err)
	})
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()
	runSessionStoreSuite(t, store)

	t.Run("ClosedStoreRejects", func(t *testing.T) {
		require.NoError(t, store.Close())
		err := store.Ping(context.Background())
		assert.ErrorIs(t, err, ErrStoreClosed)
	})
}

func TestMemorySessionStore_CloneIsolation(t *testing.T) {
	store := NewMemorySessionStore()
	defer store.Close()
	ctx := context.Background()

	s := testSession("iso-1", 1, "p", types.StatusPending, time.Now().UTC())
	require.NoError(t, store.Create(ctx, s))

	// Mutating the caller's copy must not affect the stored document.
	s.Status = types.StatusCancelled
	s.Rounds = append(s.Rounds, types.RoundRecord{RoundNumber: 1})

	got, err := store.Get(ctx, "iso-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Empty(t, got.Rounds)
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStoreWithClient(client, RedisConfig{KeyPrefix: "test:"})
	defer store.Close()

	runSessionStoreSuite(t, store)
}

func TestSQLSessionStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	store, err := NewSQLSessionStore(db)
	require.NoError(t, err)
	defer store.Close()

	runSessionStoreSuite(t, store)
}

func TestSQLSessionStore_Save(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	store, err := NewSQLSessionStore(db)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s := testSession("up-1", 3, "p", types.StatusPending, time.Now().UTC())
	require.NoError(t, store.Save(ctx, s))
	s.Status = types.StatusDeliberating
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDeliberating, got.Status)
}

func TestNewSessionStore_Factory(t *testing.T) {
	store, err := NewSessionStore(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemorySessionStore{}, store)

	_, err = NewSessionStore(Config{Backend: "carrier-pigeon"})
	require.Error(t, err)

	// Empty backend defaults to memory.
	store, err = NewSessionStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemorySessionStore{}, store)
}

func TestErrorsAreDistinct(t *testing.T) {
	for _, pair := range [][2]error{
		{ErrNotFound, ErrAlreadyExists},
		{ErrNotFound, ErrStoreClosed},
		{ErrAlreadyExists, ErrInvalidInput},
	} {
		assert.False(t, errors.Is(pair[0], pair[1]))
	}
}
