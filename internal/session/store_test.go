package session

import (
	"testing"
	"time"

	"github.com/pugleague/rating-engine/internal/database"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(teardown)
	return New(db).(*store)
}

func testRoster() league.Roster {
	return league.Roster{
		TeamA: []string{"a1", "a2"},
		TeamB: []string{"b1", "b2"},
	}
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)

	draft, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)
	require.NotEmpty(t, draft.Token)
	assert.Equal(t, draft.CreatedAt+int64(DraftTTL.Seconds()), draft.ExpiresAt)

	got, err := s.Get(draft.Token)
	require.NoError(t, err)
	assert.Equal(t, draft.Token, got.Token)
	assert.Equal(t, testRoster(), got.Roster)
	assert.Equal(t, "creator", got.CreatedBy)
}

func TestSessionStore_GetUnknownToken(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSessionStore_ExpiredDraftIsInvisible(t *testing.T) {
	s := setupTestStore(t)

	draft, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	// Jump past the TTL.
	s.now = func() time.Time { return time.Now().Add(DraftTTL + time.Minute) }

	_, err = s.Get(draft.Token)
	require.ErrorIs(t, err, ErrDraftNotFound)

	drafts, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, drafts)

	require.ErrorIs(t, s.Cancel(draft.Token), ErrDraftNotFound)
	_, err = s.Finalize(draft.Token)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSessionStore_CreatePurgesExpired(t *testing.T) {
	s := setupTestStore(t)

	old, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(DraftTTL + time.Minute) }

	_, err = s.Create(testRoster(), "creator")
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM drafts WHERE token = ?`, old.Token).Scan(&count))
	assert.Zero(t, count, "expired draft should be purged on create")
}

func TestSessionStore_List(t *testing.T) {
	s := setupTestStore(t)

	base := time.Now()
	s.now = func() time.Time { return base }
	first, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Minute) }
	second, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	drafts, err := s.List()
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, second.Token, drafts[0].Token, "newest draft first")
	assert.Equal(t, first.Token, drafts[1].Token)
}

func TestSessionStore_Cancel(t *testing.T) {
	s := setupTestStore(t)

	draft, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	require.NoError(t, s.Cancel(draft.Token))
	_, err = s.Get(draft.Token)
	require.ErrorIs(t, err, ErrDraftNotFound)

	require.ErrorIs(t, s.Cancel(draft.Token), ErrDraftNotFound)
}

func TestSessionStore_Finalize(t *testing.T) {
	s := setupTestStore(t)

	draft, err := s.Create(testRoster(), "creator")
	require.NoError(t, err)

	got, err := s.Finalize(draft.Token)
	require.NoError(t, err)
	assert.Equal(t, draft.Token, got.Token)
	assert.Equal(t, testRoster(), got.Roster)

	// The draft is consumed.
	_, err = s.Get(draft.Token)
	require.ErrorIs(t, err, ErrDraftNotFound)
	_, err = s.Finalize(draft.Token)
	require.ErrorIs(t, err, ErrDraftNotFound)
}
