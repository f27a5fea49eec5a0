package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// spyStore counts calls and delegates to a MemoryStore.
type spyStore struct {
	*MemoryStore
	calls int
	fail  error
}

func (s *spyStore) Get(ctx context.Context, path string) (Document, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	return s.MemoryStore.Get(ctx, path)
}

func (s *spyStore) MergeSet(ctx context.Context, path string, fields Document) error {
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	return s.MemoryStore.MergeSet(ctx, path, fields)
}

func (s *spyStore) QueryRange(ctx context.Context, collection, field string, from, to time.Time) ([]Document, error) {
	s.calls++
	return s.MemoryStore.QueryRange(ctx, collection, field, from, to)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	require.NoError(t, err)
	return d
}

func TestKeyFor(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2026, 3, 5, 23, 30, 0, 0, ist)

	key := KeyFor("u1", at)
	assert.Equal(t, "u1/2026-03-05", key.String())
	assert.Equal(t, "users/u1/schedules/2026-03-05", key.Path())
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, ist), key.Day)
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("u1/2026-03-05", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, KeyFor("u1", day(t, "2026-03-05")), key)

	for _, bad := range []string{"", "u1", "/2026-03-05", "u1/2026-3-5", "u1/2026-03-05/x", "u1/tomorrow"} {
		_, err := ParseKey(bad, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestSave_MergeScenario(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	key := KeyFor("u1", day(t, "2026-03-05"))

	require.NoError(t, svc.Save(ctx, key, Patch{Tasks: ptr("X"), Budget: ptr(500.0)}))
	require.NoError(t, svc.Save(ctx, key, Patch{StudyHours: ptr(3.0)}))

	got, err := svc.Load(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-05", got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.Date.Equal(day(t, "2026-03-05")))
	require.NotNil(t, got.Tasks)
	assert.Equal(t, "X", *got.Tasks)
	require.NotNil(t, got.Budget)
	assert.Equal(t, 500.0, *got.Budget)
	require.NotNil(t, got.StudyHours)
	assert.Equal(t, 3.0, *got.StudyHours)
	assert.Nil(t, got.ImportantWork)
	assert.Nil(t, got.WorkingHours)
}

func TestSave_OnlyBudgetLeavesOtherFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store)
	key := KeyFor("u1", day(t, "2026-03-06"))

	require.NoError(t, svc.Save(ctx, key, Patch{
		Tasks:         ptr("Finish report"),
		ImportantWork: ptr("Client call"),
		WorkingHours:  ptr(8.0),
		Budget:        ptr(100.0),
	}))
	require.NoError(t, svc.Save(ctx, key, Patch{Budget: ptr(250.0)}))

	doc, err := store.Get(ctx, key.Path())
	require.NoError(t, err)
	assert.Equal(t, "Finish report", doc["tasks"])
	assert.Equal(t, "Client call", doc["importantWork"])
	assert.Equal(t, 8.0, doc["workingHours"])
	assert.Equal(t, 250.0, doc["budget"])
	_, hasStudy := doc["studyHours"]
	assert.False(t, hasStudy, "omitted fields must not be written as null")
}

func TestSave_RequiresIdentity(t *testing.T) {
	spy := &spyStore{MemoryStore: NewMemoryStore()}
	svc := NewService(spy)

	err := svc.Save(context.Background(), KeyFor("", day(t, "2026-03-05")), Patch{Tasks: ptr("X")})
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, spy.calls, "store must not be touched without an identity")

	_, err = svc.Load(context.Background(), KeyFor("", day(t, "2026-03-05")))
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.ListRange(context.Background(), "", day(t, "2026-03-01"), day(t, "2026-03-31"))
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, spy.calls)
}

func TestSave_PastDatesAreEditable(t *testing.T) {
	svc := NewService(NewMemoryStore())
	key := KeyFor("u1", day(t, "2001-01-01"))
	require.NoError(t, svc.Save(context.Background(), key, Patch{Tasks: ptr("memory lane")}))
}

func TestLoad_NotFound(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.Load(context.Background(), KeyFor("u1", day(t, "2026-03-05")))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	boom := errors.New("store offline")
	svc := NewService(&spyStore{MemoryStore: NewMemoryStore(), fail: boom})
	key := KeyFor("u1", day(t, "2026-03-05"))

	err := svc.Save(context.Background(), key, Patch{})
	require.ErrorIs(t, err, boom)

	_, err = svc.Load(context.Background(), key)
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestListRange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	for _, d := range []string{"2026-03-10", "2026-02-28", "2026-03-01", "2026-03-31", "2026-04-01"} {
		require.NoError(t, svc.Save(ctx, KeyFor("u1", day(t, d)), Patch{Tasks: ptr(d)}))
	}
	require.NoError(t, svc.Save(ctx, KeyFor("u2", day(t, "2026-03-15")), Patch{Tasks: ptr("other user")}))

	from, to := MonthRange(2026, time.March, time.UTC)
	got, err := svc.ListRange(ctx, "u1", from, to)
	require.NoError(t, err)

	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"2026-03-01", "2026-03-10", "2026-03-31"}, ids)
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, time.February, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, 29, to.Day())
	assert.Equal(t, time.February, to.Month())
	assert.True(t, to.Add(time.Nanosecond).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPatchFields(t *testing.T) {
	assert.Empty(t, Patch{}.Fields())
	assert.Equal(t, Document{"studyHours": 2.5}, Patch{StudyHours: ptr(2.5)}.Fields())
}
