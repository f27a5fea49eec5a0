package analysis

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StateIdle, tr.Snapshot().State)

	id := tr.Begin()
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, StateSending, tr.Snapshot().State)

	out := validOutput()
	require.True(t, tr.Finish(id, &out, nil))

	snap := tr.Snapshot()
	assert.Equal(t, StateSucceeded, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, out, *snap.Result)
	assert.Len(t, snap.Sections, 6)
	assert.Empty(t, snap.Error)
}

func TestTracker_FailureAndRetry(t *testing.T) {
	tr := NewTracker()

	first := tr.Begin()
	require.True(t, tr.Finish(first, nil, ErrUpstream))
	snap := tr.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, ErrUpstream.Error(), snap.Error)

	// Retry is a fresh submit
	second := tr.Begin()
	assert.Greater(t, second, first)
	snap = tr.Snapshot()
	assert.Equal(t, StateSending, snap.State)
	assert.Empty(t, snap.Error)
}

func TestTracker_StaleResultIsDiscarded(t *testing.T) {
	tr := NewTracker()

	older := tr.Begin()
	newer := tr.Begin()

	out := validOutput()
	require.True(t, tr.Finish(newer, &out, nil))

	assert.False(t, tr.Finish(older, nil, errors.New("late failure")))

	snap := tr.Snapshot()
	assert.Equal(t, StateSucceeded, snap.State)
	assert.Equal(t, newer, snap.RequestID)
}

func TestTracker_ConcurrentSubmits(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	ids := make(chan uint64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- tr.Begin()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate request id %d", id)
		seen[id] = true
	}
	assert.Equal(t, uint64(50), tr.Snapshot().RequestID)
}

func TestTrackers_Registry(t *testing.T) {
	reg, err := NewTrackers(2)
	require.NoError(t, err)

	a := reg.Get(TrackerKey("user:1", KindDiary, ""))
	assert.Same(t, a, reg.Get(TrackerKey("user:1", KindDiary, "default")))
	assert.NotSame(t, a, reg.Get(TrackerKey("user:1", KindExpense, "")))

	// A third form evicts the least recently used one
	reg.Get(TrackerKey("user:2", KindDiary, "side-panel"))
	_, ok := reg.Peek(TrackerKey("user:1", KindDiary, ""))
	assert.False(t, ok)

	_, err = NewTrackers(0)
	require.Error(t, err)
}
