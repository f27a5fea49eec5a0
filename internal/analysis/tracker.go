package analysis

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// State is the lifecycle of the latest request made through one form.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Tracker is the request state machine of a single form instance:
// Idle -> Sending -> {Succeeded, Failed}. Every submit gets a fresh id from a
// monotonically increasing counter, and only the latest id may settle the
// state, so a late answer to a superseded submit is dropped.
type Tracker struct {
	mu        sync.Mutex
	latest    uint64
	state     State
	output    *Output
	err       error
	updatedAt time.Time
}

// Snapshot is a copy of a tracker's state for display.
type Snapshot struct {
	RequestID uint64    `json:"request_id"`
	State     State     `json:"state"`
	Result    *Output   `json:"result,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{state: StateIdle}
}

// Begin starts a new attempt and clears the previous result.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest++
	t.state = StateSending
	t.output = nil
	t.err = nil
	t.updatedAt = time.Now()
	return t.latest
}

// Finish settles attempt id. It returns false, leaving the state untouched,
// when a newer attempt has started since.
func (t *Tracker) Finish(id uint64, out *Output, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id != t.latest {
		return false
	}

	if err != nil {
		t.state = StateFailed
		t.err = err
		t.output = nil
	} else {
		t.state = StateSucceeded
		t.output = out
		t.err = nil
	}
	t.updatedAt = time.Now()
	return true
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{RequestID: t.latest, State: t.state, UpdatedAt: t.updatedAt}
	if t.output != nil {
		out := *t.output
		s.Result = &out
		s.Sections = Present(out)
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	return s
}

// Trackers is a bounded registry of per-form trackers. Least recently used
// forms are forgotten first.
type Trackers struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Tracker]
}

// NewTrackers creates a registry holding at most size forms.
func NewTrackers(size int) (*Trackers, error) {
	cache, err := lru.New[string, *Tracker](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker cache: %w", err)
	}
	return &Trackers{cache: cache}, nil
}

// TrackerKey identifies one form surface of one caller.
func TrackerKey(owner string, kind Kind, formID string) string {
	if formID == "" {
		formID = "default"
	}
	return owner + "|" + string(kind) + "|" + formID
}

// Get returns the tracker for key, creating it on first use.
func (r *Trackers) Get(key string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache.Get(key); ok {
		return t
	}
	t := NewTracker()
	r.cache.Add(key, t)
	return t
}

// Peek returns the tracker for key without creating or refreshing it.
func (r *Trackers) Peek(key string) (*Tracker, bool) {
	return r.cache.Peek(key)
}
