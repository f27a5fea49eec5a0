/*
Package schedule is the daily schedule store adapter. It turns a user identity
and a calendar date into a document key and performs loads, merge writes and
date-range reads against an external document store.
*/
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the schedule id format.
const DateLayout = "2006-01-02"

// dateField is the document field range queries run on.
const dateField = "date"

var (
	ErrNotFound        = errors.New("schedule not found")
	ErrUnauthenticated = errors.New("you must be logged in to save a schedule")
	ErrInvalidKey      = errors.New("invalid schedule key")
)

// DailySchedule is the per-user, per-day record.
type DailySchedule struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Date          time.Time `json:"date"`
	Tasks         *string   `json:"tasks,omitempty"`
	Budget        *float64  `json:"budget,omitempty"`
	ImportantWork *string   `json:"importantWork,omitempty"`
	StudyHours    *float64  `json:"studyHours,omitempty"`
	WorkingHours  *float64  `json:"workingHours,omitempty"`
}

// Patch carries the editable fields of a merge write. Nil fields are left out
// of the write entirely and keep whatever value is already stored.
type Patch struct {
	Tasks         *string  `json:"tasks,omitempty"`
	Budget        *float64 `json:"budget,omitempty"`
	ImportantWork *string  `json:"importantWork,omitempty"`
	StudyHours    *float64 `json:"studyHours,omitempty"`
	WorkingHours  *float64 `json:"workingHours,omitempty"`
}

// Fields returns only the supplied fields, keyed by their document names.
func (p Patch) Fields() Document {
	fields := Document{}
	if p.Tasks != nil {
		fields["tasks"] = *p.Tasks
	}
	if p.Budget != nil {
		fields["budget"] = *p.Budget
	}
	if p.ImportantWork != nil {
		fields["importantWork"] = *p.ImportantWork
	}
	if p.StudyHours != nil {
		fields["studyHours"] = *p.StudyHours
	}
	if p.WorkingHours != nil {
		fields["workingHours"] = *p.WorkingHours
	}
	return fields
}

/* =================================================================================
									KEYS
=================================================================================*/

// Key addresses one schedule: owner plus calendar day.
type Key struct {
	UserID string
	DateID string
	Day    time.Time
}

// KeyFor builds the key for userID on the calendar day of date, in date's
// own location.
func KeyFor(userID string, date time.Time) Key {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return Key{UserID: userID, DateID: day.Format(DateLayout), Day: day}
}

// ParseKey is the inverse of Key.String. The day is interpreted in loc.
func ParseKey(s string, loc *time.Location) (Key, error) {
	userID, dateID, ok := strings.Cut(s, "/")
	if !ok || userID == "" || strings.Contains(dateID, "/") {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	day, err := time.ParseInLocation(DateLayout, dateID, loc)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrInvalidKey, s, err)
	}
	return KeyFor(userID, day), nil
}

// String renders "{userId}/{YYYY-MM-DD}".
func (k Key) String() string {
	return k.UserID + "/" + k.DateID
}

// Path is the document path: users/{userId}/schedules/{YYYY-MM-DD}.
func (k Key) Path() string {
	return CollectionPath(k.UserID) + "/" + k.DateID
}

// CollectionPath is the namespace holding every schedule of userID.
func CollectionPath(userID string) string {
	return "users/" + userID + "/schedules"
}

/* =================================================================================
									SERVICE
=================================================================================*/

// Service performs schedule reads and writes on a DocumentStore.
type Service struct {
	store DocumentStore
}

// NewService wraps store.
func NewService(store DocumentStore) *Service {
	return &Service{store: store}
}

// Load returns the stored schedule or ErrNotFound.
func (s *Service) Load(ctx context.Context, key Key) (DailySchedule, error) {
	if key.UserID == "" {
		return DailySchedule{}, ErrUnauthenticated
	}

	doc, err := s.store.Get(ctx, key.Path())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DailySchedule{}, ErrNotFound
		}
		return DailySchedule{}, fmt.Errorf("failed to load schedule %s: %w", key, err)
	}
	return decode(doc)
}

// Save merge-writes the supplied fields of patch together with the record's
// id, owner and date. The record is created on first save. A key without an
// identity fails with ErrUnauthenticated before the store is touched.
func (s *Service) Save(ctx context.Context, key Key, patch Patch) error {
	if key.UserID == "" {
		return ErrUnauthenticated
	}

	fields := patch.Fields()
	fields["id"] = key.DateID
	fields["userId"] = key.UserID
	fields[dateField] = key.Day.UTC().Format(time.RFC3339Nano)

	if err := s.store.MergeSet(ctx, key.Path(), fields); err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", key, err)
	}
	return nil
}

// ListRange returns the schedules of userID whose date lies in [from, to],
// ordered by date.
func (s *Service) ListRange(ctx context.Context, userID string, from, to time.Time) ([]DailySchedule, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	docs, err := s.store.QueryRange(ctx, CollectionPath(userID), dateField, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	out := make([]DailySchedule, 0, len(docs))
	for _, doc := range docs {
		sched, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

// MonthRange returns the first and last instant of year/month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

func decode(doc Document) (DailySchedule, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return DailySchedule{}, fmt.Errorf("failed to encode schedule document: %w", err)
	}
	var sched DailySchedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return DailySchedule{}, fmt.Errorf("failed to decode schedule document: %w", err)
	}
	return sched, nil
}
