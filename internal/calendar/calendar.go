// Package calendar serves the static holiday and event reference data shown
// on the month view.
package calendar

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

//go:embed calendar-data.json
var defaultData []byte

const dateLayout = "2006-01-02"

var ErrInvalidData = errors.New("invalid calendar data")

type EventType string

const (
	Holiday EventType = "holiday"
	Event   EventType = "event"
)

type CalendarEvent struct {
	Date string    `json:"date"`
	Name string    `json:"name"`
	Type EventType `json:"type"`
	Icon string    `json:"icon"`
}

type Season string

const (
	Winter  Season = "winter"
	Spring  Season = "spring"
	Summer  Season = "summer"
	Monsoon Season = "monsoon"
	Autumn  Season = "autumn"
)

// SeasonOf maps a month to its display season.
func SeasonOf(month time.Month) Season {
	switch {
	case month >= time.March && month <= time.April:
		return Spring
	case month >= time.May && month <= time.July:
		return Summer
	case month >= time.August && month <= time.September:
		return Monsoon
	case month >= time.October && month <= time.November:
		return Autumn
	default:
		return Winter
	}
}

type monthKey struct {
	year  int
	month time.Month
}

// Calendar holds every event in date order plus a cache of per-month slices.
type Calendar struct {
	events []CalendarEvent

	mu    sync.Mutex
	cache *lru.Cache[monthKey, []CalendarEvent]
}

// Load reads path, or the embedded data set when path is empty.
func Load(path string) (*Calendar, error) {
	data := defaultData
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read calendar data: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes and validates a {"events": [...]} document.
func Parse(data []byte) (*Calendar, error) {
	var doc struct {
		Events []CalendarEvent `json:"events"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	for i, ev := range doc.Events {
		if _, err := time.Parse(dateLayout, ev.Date); err != nil {
			return nil, fmt.Errorf("%w: event %d has bad date %q", ErrInvalidData, i, ev.Date)
		}
		if ev.Type != Holiday && ev.Type != Event {
			return nil, fmt.Errorf("%w: event %d has unknown type %q", ErrInvalidData, i, ev.Type)
		}
		if strings.TrimSpace(ev.Name) == "" {
			return nil, fmt.Errorf("%w: event %d has no name", ErrInvalidData, i)
		}
	}

	// YYYY-MM-DD sorts lexically
	sort.SliceStable(doc.Events, func(i, j int) bool { return doc.Events[i].Date < doc.Events[j].Date })

	cache, err := lru.New[monthKey, []CalendarEvent](48)
	if err != nil {
		return nil, err
	}
	return &Calendar{events: doc.Events, cache: cache}, nil
}

// Len reports how many events were loaded.
func (c *Calendar) Len() int { return len(c.events) }

// ForMonth returns the events of year/month in date order. The slice is
// shared with the cache and must not be modified.
func (c *Calendar) ForMonth(year int, month time.Month) []CalendarEvent {
	key := monthKey{year: year, month: month}

	c.mu.Lock()
	defer c.mu.Unlock()

	if events, ok := c.cache.Get(key); ok {
		return events
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	events := []CalendarEvent{}
	for _, ev := range c.events {
		if strings.HasPrefix(ev.Date, prefix) {
			events = append(events, ev)
		}
	}
	c.cache.Add(key, events)
	return events
}
