package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	cal, err := Load("")
	require.NoError(t, err)
	assert.Greater(t, cal.Len(), 0)

	oct := cal.ForMonth(2025, time.October)
	require.NotEmpty(t, oct)
	for i, ev := range oct {
		assert.Contains(t, ev.Date, "2025-10-")
		if i > 0 {
			assert.LessOrEqual(t, oct[i-1].Date, ev.Date)
		}
	}
}

func TestLoad_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"events":[
		{"date":"2026-03-04","name":"Holi","type":"holiday","icon":"palette"},
		{"date":"2026-03-01","name":"Team offsite","type":"event","icon":"users"}
	]}`), 0o600))

	cal, err := Load(path)
	require.NoError(t, err)

	got := cal.ForMonth(2026, time.March)
	require.Len(t, got, 2)
	assert.Equal(t, "Team offsite", got[0].Name)
	assert.Equal(t, Holiday, got[1].Type)

	assert.Empty(t, cal.ForMonth(2026, time.April))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":     `{"events":`,
		"bad date":     `{"events":[{"date":"2026-13-01","name":"x","type":"event"}]}`,
		"bad type":     `{"events":[{"date":"2026-01-01","name":"x","type":"party"}]}`,
		"missing name": `{"events":[{"date":"2026-01-01","name":" ","type":"event"}]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestForMonth_Cached(t *testing.T) {
	cal, err := Parse([]byte(`{"events":[{"date":"2026-08-15","name":"Independence Day","type":"holiday","icon":"flag"}]}`))
	require.NoError(t, err)

	first := cal.ForMonth(2026, time.August)
	second := cal.ForMonth(2026, time.August)
	require.Len(t, first, 1)
	assert.Same(t, &first[0], &second[0])
}

func TestSeasonOf(t *testing.T) {
	want := map[time.Month]Season{
		time.January:   Winter,
		time.February:  Winter,
		time.March:     Spring,
		time.April:     Spring,
		time.May:       Summer,
		time.June:      Summer,
		time.July:      Summer,
		time.August:    Monsoon,
		time.September: Monsoon,
		time.October:   Autumn,
		time.November:  Autumn,
		time.December:  Winter,
	}
	for m, s := range want {
		assert.Equal(t, s, SeasonOf(m), m.String())
	}
}
