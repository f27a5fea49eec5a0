package database

import (
	"testing"

	"Daybook_V0.1/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDSN(t *testing.T) {
	p := Params{Host: "db", Port: "5432", Database: "daybook", Username: "app", Password: "pw", Schema: "public"}
	assert.Equal(t, "postgres://app:pw@db:5432/daybook?sslmode=disable&search_path=public", p.DSN())
}

func TestDecodeHash(t *testing.T) {
	doc, err := decodeHash(map[string]string{
		"tasks":  `"Finish report"`,
		"budget": `500`,
		"date":   `"2026-03-05T00:00:00Z"`,
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.Document{
		"tasks":  "Finish report",
		"budget": 500.0,
		"date":   "2026-03-05T00:00:00Z",
	}, doc)

	_, err = decodeHash(map[string]string{"tasks": "not json"})
	require.Error(t, err)
}

func TestUnmarshalDocument(t *testing.T) {
	doc, err := unmarshalDocument([]byte(`{"studyHours":3,"userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, schedule.Document{"studyHours": 3.0, "userId": "u1"}, doc)

	_, err = unmarshalDocument([]byte(`[`))
	require.Error(t, err)
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "doc:users/u1/schedules/2026-03-05", docKey("users/u1/schedules/2026-03-05"))
	assert.Equal(t, "idx:users/u1/schedules", indexKey("users/u1/schedules"))
}
