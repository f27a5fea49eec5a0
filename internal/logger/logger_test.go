package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("daybook", "DEBUG").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, New("daybook", " warn ").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("daybook", "").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("daybook", "loud").GetLevel())
}
