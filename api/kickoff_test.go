package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKickoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("rfc3339 passes through", func(t *testing.T) {
		parsed, err := parseKickoff("2026-03-12T20:00:00Z", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC), parsed)
	})

	t.Run("natural language resolves relative to now", func(t *testing.T) {
		parsed, err := parseKickoff("tomorrow at 8pm", now)
		require.NoError(t, err)
		assert.Equal(t, 11, parsed.Day())
		assert.Equal(t, 20, parsed.Hour())
	})

	t.Run("gibberish is rejected", func(t *testing.T) {
		_, err := parseKickoff("whenever really", now)
		assert.Error(t, err)
	})
}
