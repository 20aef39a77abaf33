package sharedtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Score
		wantErr bool
	}{
		{name: "canonical", raw: "A2-B1", want: "A2-B1"},
		{name: "lowercase", raw: "a2-b1", want: "A2-B1"},
		{name: "surrounding spaces", raw: "  A3-B0 ", want: "A3-B0"},
		{name: "draw", raw: "A0-B0", want: "A0-B0"},
		{name: "max games", raw: "A5-B5", want: "A5-B5"},
		{name: "too many games", raw: "A6-B0", wantErr: true},
		{name: "missing side", raw: "A2", wantErr: true},
		{name: "reversed sides", raw: "B1-A2", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeScore(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreGames(t *testing.T) {
	host, guest, ok := Score("A3-B2").Games()
	require.True(t, ok)
	assert.Equal(t, 3, host)
	assert.Equal(t, 2, guest)

	_, _, ok = Score("garbage").Games()
	assert.False(t, ok)
}

func TestScoreHostWon(t *testing.T) {
	assert.True(t, Score("A2-B1").HostWon())
	assert.False(t, Score("A1-B2").HostWon())
	assert.False(t, Score("A1-B1").HostWon())
}
