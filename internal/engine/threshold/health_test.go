package threshold

import (
	"testing"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Interpolates(t *testing.T) {
	h, err := ParseHealth("0", "10", "normal")
	require.NoError(t, err)
	require.True(t, h.Enabled())

	score, ok := h.Score(totals(2, 3, 7))
	assert.True(t, ok)
	assert.Equal(t, 50, score)
}

func TestHealth_Bounds(t *testing.T) {
	h, err := ParseHealth("2", "12", "")
	require.NoError(t, err)
	require.Equal(t, model.PriorityLow, h.MinimumPriority)

	tests := []struct {
		count int
		want  int
	}{
		{0, 100},
		{2, 100},
		{7, 50},
		{12, 0},
		{13, 0},
		{500, 0},
	}
	for _, tt := range tests {
		score, ok := h.Score(totals(0, tt.count, 0))
		assert.True(t, ok)
		assert.Equal(t, tt.want, score, "count %d", tt.count)
	}
}

func TestHealth_Disabled(t *testing.T) {
	for _, bounds := range [][2]string{{"", "10"}, {"5", ""}, {"10", "10"}, {"10", "3"}} {
		h, err := ParseHealth(bounds[0], bounds[1], "")
		require.NoError(t, err)
		assert.False(t, h.Enabled(), bounds)
		score, ok := h.Score(totals(1, 1, 1))
		assert.False(t, ok)
		assert.Equal(t, -1, score)
	}
}

func TestParseHealth_Invalid(t *testing.T) {
	_, err := ParseHealth("x", "10", "")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeThresholdConfig))

	_, err = ParseHealth("0", "-4", "")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeThresholdConfig))

	_, err = ParseHealth("0", "10", "urgent")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeThresholdConfig))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Checkstyle: no warnings found.", Describe(0))
	assert.Equal(t, "Checkstyle: 1 warning found.", Describe(1))
	assert.Equal(t, "Checkstyle: 2 warnings found.", Describe(2))
}
