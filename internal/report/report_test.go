package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "1,234", FormatCount(1234))
	assert.Equal(t, "1,234,567", FormatCount(1234567))
}

func TestFormatScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "87.3", FormatScore(87.25))
	assert.Equal(t, "0.0", FormatScore(0))
	assert.Equal(t, "-", FormatScore(math.NaN()))
}

func TestFormatMinutes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{-1, "0:00"},
		{1.5, "1:30"},
		{23.99, "23:59"},
		{9.999, "10:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinutes(tt.in), "%v", tt.in)
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "16 GiB", FormatBytes(16<<30))
}

func TestOptional(t *testing.T) {
	t.Parallel()
	key := "E minor"
	assert.Equal(t, "E minor", Optional(&key, func(s string) string { return s }))
	assert.Equal(t, "-", Optional[float64](nil, FormatScore))
}

func TestTableRender(t *testing.T) {
	t.Parallel()
	out := Table{
		Title:   "TOP ENERGY",
		Headers: []string{"Title", "Energy"},
		Rows: [][]string{
			{"Dark Star", "91.2"},
			{"Scarlet Begonias", "88.0"},
		},
		Numeric: []int{1},
	}.Render()

	assert.Contains(t, out, "TOP ENERGY")
	for _, want := range []string{"Title", "Energy", "Dark Star", "91.2", "Scarlet Begonias"} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestEmptyTable(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Table{}.Render())
}

func TestKeyValues(t *testing.T) {
	t.Parallel()
	out := KeyValues("LIBRARY", [][2]string{{"Tracks", "1,204"}, {"Analyzed", "1,200"}})
	assert.Contains(t, out, "Tracks")
	assert.Contains(t, out, "1,200")
}
