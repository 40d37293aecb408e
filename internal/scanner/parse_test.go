package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

func registry(t *testing.T, extra ...string) *BandRegistry {
	t.Helper()
	r, err := NewBandRegistry(extra)
	require.NoError(t, err)
	return r
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestParsePath(t *testing.T) {
	t.Parallel()
	r := registry(t)

	tests := []struct {
		path  string
		band  any
		date  any
		disc  any
		track any
		title any
	}{
		{"gd1977-05-08d1t01.shn", "Grateful Dead", "1977-05-08", 1, 1, nil},
		{"ph1997-11-22t04.flac", "Phish", "1997-11-22", nil, 4, nil},
		{"gd1972-08-27.shn", "Grateful Dead", "1972-08-27", nil, nil, nil},
		{"goose/goose2023-06-10d1t05.flac", "Goose", "2023-06-10", 1, 5, nil},
		{"sts92019-05-04t02.flac", "Sound Tribe Sector 9", "2019-05-04", nil, 2, nil},
		{"xx1999-01-01t01.flac", nil, "1999-01-01", nil, 1, nil},
		{"Grateful Dead/1977/1977-05-08 Barton Hall/d1t01 - Scarlet Begonias.mp3",
			"Grateful Dead", "1977-05-08", 1, 1, "Scarlet Begonias"},
		{"Phish/1997.11.22/Set II/04 - Tweezer.flac", "Phish", "1997-11-22", nil, 4, "Tweezer"},
		{"music/2023.12.31/03 - Midnight Jam.mp3", nil, "2023-12-31", nil, 3, "Midnight Jam"},
		{"01 - Dark Star.mp3", nil, nil, nil, 1, "Dark Star"},
		{"Random Band/2020-01-15/01 - Song.mp3", nil, "2020-01-15", nil, 1, "Song"},
		{"GRATEFUL DEAD - Archive/1990-03-29 Nassau.flac", "Grateful Dead", "1990-03-29", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			p := r.ParsePath(tt.path)
			assert.Equal(t, tt.band, deref(p.Band), "band")
			assert.Equal(t, tt.date, deref(p.Date), "date")
			assert.Equal(t, tt.disc, deref(p.Disc), "disc")
			assert.Equal(t, tt.track, deref(p.Track), "track")
			assert.Equal(t, tt.title, deref(p.Title), "title")
		})
	}
}

func TestBandRegistryExtraEntries(t *testing.T) {
	t.Parallel()
	r := registry(t, "greensky bluegrass=gsbg,gsb", "Phish=phsh")

	name, ok := r.LookupCode("GSBG")
	require.True(t, ok)
	assert.Equal(t, "Greensky Bluegrass", name, "lowercase names are title cased")

	name, ok = r.LookupCode("phsh")
	require.True(t, ok)
	assert.Equal(t, "Phish", name)
	name, _ = r.LookupCode("ph")
	assert.Equal(t, "Phish", name, "built in codes survive")

	name, ok = r.LookupName("Greensky Bluegrass 2019")
	require.True(t, ok)
	assert.Equal(t, "Greensky Bluegrass", name)
}

func TestBandRegistryLongestNameWins(t *testing.T) {
	t.Parallel()
	r := registry(t, "Goose Extended=gx")
	name, ok := r.LookupName("goose extended sessions")
	require.True(t, ok)
	assert.Equal(t, "Goose Extended", name)

	name, _ = r.LookupName("Goose")
	assert.Equal(t, "Goose", name)
}

func TestBandRegistryRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, entry := range []string{"no codes here", "=gd", " =x"} {
		_, err := NewBandRegistry([]string{entry})
		require.Error(t, err, entry)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
}
