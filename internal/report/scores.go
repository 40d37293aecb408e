package report

import (
	"fmt"
	"strings"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
)

const maxTitle = 28

// scoreColumns maps the table's score columns to datastore.ScoreColumns
// indexes, in display order.
var scoreColumns = []struct {
	header string
	index  int
}{
	{"Grv", 2}, {"Imp", 3}, {"Eng", 0}, {"Int", 1},
	{"Tgt", 4}, {"Bld", 5}, {"Exp", 6}, {"Trn", 7},
}

// ScoreLegend explains the abbreviated score headers.
const ScoreLegend = "Grv=Groove  Imp=Improvisation  Eng=Energy  Int=Intensity\n" +
	"Tgt=Tightness  Bld=Build Quality  Exp=Exploratory  Trn=Transcendence"

// ScoreTable lays out tracks with their jam scores.
func ScoreTable(title string, tracks []datastore.TrackScore) Table {
	headers := []string{"Song", "Date", "Min", "Key"}
	numeric := []int{2}
	for i, c := range scoreColumns {
		headers = append(headers, c.header)
		numeric = append(numeric, 4+i)
	}

	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		row := []string{
			truncate(t.Title, maxTitle),
			t.Date,
			FormatMinutes(t.DurationMin),
			Optional(t.Key, func(s string) string { return s }),
		}
		for _, c := range scoreColumns {
			row = append(row, fmt.Sprintf("%.0f", t.Scores[c.index]))
		}
		rows[i] = row
	}
	return Table{Title: title, Headers: headers, Rows: rows, Numeric: numeric}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
