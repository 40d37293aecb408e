package report

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCount formats a count with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatScore formats a 0-100 score with one decimal.
func FormatScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

// FormatMinutes formats a duration given in minutes as m:ss.
func FormatMinutes(minutes float64) string {
	if minutes <= 0 || math.IsNaN(minutes) {
		return "0:00"
	}
	secs := int64(math.Round(minutes * 60))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatHours formats hours with one decimal.
func FormatHours(hours float64) string {
	return fmt.Sprintf("%.1f h", hours)
}

// FormatBytes formats a byte count in IEC units.
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}

// Optional formats a nullable value, "-" when nil.
func Optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}
