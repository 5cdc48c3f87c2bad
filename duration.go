package meter

import (
	"strconv"
	"time"
)

// formatDuration renders a nanosecond duration using the largest unit that
// is at least 1: "1.234 s", "42.000 ms", never scientific notation, always
// "." as the decimal separator regardless of host locale.
func formatDuration(ns int64) string {
	if ns < 0 {
		ns = 0
	}
	switch {
	case ns >= int64(time.Second):
		return formatFixed(float64(ns)/float64(time.Second)) + " s"
	case ns >= int64(time.Millisecond):
		return formatFixed(float64(ns)/float64(time.Millisecond)) + " ms"
	case ns >= int64(time.Microsecond):
		return formatFixed(float64(ns)/float64(time.Microsecond)) + " us"
	default:
		return strconv.FormatInt(ns, 10) + " ns"
	}
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
