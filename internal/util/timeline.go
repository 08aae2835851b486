package util

import (
	"strings"
	"time"
)

const minutesInDay = 24 * 60

// Timeline draws a fixed-width strip of one day with a mark at each arrival time.
// Slots holding several arrivals show the count (capped at 9).
func Timeline(times []time.Time, width int) string {
	if width <= 0 {
		return ""
	}
	slots := make([]int, width)
	for _, t := range times {
		minutes := t.Hour()*60 + t.Minute()
		pos := minutes * width / minutesInDay
		if pos >= width {
			pos = width - 1
		}
		slots[pos]++
	}

	var b strings.Builder
	b.Grow(width)
	for _, n := range slots {
		switch {
		case n == 0:
			b.WriteByte('-')
		case n == 1:
			b.WriteByte('|')
		case n > 9:
			b.WriteByte('9')
		default:
			b.WriteByte(byte('0' + n))
		}
	}
	return b.String()
}
