package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"newsdays/internal/daystore"
	"newsdays/internal/model"
	"newsdays/internal/util"
)

const timelineWidth = 24

// dayItem wraps a Day for the list display.
type dayItem struct {
	day     *model.Day
	pending bool
}

func (d dayItem) FilterValue() string { return d.day.Date.String() + " " + d.day.Summary.Text() }
func (d dayItem) Title() string {
	indicator := "  "
	if d.pending {
		indicator = "~ "
	}
	return fmt.Sprintf("%s%s (%d)", indicator, longDate(d.day.Date), len(d.day.Newsletters))
}
func (d dayItem) Description() string {
	strip := util.Timeline(d.day.ArrivalTimes(), timelineWidth)
	text, ok := d.day.Summary.Get()
	switch {
	case !ok:
		return strip + "  summary not generated"
	case strings.TrimSpace(text) == "":
		return strip + "  (empty summary)"
	}
	return strip + "  " + firstLine(text)
}

func daysFooter() string {
	return "enter: open  s: summarize  R: reload day  r: refresh newsletters  t: theme  x: dismiss  q: quit  ~=summary pending"
}

func daysToItems(snap daystore.Snapshot, pending map[model.ID]int) []list.Item {
	items := make([]list.Item, len(snap.Days))
	for i, d := range snap.Days {
		items[i] = dayItem{day: d, pending: pending[d.ID] > 0}
	}
	return items
}

// sameDays reports whether two snapshots hold the same Day pointers in the same order.
// Patched or reloaded Days are new pointers, so this is enough to skip list rebuilds.
func sameDays(a, b []*model.Day) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func longDate(d model.Date) string {
	return d.Time().Format("Monday, January 2, 2006")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimLeft(s, "#-* ")
}
