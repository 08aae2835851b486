package tui

import (
	"fmt"
	"strings"

	"newsdays/internal/model"
	"newsdays/internal/util"
)

// dayDetail renders one Day for the viewport: day summary first, then every newsletter.
func dayDetail(d *model.Day, s styles) string {
	var b strings.Builder
	b.WriteString(s.header.Render(longDate(d.Date)))
	b.WriteString("\n")
	b.WriteString(s.timeline.Render(util.Timeline(d.ArrivalTimes(), 48)))
	b.WriteString("\n")

	b.WriteString(s.section.Render("Day summary"))
	b.WriteString("\n")
	if text, ok := d.Summary.Get(); ok {
		b.WriteString(s.text.Render(text))
	} else {
		b.WriteString(s.muted.Render("Not generated. Press s to generate it."))
	}
	b.WriteString("\n")

	b.WriteString(s.section.Render(fmt.Sprintf("Newsletters received (%d)", len(d.Newsletters))))
	b.WriteString("\n")
	if len(d.Newsletters) == 0 {
		b.WriteString(s.muted.Render("None."))
		b.WriteString("\n")
	}
	for _, n := range d.Newsletters {
		b.WriteString(s.text.Bold(true).Render(n.Subject))
		b.WriteString("\n")
		b.WriteString(s.muted.Render(fmt.Sprintf("%s  ·  received %s", util.DisplayAuthor(n.Author), n.ReceivedAt.Format("15:04"))))
		b.WriteString("\n")
		if text, ok := n.Summary.Get(); ok && strings.TrimSpace(text) != "" {
			b.WriteString(s.text.Render(text))
		} else {
			b.WriteString(s.muted.Render("No summary available."))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func dayFooter() string {
	return "s: summarize  R: reload day  t: theme  esc: back  q: quit"
}
