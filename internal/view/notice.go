package view

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is an ephemeral, dismissable message. It never changes the Days shown.
type Notice struct {
	ID   int
	Kind NoticeKind
	Text string
}

const maxNotices = 5

func (c *Controller) notify(kind NoticeKind, text string) tea.Cmd {
	c.nextNotice++
	n := Notice{ID: c.nextNotice, Kind: kind, Text: text}
	c.notices = append(c.notices, n)
	if len(c.notices) > maxNotices {
		c.notices = c.notices[len(c.notices)-maxNotices:]
	}
	if c.noticeTTL <= 0 {
		return nil
	}
	id := n.ID
	return tea.Tick(c.noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// Dismiss removes a notice. Unknown ids are ignored.
func (c *Controller) Dismiss(id int) {
	out := c.notices[:0:0]
	for _, n := range c.notices {
		if n.ID != id {
			out = append(out, n)
		}
	}
	c.notices = out
}

// DismissLatest removes the newest notice, if any.
func (c *Controller) DismissLatest() {
	if len(c.notices) > 0 {
		c.Dismiss(c.notices[len(c.notices)-1].ID)
	}
}
