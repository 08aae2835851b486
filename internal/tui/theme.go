package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"newsdays/internal/view"
)

type palette struct {
	fg, muted, accent, warn, errFg, ok lipgloss.Color
}

var palettes = map[view.Theme]palette{
	view.ThemeDark: {
		fg:     lipgloss.Color("252"),
		muted:  lipgloss.Color("241"),
		accent: lipgloss.Color("39"),
		warn:   lipgloss.Color("214"),
		errFg:  lipgloss.Color("203"),
		ok:     lipgloss.Color("78"),
	},
	view.ThemeLight: {
		fg:     lipgloss.Color("235"),
		muted:  lipgloss.Color("245"),
		accent: lipgloss.Color("25"),
		warn:   lipgloss.Color("130"),
		errFg:  lipgloss.Color("160"),
		ok:     lipgloss.Color("28"),
	},
}

type styles struct {
	header    lipgloss.Style
	text      lipgloss.Style
	muted     lipgloss.Style
	footer    lipgloss.Style
	errorText lipgloss.Style
	noticeOK  lipgloss.Style
	noticeErr lipgloss.Style
	section   lipgloss.Style
	timeline  lipgloss.Style
}

func stylesFor(t view.Theme) styles {
	p, ok := palettes[t]
	if !ok {
		p = palettes[view.ThemeDark]
	}
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(p.accent).PaddingBottom(1),
		text:      lipgloss.NewStyle().Foreground(p.fg),
		muted:     lipgloss.NewStyle().Foreground(p.muted),
		footer:    lipgloss.NewStyle().Foreground(p.muted).PaddingTop(1),
		errorText: lipgloss.NewStyle().Bold(true).Foreground(p.errFg),
		noticeOK:  lipgloss.NewStyle().Foreground(p.ok),
		noticeErr: lipgloss.NewStyle().Foreground(p.warn),
		section:   lipgloss.NewStyle().Bold(true).Foreground(p.accent).PaddingTop(1),
		timeline:  lipgloss.NewStyle().Foreground(p.accent),
	}
}

func themedDelegate(t view.Theme) list.DefaultDelegate {
	p, ok := palettes[t]
	if !ok {
		p = palettes[view.ThemeDark]
	}
	d := list.NewDefaultDelegate()
	d.Styles.NormalTitle = d.Styles.NormalTitle.Foreground(p.fg)
	d.Styles.NormalDesc = d.Styles.NormalDesc.Foreground(p.muted)
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.Foreground(p.accent).BorderForeground(p.accent)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.Foreground(p.accent).BorderForeground(p.accent)
	return d
}
