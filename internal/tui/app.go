package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"newsdays/internal/model"
	"newsdays/internal/view"
)

type screen int

const (
	screenDays screen = iota // day list
	screenDay                // one day with its newsletters
)

// AppModel renders the view controller's state. It keeps only widget state;
// everything about Days lives in the controller and its store.
type AppModel struct {
	ctrl *view.Controller

	screen  screen
	openDay model.ID

	daysList   list.Model
	detail     viewport.Model
	spinner    spinner.Model
	shownDays  []*model.Day
	shownTheme view.Theme

	width, height int
}

func NewAppModel(ctrl *view.Controller) AppModel {
	theme := ctrl.State().Theme
	dl := list.New([]list.Item{}, themedDelegate(theme), 0, 0)
	dl.Title = "Newsletters by day"
	// Remove esc from the list's built-in Quit binding so it doesn't exit on home
	dl.KeyMap.Quit.SetKeys("q")

	return AppModel{
		ctrl:       ctrl,
		daysList:   dl,
		detail:     viewport.New(0, 0),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		shownTheme: theme,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Init(), m.spinner.Tick)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, handled := m.ctrl.Update(msg); handled {
		m.sync()
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.daysList.SetSize(msg.Width, msg.Height-4) // room for footer and notices
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 4
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.screen {
	case screenDays:
		m.daysList, cmd = m.daysList.Update(msg)
	case screenDay:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m.quit()
	}

	if m.ctrl.State().Phase == view.PhaseFailed {
		if key == "q" || key == "esc" {
			return m.quit()
		}
		return m, nil
	}

	switch m.screen {
	case screenDays:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.daysList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.daysList, cmd = m.daysList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m.quit()
		case "enter":
			if id, ok := m.selectedDay(); ok {
				m.openDay = id
				m.screen = screenDay
				m.sync()
				m.detail.GotoTop()
			}
			return m, nil
		}
		if cmd, ok := m.handleAction(key); ok {
			return m, cmd
		}
		var cmd tea.Cmd
		m.daysList, cmd = m.daysList.Update(msg)
		return m, cmd

	case screenDay:
		switch key {
		case "q":
			return m.quit()
		case "esc":
			m.screen = screenDays
			m.openDay = ""
			return m, nil
		}
		if cmd, ok := m.handleAction(key); ok {
			return m, cmd
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleAction maps the keys shared by both screens to controller actions.
func (m *AppModel) handleAction(key string) (tea.Cmd, bool) {
	switch key {
	case "t":
		m.ctrl.ToggleTheme()
		m.sync()
		return nil, true
	case "r":
		cmd := m.ctrl.RequestRefresh()
		m.sync()
		return cmd, true
	case "s":
		id, ok := m.selectedDay()
		if !ok {
			return nil, true
		}
		cmd := m.ctrl.RequestSummary(id)
		m.sync()
		return cmd, true
	case "R":
		id, ok := m.selectedDay()
		if !ok {
			return nil, true
		}
		return m.ctrl.RequestDayReload(id), true
	case "x":
		m.ctrl.DismissLatest()
		return nil, true
	}
	return nil, false
}

func (m *AppModel) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Dispose()
	return m, tea.Quit
}

func (m *AppModel) selectedDay() (model.ID, bool) {
	if m.screen == screenDay {
		return m.openDay, m.openDay != ""
	}
	selected := m.daysList.SelectedItem()
	if selected == nil {
		return "", false
	}
	return selected.(dayItem).day.ID, true
}

// sync pulls the controller state into the widgets. The list is rebuilt only when
// the snapshot holds different Day pointers or the pending markers changed.
func (m *AppModel) sync() {
	st := m.ctrl.State()

	if st.Theme != m.shownTheme {
		m.daysList.SetDelegate(themedDelegate(st.Theme))
		m.shownTheme = st.Theme
	}

	items := m.daysList.Items()
	stale := !sameDays(m.shownDays, st.Days.Days) || len(items) != st.Days.Len()
	if !stale {
		for _, it := range items {
			di := it.(dayItem)
			if di.pending != (st.Pending[di.day.ID] > 0) {
				stale = true
				break
			}
		}
	}
	if stale {
		m.daysList.SetItems(daysToItems(st.Days, st.Pending))
		m.daysList.Title = fmt.Sprintf("Newsletters by day (%d days)", st.Days.Len())
		m.shownDays = st.Days.Days
	}

	if m.screen == screenDay {
		if d, ok := st.Days.Find(m.openDay); ok {
			m.detail.SetContent(dayDetail(d, stylesFor(st.Theme)))
		} else {
			// The day went away in a reload.
			m.screen = screenDays
			m.openDay = ""
		}
	}
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	st := m.ctrl.State()
	s := stylesFor(st.Theme)

	// Error state replaces the whole view
	if st.Phase == view.PhaseFailed {
		msg := "unknown error"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return s.errorText.Render("Error: "+msg) + "\n" + s.footer.Render("q: quit")
	}

	if st.Loading {
		return m.spinner.View() + " Loading days...\n"
	}

	var b strings.Builder
	switch m.screen {
	case screenDays:
		b.WriteString(m.daysList.View())
		b.WriteString("\n")
		b.WriteString(s.footer.Render(daysFooter()))
	case screenDay:
		b.WriteString(m.detail.View())
		b.WriteString("\n")
		b.WriteString(s.footer.Render(dayFooter()))
	}

	switch {
	case st.Refreshing:
		b.WriteString("\n" + m.spinner.View() + " Fetching new newsletters...")
	case st.Reloading:
		b.WriteString("\n" + m.spinner.View() + " Reloading days...")
	}

	for _, n := range st.Notices {
		b.WriteString("\n")
		if n.Kind == view.NoticeError {
			b.WriteString(s.noticeErr.Render("! " + n.Text))
		} else {
			b.WriteString(s.noticeOK.Render(n.Text))
		}
	}

	return b.String()
}
