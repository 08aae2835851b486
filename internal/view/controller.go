// Package view is the view-state machine behind the day list. It owns no widgets:
// user actions come in as method calls, remote work goes out as tea.Cmds, and results
// come back through Update on the single event loop.
package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"newsdays/internal/daystore"
	"newsdays/internal/model"
)

// Gateway is what the controller needs from the remote service.
type Gateway interface {
	ListDays(ctx context.Context) ([]*model.Day, error)
	GetDay(ctx context.Context, id model.ID) (*model.Day, error)
	RefreshSource(ctx context.Context) error
	RegenerateDaySummary(ctx context.Context, id model.ID) (model.Summary, error)
}

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a read-only copy of everything the presentation layer may render.
type State struct {
	Phase Phase
	// Loading is true only while the first load is in flight.
	Loading bool
	// Reloading is true while a refresh-triggered reload is in flight; the previous
	// Days stay visible meanwhile.
	Reloading  bool
	Refreshing bool
	Err        error
	Theme      Theme
	Days       daystore.Snapshot
	Notices    []Notice
	// Pending counts in-flight summary requests per Day.
	Pending map[model.ID]int
}

type Options struct {
	Theme     Theme
	NoticeTTL time.Duration
	Logger    *zap.Logger
}

type Controller struct {
	gw    Gateway
	store *daystore.Store
	log   *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	disposed bool

	phase      Phase
	loadedOnce bool
	loadSeq    int
	refreshing bool
	err        error
	theme      Theme
	pending    map[model.ID]int

	notices    []Notice
	nextNotice int
	noticeTTL  time.Duration
}

// New creates the view state for one mounted view. Call Init to start the first
// load and Dispose when the view goes away.
func New(gw Gateway, store *daystore.Store, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := opts.Theme
	if theme == "" {
		theme = ThemeDark
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		gw:        gw,
		store:     store,
		log:       logger.Named("view"),
		ctx:       ctx,
		cancel:    cancel,
		phase:     PhaseLoading,
		theme:     theme,
		pending:   make(map[model.ID]int),
		noticeTTL: opts.NoticeTTL,
	}
}

// Init starts the initial load.
func (c *Controller) Init() tea.Cmd {
	return c.beginLoad()
}

// Dispose tears the view state down. In-flight requests are cancelled and any
// result that still arrives is dropped.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.cancel()
	c.log.Debug("disposed")
}

func (c *Controller) State() State {
	pending := make(map[model.ID]int, len(c.pending))
	for id, n := range c.pending {
		pending[id] = n
	}
	notices := make([]Notice, len(c.notices))
	copy(notices, c.notices)
	return State{
		Phase:      c.phase,
		Loading:    c.phase == PhaseLoading && !c.loadedOnce,
		Reloading:  c.phase == PhaseLoading && c.loadedOnce,
		Refreshing: c.refreshing,
		Err:        c.err,
		Theme:      c.theme,
		Days:       c.store.Snapshot(),
		Notices:    notices,
		Pending:    pending,
	}
}

// ToggleTheme flips between light and dark. It never touches the network.
func (c *Controller) ToggleTheme() {
	c.theme = c.theme.Toggle()
}

// RequestRefresh asks the backend to ingest new newsletters and, on success,
// reloads everything. It is ignored unless the view is Ready.
func (c *Controller) RequestRefresh() tea.Cmd {
	if c.disposed || c.phase != PhaseReady || c.refreshing {
		return nil
	}
	c.refreshing = true
	gw, ctx := c.gw, c.ctx
	return func() tea.Msg {
		return refreshDoneMsg{err: gw.RefreshSource(ctx)}
	}
}

// RequestSummary regenerates the summary of one Day and merges only that field.
// Requests for different Days are independent; for the same Day the last response wins.
func (c *Controller) RequestSummary(id model.ID) tea.Cmd {
	if c.disposed || c.phase != PhaseReady {
		return nil
	}
	c.pending[id]++
	gw, ctx, epoch := c.gw, c.ctx, c.store.Epoch()
	return func() tea.Msg {
		s, err := gw.RegenerateDaySummary(ctx, id)
		return summaryDoneMsg{dayID: id, epoch: epoch, summary: s, err: err}
	}
}

// RequestDayReload refetches one Day, newsletters included, and swaps it in place.
func (c *Controller) RequestDayReload(id model.ID) tea.Cmd {
	if c.disposed || c.phase != PhaseReady {
		return nil
	}
	gw, ctx, epoch := c.gw, c.ctx, c.store.Epoch()
	return func() tea.Msg {
		d, err := gw.GetDay(ctx, id)
		return dayReloadedMsg{dayID: id, epoch: epoch, day: d, err: err}
	}
}

// Update applies an async result. handled is false for messages the controller
// does not own, so the caller can route them elsewhere.
func (c *Controller) Update(msg tea.Msg) (cmd tea.Cmd, handled bool) {
	switch msg := msg.(type) {
	case daysLoadedMsg:
		if c.dropped("days loaded") {
			return nil, true
		}
		return c.onDaysLoaded(msg), true

	case refreshDoneMsg:
		c.refreshing = false
		if c.dropped("refresh done") {
			return nil, true
		}
		if msg.err != nil {
			c.log.Warn("refresh failed", zap.Error(msg.err))
			return c.notify(NoticeError, "Refreshing newsletters failed: "+msg.err.Error()), true
		}
		c.log.Info("refresh accepted, reloading")
		return c.beginLoad(), true

	case summaryDoneMsg:
		c.donePending(msg.dayID)
		if c.dropped("summary done") {
			return nil, true
		}
		return c.onSummaryDone(msg), true

	case dayReloadedMsg:
		if c.dropped("day reloaded") {
			return nil, true
		}
		return c.onDayReloaded(msg), true

	case noticeExpiredMsg:
		c.Dismiss(msg.id)
		return nil, true
	}
	return nil, false
}

func (c *Controller) dropped(what string) bool {
	if c.disposed {
		c.log.Debug("dropping result after dispose", zap.String("msg", what))
	}
	return c.disposed
}

func (c *Controller) beginLoad() tea.Cmd {
	c.phase = PhaseLoading
	c.loadSeq++
	seq, gw, ctx := c.loadSeq, c.gw, c.ctx
	c.log.Info("loading days", zap.Int("seq", seq), zap.Bool("reload", c.loadedOnce))
	return func() tea.Msg {
		days, err := gw.ListDays(ctx)
		return daysLoadedMsg{seq: seq, days: days, err: err}
	}
}

func (c *Controller) onDaysLoaded(msg daysLoadedMsg) tea.Cmd {
	if msg.seq != c.loadSeq {
		c.log.Debug("dropping superseded load", zap.Int("seq", msg.seq), zap.Int("current", c.loadSeq))
		return nil
	}
	err := msg.err
	if err == nil {
		_, err = c.store.ReplaceAll(msg.days)
	}
	if err != nil {
		c.phase = PhaseFailed
		c.err = err
		c.log.Error("load failed", zap.Error(err))
		return nil
	}
	c.phase = PhaseReady
	c.loadedOnce = true
	c.log.Info("days loaded", zap.Int("days", len(msg.days)), zap.Uint64("epoch", c.store.Epoch()))
	return nil
}

func (c *Controller) onSummaryDone(msg summaryDoneMsg) tea.Cmd {
	label := c.dayLabel(msg.dayID)
	if msg.err != nil {
		c.log.Warn("summary failed", zap.String("day_id", string(msg.dayID)), zap.Error(msg.err))
		return c.notify(NoticeError, fmt.Sprintf("Summary for %s failed: %v", label, msg.err))
	}
	_, err := c.store.PatchDaySummaryAt(msg.epoch, msg.dayID, msg.summary)
	switch {
	case errors.Is(err, daystore.ErrStale):
		c.log.Info("discarding summary from before reload", zap.String("day_id", string(msg.dayID)))
		return c.notify(NoticeInfo, fmt.Sprintf("Summary for %s arrived after a reload and was not applied", label))
	case errors.Is(err, daystore.ErrNotFound):
		return c.notify(NoticeError, fmt.Sprintf("Day %s is no longer listed", label))
	case err != nil:
		return c.notify(NoticeError, fmt.Sprintf("Summary for %s: %v", label, err))
	}
	return c.notify(NoticeInfo, fmt.Sprintf("Summary updated for %s", label))
}

func (c *Controller) onDayReloaded(msg dayReloadedMsg) tea.Cmd {
	label := c.dayLabel(msg.dayID)
	if msg.err != nil {
		return c.notify(NoticeError, fmt.Sprintf("Reloading %s failed: %v", label, msg.err))
	}
	if msg.epoch != c.store.Epoch() {
		c.log.Debug("discarding day reload from before full reload", zap.String("day_id", string(msg.dayID)))
		return nil
	}
	if _, err := c.store.ReplaceDay(msg.day); err != nil {
		return c.notify(NoticeError, fmt.Sprintf("Reloading %s: %v", label, err))
	}
	return c.notify(NoticeInfo, fmt.Sprintf("Reloaded %s", label))
}

func (c *Controller) donePending(id model.ID) {
	if c.pending[id] <= 1 {
		delete(c.pending, id)
		return
	}
	c.pending[id]--
}

func (c *Controller) dayLabel(id model.ID) string {
	if d, ok := c.store.Snapshot().Find(id); ok {
		return d.Date.String()
	}
	return string(id)
}
