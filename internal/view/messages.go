package view

import "newsdays/internal/model"

// Async results of remote calls. They come back through Update on the event loop.

type daysLoadedMsg struct {
	seq  int
	days []*model.Day
	err  error
}

type refreshDoneMsg struct {
	err error
}

type summaryDoneMsg struct {
	dayID   model.ID
	epoch   uint64
	summary model.Summary
	err     error
}

type dayReloadedMsg struct {
	dayID model.ID
	epoch uint64
	day   *model.Day
	err   error
}

type noticeExpiredMsg struct {
	id int
}
