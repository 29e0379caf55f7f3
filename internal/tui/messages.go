package tui

import "voicechat/internal/domain"

// stateChangedMsg means a newer Session snapshot is available.
type stateChangedMsg struct{}

type toastMsg struct {
	notification domain.Notification
}

type toastExpiredMsg struct {
	id string
}

type submitDoneMsg struct {
	text string
	err  error
}

type bootstrapDoneMsg struct {
	err error
}
