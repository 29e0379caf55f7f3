package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voicechat/internal/domain"
	"voicechat/internal/usecase"
)

// ChangeSignal coalesces Session state changes into a wake-up channel. Its
// Notify is safe to use as usecase.Options.OnChange because it never blocks.
type ChangeSignal struct {
	ch chan struct{}
}

func NewChangeSignal() *ChangeSignal {
	return &ChangeSignal{ch: make(chan struct{}, 1)}
}

func (s *ChangeSignal) Notify(usecase.ConversationState) {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *ChangeSignal) C() <-chan struct{} {
	return s.ch
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func waitForToast(ch <-chan domain.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{notification: n}
	}
}

func expireToast(id string, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func bootstrapCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return bootstrapDoneMsg{err: ctrl.Bootstrap(ctx)}
	}
}

func submitCmd(ctx context.Context, ctrl Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{text: text, err: ctrl.Submit(ctx, text)}
	}
}
