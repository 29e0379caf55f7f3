package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"voicechat/internal/usecase"
)

const (
	headerHeight = 2
	footerHeight = 4
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateChangedMsg:
		m.state = m.ctrl.Snapshot()
		m.refresh()
		return m, waitForChange(m.changes)

	case toastMsg:
		t := toast{id: uuid.NewString(), Notification: msg.notification}
		m.toasts = append(m.toasts, t)
		return m, tea.Batch(waitForToast(m.toastCh), expireToast(t.id, t.Duration))

	case toastExpiredMsg:
		m.dropToast(msg.id)
		return m, nil

	case submitDoneMsg:
		m.logResult("submit", msg.err)
		if usecase.ErrorCodeOf(msg.err) == usecase.ErrorBusy && m.input.Value() == "" {
			m.input.SetValue(msg.text)
			m.input.CursorEnd()
		}
		return m, nil

	case bootstrapDoneMsg:
		m.logResult("bootstrap", msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.ctrl.Snapshot().Pending {
			return m, nil
		}
		m.input.Reset()
		return m, submitCmd(m.ctx, m.ctrl, text)

	case "ctrl+s":
		m.ctrl.ToggleSpeech()
		return m, nil

	case "ctrl+l":
		m.ctrl.Clear()
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-4, 10)
	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-footerHeight, 3)
	if r, err := newRenderer(m.plain, max(width-4, 20)); err == nil {
		m.renderer = r
	}
	m.refresh()
}

// refresh re-renders the log into the viewport, following the tail.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) dropToast(id string) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// logResult records controller failures. User-facing failures already
// arrived as toasts.
func (m Model) logResult(op string, err error) {
	if err == nil {
		return
	}
	switch usecase.ErrorCodeOf(err) {
	case usecase.ErrorCanceled, usecase.ErrorInvalidInput, usecase.ErrorBusy:
		m.log.Debug().Err(err).Str("op", op).Msg("request not completed")
	default:
		m.log.Warn().Err(err).Str("op", op).Msg("request failed")
	}
}
