package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
	"voicechat/internal/usecase"
)

type fakeController struct {
	mu        sync.Mutex
	state     usecase.ConversationState
	submitted []string
	submitErr error
	toggles   int
	clears    int
	boots     int
}

func (f *fakeController) Snapshot() usecase.ConversationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) Bootstrap(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boots++
	return nil
}

func (f *fakeController) Submit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return f.submitErr
}

func (f *fakeController) ToggleSpeech() { f.toggles++ }
func (f *fakeController) Clear()        { f.clears++ }

func (f *fakeController) set(st usecase.ConversationState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
}

func newTestModel(t *testing.T, ctrl *fakeController, opts Options) Model {
	t.Helper()
	opts.Plain = true
	if opts.Title == "" {
		opts.Title = "Desktop Embed Chat"
	}
	m, err := NewModel(context.Background(), ctrl, opts)
	require.NoError(t, err)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestNewModel_RequiresController(t *testing.T) {
	_, err := NewModel(context.Background(), nil, Options{})
	require.Error(t, err)
}

func TestEnter_SubmitsAndClearsInput(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{})
	m.input.SetValue("Hello")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Equal(t, "", m.input.Value())

	msg := cmd()
	require.IsType(t, submitDoneMsg{}, msg)
	require.Equal(t, []string{"Hello"}, ctrl.submitted)
}

func TestEnter_IgnoresBlankInputAndLivePendingState(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{})
	m.input.SetValue("   ")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)

	ctrl.set(usecase.ConversationState{}.AppendUser("q").WithPending(true))
	m.input.SetValue("second")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Equal(t, "second", m.input.Value())
	require.Empty(t, ctrl.submitted)
}

func TestSubmitRejectedAsBusyRestoresInput(t *testing.T) {
	ctrl := &fakeController{submitErr: &usecase.Error{Code: usecase.ErrorBusy, Reason: "submit_pending"}}
	m := newTestModel(t, ctrl, Options{})
	m.input.SetValue("keep me")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "", m.input.Value())

	m, _ = update(t, m, cmd())
	require.Equal(t, "keep me", m.input.Value())

	m.input.SetValue("typed meanwhile")
	m, _ = update(t, m, submitDoneMsg{text: "keep me", err: ctrl.submitErr})
	require.Equal(t, "typed meanwhile", m.input.Value())
}

func TestKeys_ToggleClearQuit(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Equal(t, 1, ctrl.toggles)
	require.Equal(t, 1, ctrl.clears)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.True(t, m.quitting)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, m.View())
}

func TestStateChange_RendersSnapshot(t *testing.T) {
	changes := NewChangeSignal()
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{Changes: changes.C()})

	ctrl.set(usecase.ConversationState{}.
		Seed("Welcome aboard").
		AppendUser("Tell me about Go").
		AppendPlaceholder().
		ReplaceTail("Intro** * **Speed** * **Compiles fast").
		WithSpeaking(true))
	changes.Notify(ctrl.Snapshot())
	changes.Notify(ctrl.Snapshot())

	msg := waitForChange(changes.C())()
	require.IsType(t, stateChangedMsg{}, msg)

	m, cmd := update(t, m, msg)
	require.NotNil(t, cmd)

	view := m.View()
	require.Contains(t, view, "Desktop Embed Chat")
	require.Contains(t, view, "speaking")
	require.Contains(t, view, "Tell me about Go")
	require.Contains(t, view, "Speed")
	require.Contains(t, view, "Compiles fast")
	require.NotContains(t, view, "** * **")
}

func TestBootstrap_RunsFromInit(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{})
	require.NotNil(t, m.Init())

	msg := bootstrapCmd(context.Background(), ctrl)()
	require.Equal(t, bootstrapDoneMsg{}, msg)
	require.Equal(t, 1, ctrl.boots)
}

func TestToasts_ShowAndExpire(t *testing.T) {
	toasts := make(chan domain.Notification, 1)
	ctrl := &fakeController{}
	m := newTestModel(t, ctrl, Options{Toasts: toasts})

	toasts <- domain.Notification{Kind: domain.NotificationDanger, Title: "Error sending message", Body: "rate limited", Duration: time.Millisecond}
	msg := waitForToast(toasts)()
	m, cmd := update(t, m, msg)
	require.NotNil(t, cmd)
	require.Len(t, m.toasts, 1)
	require.Contains(t, m.View(), "Error sending message")
	require.Contains(t, m.View(), "rate limited")

	m, _ = update(t, m, toastExpiredMsg{id: m.toasts[0].id})
	require.Empty(t, m.toasts)
	require.NotContains(t, m.View(), "Error sending message")
}

func TestClosedChannelsStopListening(t *testing.T) {
	changes := make(chan struct{})
	close(changes)
	require.Nil(t, waitForChange(changes)())

	toasts := make(chan domain.Notification)
	close(toasts)
	require.Nil(t, waitForToast(toasts)())

	require.Nil(t, waitForChange(nil))
	require.Nil(t, waitForToast(nil))
}

func TestResize(t *testing.T) {
	m := newTestModel(t, &fakeController{}, Options{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, 120, m.viewport.Width)
	require.Equal(t, 40-headerHeight-footerHeight, m.viewport.Height)
}
