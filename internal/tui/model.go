// Package tui is the terminal chat screen. It renders Session snapshots and
// forwards key presses to the Session; it holds no conversation state of its
// own.
package tui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"voicechat/internal/domain"
	"voicechat/internal/usecase"
)

// Controller is the part of *usecase.Session the screen drives.
type Controller interface {
	Snapshot() usecase.ConversationState
	Bootstrap(ctx context.Context) error
	Submit(ctx context.Context, text string) error
	ToggleSpeech()
	Clear()
}

type Options struct {
	Title string
	// Changes fires whenever the Session commits a new state.
	Changes <-chan struct{}
	// Toasts delivers notifications to display.
	Toasts <-chan domain.Notification
	// Plain disables colour and markdown styling.
	Plain  bool
	Logger *zerolog.Logger
}

type toast struct {
	id string
	domain.Notification
}

type Model struct {
	ctx     context.Context
	ctrl    Controller
	title   string
	changes <-chan struct{}
	toastCh <-chan domain.Notification
	log     zerolog.Logger

	state  usecase.ConversationState
	toasts []toast

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	plain    bool

	width    int
	height   int
	quitting bool
}

func NewModel(ctx context.Context, ctrl Controller, opts Options) (Model, error) {
	if ctrl == nil {
		return Model{}, errors.New("tui: controller must not be nil")
	}

	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Width = 76
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	plain := opts.Plain || os.Getenv("NO_COLOR") != ""
	renderer, err := newRenderer(plain, 76)
	if err != nil {
		return Model{}, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		title:    opts.Title,
		changes:  opts.Changes,
		toastCh:  opts.Toasts,
		log:      logger,
		state:    ctrl.Snapshot(),
		input:    ti,
		viewport: viewport.New(80, 18),
		spinner:  s,
		renderer: renderer,
		plain:    plain,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m, nil
}

func newRenderer(plain bool, wrap int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	if plain {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "tui: create markdown renderer")
	}
	return r, nil
}

// Init starts the session bootstrap alongside the input and listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		bootstrapCmd(m.ctx, m.ctrl),
		waitForChange(m.changes),
		waitForToast(m.toastCh),
	)
}
