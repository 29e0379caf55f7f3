package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"voicechat/internal/config"
	"voicechat/internal/domain"
	"voicechat/internal/logging"
	"voicechat/internal/notify"
	"voicechat/internal/tui"
	"voicechat/internal/usecase"
)

func runTUI(ctx context.Context, cfg *config.Config, plain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogFile()
	}
	logFile, err := logging.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Output: logFile})

	toasts := notify.NewQueue(16)
	toasts.OnDrop(func(n domain.Notification) {
		log.Debug().Str("title", n.Title).Msg("toast dropped")
	})
	changes := tui.NewChangeSignal()

	a, err := buildApp(ctx, cfg, notify.Multi{toasts, notify.NewLog(log)}, changes.Notify, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model, err := tui.NewModel(ctx, a.session, tui.Options{
		Title:   cfg.AppTitle,
		Changes: changes.C(),
		Toasts:  toasts.C(),
		Plain:   plain,
		Logger:  &log,
	})
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run terminal UI")
	}
	return nil
}

// replyPrinter streams the revealed tail of the log to w.
type replyPrinter struct {
	w       io.Writer
	printed int
}

func (p *replyPrinter) onChange(st usecase.ConversationState) {
	last, ok := st.Last()
	if !ok || last.IsUser {
		return
	}
	text := strings.TrimLeftFunc(last.Text, unicode.IsSpace)
	if len(text) <= p.printed {
		return
	}
	_, _ = io.WriteString(p.w, text[p.printed:])
	p.printed = len(text)
}

func runAsk(ctx context.Context, cfg *config.Config, prompt string, speak bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})
	if !speak {
		cfg.Speech.Enabled = false
	}

	printer := &replyPrinter{w: out}
	a, err := buildApp(ctx, cfg, notify.NewLog(log), printer.onChange, log)
	if err != nil {
		return err
	}

	finished := make(chan struct{})
	var once sync.Once
	a.speaker.OnFinish(func(current func() bool) {
		a.session.SpeechFinished(current)
		once.Do(func() { close(finished) })
	})

	if err := a.session.Submit(ctx, prompt); err != nil {
		a.Close()
		return err
	}
	fmt.Fprintln(out)

	if cfg.SpeechEngine() != config.SpeechNone {
		select {
		case <-finished:
		case <-ctx.Done():
		}
	}
	a.Close()
	return nil
}
