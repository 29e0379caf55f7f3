package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicechat/internal/domain"
)

const (
	defaultAppTitle      = "Desktop Embed Chat"
	defaultPrimingPrompt = "Hello!"
	defaultRetryDelay    = 2 * time.Second
	defaultMaxRetries    = 3

	infoDuration   = 2 * time.Second
	dangerDuration = 3 * time.Second

	titleStartError = "Error starting chat"
	titleSendError  = "Error sending message"
)

type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type Speaker interface {
	Speak(text string)
	Stop()
}

type Notifier interface {
	Notify(n domain.Notification)
}

// Options tunes a Session. Zero values select the defaults; a negative
// RevealInterval disables pacing and a negative MaxRetries disables the
// rate-limit retry.
type Options struct {
	AppTitle        string
	PrimingPrompt   string
	SystemPrompt    string
	HistoryPolicy   HistoryPolicy
	MaxHistoryTurns int
	RevealInterval  time.Duration
	RetryDelay      time.Duration
	MaxRetries      int

	// OnChange receives every committed state. It runs with the session lock
	// held and must not call back into the Session.
	OnChange func(ConversationState)
	Logger   *zerolog.Logger
}

// Session is the conversation controller for one activated chat screen.
type Session struct {
	id       string
	llm      Completer
	speaker  Speaker
	notifier Notifier
	log      zerolog.Logger

	appTitle       string
	primingPrompt  string
	prompt         promptContext
	revealInterval time.Duration
	retryDelay     time.Duration
	maxRetries     int
	onChange       func(ConversationState)

	mu           sync.Mutex
	state        ConversationState
	epoch        uint64
	cancel       context.CancelFunc
	bootstrapped bool
}

func NewSession(llm Completer, speaker Speaker, notifier Notifier, opts Options) (*Session, error) {
	if llm == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	if speaker == nil {
		return nil, errors.New("usecase: speaker must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	policy, err := ParseHistoryPolicy(string(opts.HistoryPolicy))
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:             uuid.NewString(),
		llm:            llm,
		speaker:        speaker,
		notifier:       notifier,
		appTitle:       strings.TrimSpace(opts.AppTitle),
		primingPrompt:  strings.TrimSpace(opts.PrimingPrompt),
		revealInterval: opts.RevealInterval,
		retryDelay:     opts.RetryDelay,
		maxRetries:     opts.MaxRetries,
		onChange:       opts.OnChange,
		prompt: promptContext{
			systemPrompt: opts.SystemPrompt,
			policy:       policy,
			maxTurns:     opts.MaxHistoryTurns,
		},
	}
	if s.appTitle == "" {
		s.appTitle = defaultAppTitle
	}
	if s.primingPrompt == "" {
		s.primingPrompt = defaultPrimingPrompt
	}
	if s.revealInterval == 0 {
		s.revealInterval = defaultRevealInterval
	}
	if s.retryDelay <= 0 {
		s.retryDelay = defaultRetryDelay
	}
	switch {
	case s.maxRetries == 0:
		s.maxRetries = defaultMaxRetries
	case s.maxRetries < 0:
		s.maxRetries = 0
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s.log = logger.With().Str("session_id", s.id).Logger()
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state. The returned value is never modified by
// the Session.
func (s *Session) Snapshot() ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bootstrap sends the priming prompt and seeds the log with the reply. It runs
// at most once per Session and is not retried.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return nil
	}
	if s.state.Pending {
		s.mu.Unlock()
		return newError(ErrorBusy, "bootstrap_pending", nil)
	}
	s.bootstrapped = true
	s.commitLocked(s.state.WithPending(true))
	ctx, cancel, epoch := s.beginLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	s.log.Debug().Msg("bootstrapping session")
	messages := buildPromptMessages(promptContext{systemPrompt: s.prompt.systemPrompt}, s.primingPrompt, nil)
	reply, uerr := s.complete(ctx, "bootstrap", messages, 0)
	if uerr != nil {
		if !s.apply(epoch, clearPending) || uerr.Code == ErrorCanceled {
			return uerr
		}
		s.log.Warn().Err(uerr.Err).Str("code", string(uerr.Code)).Msg("bootstrap failed")
		s.notify(domain.NotificationDanger, titleStartError, uerr.Message(), dangerDuration)
		return uerr
	}

	seeded := s.apply(epoch, func(st ConversationState) ConversationState {
		return st.Seed(reply).WithPending(false)
	})
	if !seeded {
		return newError(ErrorCanceled, "bootstrap_canceled", context.Canceled)
	}
	s.notify(domain.NotificationInfo, "Welcome to "+s.appTitle, reply, infoDuration)
	return nil
}

// Submit sends text to the completion backend and reveals the reply into the
// log. Empty input and submits while a request is pending are rejected
// without touching the log.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return newError(ErrorInvalidInput, "empty_input", nil)
	}

	s.mu.Lock()
	if s.state.Pending {
		s.mu.Unlock()
		return newError(ErrorBusy, "submit_pending", nil)
	}
	history := s.state.Messages
	s.commitLocked(s.state.AppendUser(text).WithPending(true))
	ctx, cancel, epoch := s.beginLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	messages := buildPromptMessages(s.prompt, text, history)
	reply, uerr := s.complete(ctx, "submit", messages, s.maxRetries)
	if uerr != nil {
		if !s.apply(epoch, clearPending) || uerr.Code == ErrorCanceled {
			return uerr
		}
		s.log.Warn().Err(uerr.Err).Str("code", string(uerr.Code)).Msg("submit failed")
		s.notify(domain.NotificationDanger, titleSendError, uerr.Message(), dangerDuration)
		return uerr
	}

	if !s.apply(epoch, ConversationState.AppendPlaceholder) {
		return newError(ErrorCanceled, "submit_canceled", context.Canceled)
	}
	err := reveal(ctx, reply, s.revealInterval, func(step string) error {
		if !s.apply(epoch, func(st ConversationState) ConversationState { return st.ReplaceTail(step) }) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		s.apply(epoch, clearPending)
		return newError(ErrorCanceled, "submit_reveal_canceled", err)
	}

	if !s.finishReply(epoch, reply) {
		return newError(ErrorCanceled, "submit_canceled", context.Canceled)
	}
	return nil
}

// finishReply clears pending and starts speech for reply unless something is
// already being spoken.
func (s *Session) finishReply(epoch uint64, reply string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	next := s.state.WithPending(false)
	if !next.Speaking {
		s.speaker.Speak(reply)
		next = next.WithSpeaking(true)
	}
	s.commitLocked(next)
	return true
}

// ToggleSpeech stops active speech, or speaks the most recent entry.
func (s *Session) ToggleSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Speaking {
		s.speaker.Stop()
		s.commitLocked(s.state.WithSpeaking(false))
		return
	}
	last, ok := s.state.Last()
	if !ok || strings.TrimSpace(last.Text) == "" {
		return
	}
	s.speaker.Speak(last.Text)
	s.commitLocked(s.state.WithSpeaking(true))
}

// SpeechFinished records that playback ended on its own. stillCurrent, when
// non-nil, is consulted under the session lock and reports whether the
// finished utterance is still the speaker's latest; a stale report is ignored
// so it cannot clear a newer utterance.
func (s *Session) SpeechFinished(stillCurrent func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stillCurrent != nil && !stillCurrent() {
		return
	}
	if s.state.Speaking {
		s.commitLocked(s.state.WithSpeaking(false))
	}
}

// Clear empties the log, stops speech and abandons any request or reveal in
// flight. Calling it repeatedly is harmless.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.speaker.Stop()
	s.commitLocked(s.state.Reset())
}

func (s *Session) beginLocked(parent context.Context) (context.Context, context.CancelFunc, uint64) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, cancel, s.epoch
}

// apply commits fn(state) unless a Clear happened since epoch was taken.
func (s *Session) apply(epoch uint64, fn func(ConversationState) ConversationState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.commitLocked(fn(s.state))
	return true
}

func (s *Session) commitLocked(next ConversationState) {
	s.state = next
	if s.onChange != nil {
		s.onChange(next)
	}
}

func clearPending(st ConversationState) ConversationState {
	return st.WithPending(false)
}

// complete calls the backend, retrying rate-limited attempts up to retries
// times with a fixed delay.
func (s *Session) complete(ctx context.Context, prefix string, messages []domain.ChatMessage, retries int) (string, *Error) {
	var reply string
	attempt := 0
	op := func() error {
		attempt++
		out, err := s.llm.Complete(ctx, messages)
		if err == nil && strings.TrimSpace(out) == "" {
			err = fmt.Errorf("%w: empty completion", domain.ErrMalformedResponse)
		}
		if err != nil {
			uerr := classifyCompletionError(ctx, prefix, err)
			if uerr.Code != ErrorRateLimited {
				return backoff.Permanent(uerr)
			}
			return uerr
		}
		reply = out
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), uint64(retries)),
		ctx,
	)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		s.log.Info().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("rate limited, retrying")
	})
	if err != nil {
		var uerr *Error
		if errors.As(err, &uerr) {
			return "", uerr
		}
		return "", classifyCompletionError(ctx, prefix, err)
	}
	s.log.Debug().Int("attempt", attempt).Int("reply_len", len(reply)).Msg("completion received")
	return reply, nil
}

func (s *Session) notify(kind domain.NotificationKind, title, body string, d time.Duration) {
	s.notifier.Notify(domain.Notification{
		Kind:     kind,
		Title:    title,
		Body:     body,
		Duration: d,
	})
}
