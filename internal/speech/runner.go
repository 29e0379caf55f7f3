// Package speech plays replies aloud. Every Speaker is asynchronous: Speak
// returns immediately and playback runs in its own process.
package speech

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// waitDelay bounds how long a killed player may hold its stdin copy open.
const waitDelay = time.Second

// startFunc prepares the process that voices text. The returned closer, if
// any, is closed once the process exits.
type startFunc func(ctx context.Context, text string) (*exec.Cmd, io.Closer, error)

// runner owns at most one playback process at a time.
type runner struct {
	start startFunc
	log   zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	onFinish FinishFunc
}

// FinishFunc is told that an utterance ended on its own. current reports
// whether that utterance is still the latest one; it takes the runner lock,
// so callers may invoke it while holding their own lock as long as they also
// hold that lock around Speak and Stop.
type FinishFunc func(current func() bool)

func newRunner(start startFunc, log zerolog.Logger) *runner {
	return &runner{start: start, log: log}
}

// OnFinish registers fn to run when an utterance ends on its own. It is not
// called for utterances cut short by Stop or a newer Speak.
func (r *runner) OnFinish(fn FinishFunc) {
	r.mu.Lock()
	r.onFinish = fn
	r.mu.Unlock()
}

func (r *runner) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	go r.play(ctx, gen, text, done)
}

func (r *runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *runner) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.gen++
	r.cancel()
	r.cancel = nil
}

// wait blocks until the current utterance, if any, has exited.
func (r *runner) wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *runner) play(ctx context.Context, gen uint64, text string, done chan struct{}) {
	defer close(done)

	err := r.run(ctx, text)
	if err != nil && ctx.Err() == nil {
		r.log.Warn().Err(err).Msg("speech playback failed")
	}

	r.mu.Lock()
	current := gen == r.gen
	if current {
		r.cancel = nil
	}
	onFinish := r.onFinish
	r.mu.Unlock()

	if current && onFinish != nil {
		onFinish(func() bool { return r.isCurrent(gen) })
	}
}

func (r *runner) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

func (r *runner) run(ctx context.Context, text string) error {
	cmd, closer, err := r.start(ctx, text)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "speech: run %s", cmd.Path)
	}
	return nil
}
