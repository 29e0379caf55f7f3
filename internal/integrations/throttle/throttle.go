// Package throttle limits how often a completion backend is called.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"voicechat/internal/domain"
)

type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Limited waits for a token before each call to the wrapped Completer.
type Limited struct {
	next    Completer
	limiter *rate.Limiter
}

// New wraps next so that at most perMinute calls start per minute. A
// perMinute of zero or less returns next unchanged.
func New(next Completer, perMinute int) Completer {
	if perMinute <= 0 {
		return next
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (l *Limited) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle: wait: %w", err)
	}
	return l.next.Complete(ctx, messages)
}
