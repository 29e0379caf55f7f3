package usecase

import (
	"context"
	"strings"
	"time"
	"unicode"
)

const defaultRevealInterval = 100 * time.Millisecond

// revealSteps returns the successive texts shown while a reply is revealed:
// one prefix per whitespace-delimited token, ending with the reply itself.
// Prefixes are cut from the reply rather than re-joined, so line breaks and
// spacing survive and the last step is always exactly text.
func revealSteps(text string) []string {
	var steps []string
	inToken := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inToken && space {
			steps = append(steps, strings.TrimLeftFunc(text[:i], unicode.IsSpace))
		}
		inToken = !space
	}
	if n := len(steps); n > 0 && steps[n-1] == strings.TrimSpace(text) {
		steps[n-1] = text
		return steps
	}
	return append(steps, text)
}

// reveal feeds each step of text to apply, pausing interval between steps.
// The pause is a cancellation point: a done ctx stops the reveal before the
// next step is applied.
func reveal(ctx context.Context, text string, interval time.Duration, apply func(string) error) error {
	steps := revealSteps(text)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(step); err != nil {
			return err
		}
		if i == len(steps)-1 || interval <= 0 {
			continue
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
