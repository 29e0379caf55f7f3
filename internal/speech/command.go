package speech

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CommandSpeaker voices text with a local TTS program such as say or
// espeak. The text is passed as the final argument.
type CommandSpeaker struct {
	*runner
	argv []string
}

func NewCommandSpeaker(argv []string, log zerolog.Logger) (*CommandSpeaker, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("speech: command must not be empty")
	}
	s := &CommandSpeaker{argv: append([]string(nil), argv...)}
	s.runner = newRunner(s.start, log.With().Str("speaker", argv[0]).Logger())
	return s, nil
}

func (s *CommandSpeaker) start(ctx context.Context, text string) (*exec.Cmd, io.Closer, error) {
	args := append(append([]string(nil), s.argv[1:]...), text)
	return exec.CommandContext(ctx, s.argv[0], args...), nil, nil
}

// Nop discards speech. OnFinish callbacks are never invoked.
type Nop struct{}

func (Nop) Speak(string)        {}
func (Nop) Stop()               {}
func (Nop) OnFinish(FinishFunc) {}
