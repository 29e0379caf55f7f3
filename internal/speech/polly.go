package speech

import (
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultVoice  = "Joanna"
	DefaultEngine = "neural"
)

// DefaultPlayer reads mp3 audio from stdin.
var DefaultPlayer = []string{"mpg123", "-q", "-"}

// pollyAPI is the subset of *polly.Client used here.
type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type PollyConfig struct {
	Voice  string
	Engine string
	// Player is the command that plays mp3 audio from stdin.
	Player []string
}

// PollySpeaker synthesizes speech with Amazon Polly and pipes the audio into
// a local player.
type PollySpeaker struct {
	*runner
	api    pollyAPI
	voice  types.VoiceId
	engine types.Engine
	player []string
}

func NewPollySpeaker(api pollyAPI, cfg PollyConfig, log zerolog.Logger) (*PollySpeaker, error) {
	if api == nil {
		return nil, errors.New("speech: polly api must not be nil")
	}
	s := &PollySpeaker{
		api:    api,
		voice:  types.VoiceId(firstNonEmpty(cfg.Voice, DefaultVoice)),
		engine: types.Engine(firstNonEmpty(cfg.Engine, DefaultEngine)),
		player: cfg.Player,
	}
	if len(s.player) == 0 {
		s.player = DefaultPlayer
	}
	s.runner = newRunner(s.start, log.With().Str("speaker", "polly").Logger())
	return s, nil
}

func (s *PollySpeaker) start(ctx context.Context, text string) (*exec.Cmd, io.Closer, error) {
	out, err := s.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      s.voice,
		Engine:       s.engine,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "speech: synthesize")
	}
	if out == nil || out.AudioStream == nil {
		return nil, nil, errors.New("speech: polly returned no audio")
	}
	cmd := exec.CommandContext(ctx, s.player[0], s.player[1:]...)
	cmd.Stdin = out.AudioStream
	return cmd, out.AudioStream, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
