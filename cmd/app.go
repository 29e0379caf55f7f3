package main

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"voicechat/internal/config"
	"voicechat/internal/integrations/gemini"
	"voicechat/internal/integrations/openai"
	"voicechat/internal/integrations/paramstore"
	"voicechat/internal/integrations/throttle"
	"voicechat/internal/speech"
	"voicechat/internal/usecase"
)

// speaker is what the session needs plus the natural-end hook.
type speaker interface {
	usecase.Speaker
	OnFinish(speech.FinishFunc)
}

type app struct {
	session *usecase.Session
	speaker speaker
	closers []io.Closer
}

func (a *app) Close() {
	a.session.Clear()
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// buildApp wires the backends, speech and session described by cfg.
func buildApp(ctx context.Context, cfg *config.Config, notifier usecase.Notifier, onChange func(usecase.ConversationState), log zerolog.Logger) (*app, error) {
	a := &app{}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return aws.Config{}, errors.Wrap(err, "load AWS config")
		}
		awsCfg = &loaded
		return loaded, nil
	}

	var keys *paramstore.KeySource
	if cfg.APIKey != "" {
		keys = paramstore.StaticKey(cfg.APIKey)
	} else {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(ac))
		if err != nil {
			return nil, err
		}
		keys, err = paramstore.NewKeySource(ssmClient, cfg.APIKeyParam)
		if err != nil {
			return nil, err
		}
	}

	var llm usecase.Completer
	switch cfg.Provider {
	case config.ProviderGemini:
		var opts []gemini.Option
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithClientOptions(option.WithEndpoint(cfg.BaseURL)))
		}
		client, err := gemini.NewClient(keys, cfg.Model, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		llm = client
	default:
		client, err := openai.NewClient(keys, cfg.Model,
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		)
		if err != nil {
			return nil, err
		}
		llm = client
	}
	llm = throttle.New(llm, cfg.RequestsPerMinute)

	switch cfg.SpeechEngine() {
	case config.SpeechPolly:
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		s, err := speech.NewPollySpeaker(awspolly.NewFromConfig(ac), speech.PollyConfig{
			Voice:  cfg.Speech.Voice,
			Engine: cfg.Speech.PollyEngine,
			Player: cfg.Speech.Player,
		}, log)
		if err != nil {
			return nil, err
		}
		a.speaker = s
	case config.SpeechCommand:
		s, err := speech.NewCommandSpeaker(cfg.Speech.Command, log)
		if err != nil {
			return nil, err
		}
		a.speaker = s
	default:
		a.speaker = speech.Nop{}
	}

	policy, err := usecase.ParseHistoryPolicy(cfg.HistoryPolicy)
	if err != nil {
		return nil, err
	}
	session, err := usecase.NewSession(llm, a.speaker, notifier, usecase.Options{
		AppTitle:        cfg.AppTitle,
		PrimingPrompt:   cfg.PrimingPrompt,
		SystemPrompt:    cfg.SystemPrompt,
		HistoryPolicy:   policy,
		MaxHistoryTurns: cfg.MaxHistoryTurns,
		RevealInterval:  cfg.RevealInterval,
		RetryDelay:      cfg.RetryDelay,
		MaxRetries:      retries(cfg.MaxRetries),
		OnChange:        onChange,
		Logger:          &log,
	})
	if err != nil {
		return nil, err
	}
	a.speaker.OnFinish(session.SpeechFinished)
	a.session = session

	log.Info().
		Str("session_id", session.ID()).
		Str("provider", cfg.Provider).
		Str("speech", cfg.SpeechEngine()).
		Msg("session ready")
	return a, nil
}

// retries maps the config value, where 0 means no retry, onto
// usecase.Options, where 0 selects the default.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
