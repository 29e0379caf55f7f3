package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"voicechat/internal/config"
)

type flags struct {
	configPath  string
	provider    string
	model       string
	baseURL     string
	apiKeyParam string
	history     string
	logLevel    string
	noSpeech    bool
	plain       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "voicechat",
		Short:         "Chat with a hosted language model and hear the replies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			applyFlags(loaded, cmd.Flags(), f)
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), cfg, f.plain)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a TOML config file")
	pf.StringVar(&f.provider, "provider", "", "completion backend: openai or gemini")
	pf.StringVarP(&f.model, "model", "m", "", "model name")
	pf.StringVar(&f.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	pf.StringVar(&f.apiKeyParam, "api-key-param", "", "SSM parameter holding the API key")
	pf.StringVar(&f.history, "history", "", "history policy: none or full")
	pf.StringVar(&f.logLevel, "log-level", "", "log level")
	pf.BoolVar(&f.noSpeech, "no-speech", false, "disable speech output")
	root.Flags().BoolVar(&f.plain, "plain", false, "disable colours and markdown styling")

	root.AddCommand(newAskCmd(&cfg))
	return root
}

// applyFlags overlays flags the user actually set.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f flags) {
	set := func(name, value string, dst *string) {
		if fs.Changed(name) {
			*dst = strings.TrimSpace(value)
		}
	}
	set("provider", f.provider, &cfg.Provider)
	set("model", f.model, &cfg.Model)
	set("base-url", f.baseURL, &cfg.BaseURL)
	set("api-key-param", f.apiKeyParam, &cfg.APIKeyParam)
	set("history", f.history, &cfg.HistoryPolicy)
	set("log-level", f.logLevel, &cfg.LogLevel)
	if fs.Changed("no-speech") && f.noSpeech {
		cfg.Speech.Enabled = false
	}
}

func newAskCmd(cfg **config.Config) *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if *cfg == nil {
				return errors.New("configuration not loaded")
			}
			return runAsk(cmd.Context(), *cfg, strings.Join(args, " "), speak, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "speak the reply and wait for playback to finish")
	return cmd
}
