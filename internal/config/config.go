// Package config loads voicechat settings from defaults, an optional TOML
// file and VOICECHAT_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	SpeechPolly   = "polly"
	SpeechCommand = "command"
	SpeechNone    = "none"

	envPrefix = "VOICECHAT_"
)

type Config struct {
	Provider          string        `toml:"provider"`
	Model             string        `toml:"model"`
	BaseURL           string        `toml:"base_url"`
	APIKey            string        `toml:"api_key"`
	APIKeyParam       string        `toml:"api_key_param"`
	AWSRegion         string        `toml:"aws_region"`
	SystemPrompt      string        `toml:"system_prompt"`
	PrimingPrompt     string        `toml:"priming_prompt"`
	AppTitle          string        `toml:"app_title"`
	HistoryPolicy     string        `toml:"history_policy"`
	MaxHistoryTurns   int           `toml:"max_history_turns"`
	RevealInterval    time.Duration `toml:"reveal_interval"`
	RetryDelay        time.Duration `toml:"retry_delay"`
	MaxRetries        int           `toml:"max_retries"`
	RequestsPerMinute int           `toml:"requests_per_minute"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
	Speech            Speech        `toml:"speech"`
	LogLevel          string        `toml:"log_level"`
	LogFile           string        `toml:"log_file"`
}

// Speech selects how replies are voiced. PollyEngine is "neural" or
// "standard" and only applies to the polly engine.
type Speech struct {
	Enabled     bool     `toml:"enabled"`
	Engine      string   `toml:"engine"`
	Voice       string   `toml:"voice"`
	PollyEngine string   `toml:"polly_engine"`
	Player      []string `toml:"player"`
	Command     []string `toml:"command"`
}

func Default() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		SystemPrompt:    "You are a helpful assistant.",
		PrimingPrompt:   "Hello!",
		AppTitle:        "Desktop Embed Chat",
		HistoryPolicy:   "none",
		MaxHistoryTurns: 10,
		RevealInterval:  100 * time.Millisecond,
		RetryDelay:      2 * time.Second,
		MaxRetries:      3,
		RequestTimeout:  30 * time.Second,
		Speech: Speech{
			Enabled: true,
			Engine:  SpeechPolly,
			Voice:   "Joanna",
			Player:  []string{"mpg123", "-q", "-"},
			Command: []string{"espeak"},
		},
		LogLevel: "info",
	}
}

// DefaultPath is config.toml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "config: locate config dir")
	}
	return filepath.Join(dir, "voicechat", "config.toml"), nil
}

// DefaultLogFile is voicechat.log under the user cache directory.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "voicechat.log")
	}
	return filepath.Join(dir, "voicechat", "voicechat.log")
}

// Load returns defaults overlaid with the TOML file at path and the process
// environment. An empty path reads DefaultPath when that file exists. The
// result is not validated, so flags can still be applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Wrapf(err, "config: stat %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "config: decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides fields from VOICECHAT_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, envPrefix+name)
			return
		}
		*dst = n
	}
	dur := func(name string, dst *time.Duration) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, envPrefix+name)
			return
		}
		*dst = d
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, envPrefix+name)
			return
		}
		*dst = b
	}

	str("PROVIDER", &c.Provider)
	str("MODEL", &c.Model)
	str("BASE_URL", &c.BaseURL)
	str("API_KEY", &c.APIKey)
	str("API_KEY_PARAM", &c.APIKeyParam)
	str("AWS_REGION", &c.AWSRegion)
	str("SYSTEM_PROMPT", &c.SystemPrompt)
	str("PRIMING_PROMPT", &c.PrimingPrompt)
	str("APP_TITLE", &c.AppTitle)
	str("HISTORY_POLICY", &c.HistoryPolicy)
	num("MAX_HISTORY_TURNS", &c.MaxHistoryTurns)
	dur("REVEAL_INTERVAL", &c.RevealInterval)
	dur("RETRY_DELAY", &c.RetryDelay)
	num("MAX_RETRIES", &c.MaxRetries)
	num("REQUESTS_PER_MINUTE", &c.RequestsPerMinute)
	dur("REQUEST_TIMEOUT", &c.RequestTimeout)
	boolean("SPEECH_ENABLED", &c.Speech.Enabled)
	str("SPEECH_ENGINE", &c.Speech.Engine)
	str("SPEECH_VOICE", &c.Speech.Voice)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid value for %s", strings.Join(errs, ", "))
	}
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "config: " + strings.Join(msgs, "; ")
}

// Validate normalizes enum fields to lower case and reports every invalid
// field at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		add("provider", "must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Provider)
	}

	if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.APIKeyParam) == "" {
		add("api_key", "either api_key or api_key_param must be set")
	}

	c.HistoryPolicy = strings.ToLower(strings.TrimSpace(c.HistoryPolicy))
	switch c.HistoryPolicy {
	case "", "none", "full":
	default:
		add("history_policy", "must be \"none\" or \"full\", got %q", c.HistoryPolicy)
	}

	if c.MaxHistoryTurns < 0 {
		add("max_history_turns", "must not be negative")
	}
	if c.RetryDelay < 0 {
		add("retry_delay", "must not be negative")
	}
	if c.MaxRetries < 0 {
		add("max_retries", "must not be negative")
	}
	if c.RequestsPerMinute < 0 {
		add("requests_per_minute", "must not be negative")
	}
	if c.RequestTimeout < 0 {
		add("request_timeout", "must not be negative")
	}

	if c.Speech.Enabled {
		c.Speech.Engine = strings.ToLower(strings.TrimSpace(c.Speech.Engine))
		switch c.Speech.Engine {
		case SpeechPolly:
			if len(c.Speech.Player) == 0 {
				add("speech.player", "required for the polly engine")
			}
		case SpeechCommand:
			if len(c.Speech.Command) == 0 {
				add("speech.command", "required for the command engine")
			}
		case SpeechNone:
		default:
			add("speech.engine", "must be one of polly, command, none, got %q", c.Speech.Engine)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SpeechEngine is the engine to build, accounting for Enabled.
func (c *Config) SpeechEngine() string {
	if !c.Speech.Enabled {
		return SpeechNone
	}
	return c.Speech.Engine
}
