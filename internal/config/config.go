// Package config loads studyloop settings from defaults, an optional YAML
// file, STUDYLOOP_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/playback"
	"github.com/conorfennell/studyloop/internal/scheduler"
)

const envPrefix = "STUDYLOOP_"

type Config struct {
	DB        DBConfig        `koanf:"db"`
	HTTP      HTTPConfig      `koanf:"http"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Playback  PlaybackConfig  `koanf:"playback"`
	Speech    SpeechConfig    `koanf:"speech"`
	Log       LogConfig       `koanf:"log"`
	Sources   SourcesConfig   `koanf:"sources"`
	Study     StudyConfig     `koanf:"study"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type HTTPConfig struct {
	Addr           string   `koanf:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SchedulerConfig mirrors scheduler.Params.
type SchedulerConfig struct {
	MinFactor      float64 `koanf:"min_factor" validate:"gt=0"`
	MaxFactor      float64 `koanf:"max_factor" validate:"gtefield=MinFactor"`
	DefaultFactor  float64 `koanf:"default_factor" validate:"gtefield=MinFactor,ltefield=MaxFactor"`
	Increment      float64 `koanf:"increment" validate:"gte=0"`
	Decrement      float64 `koanf:"decrement" validate:"gte=0"`
	HardDecrement  float64 `koanf:"hard_decrement" validate:"gte=0"`
	HardMultiplier float64 `koanf:"hard_multiplier" validate:"gt=0"`
	GoodMultiplier float64 `koanf:"good_multiplier" validate:"gt=0"`
	EasyMultiplier float64 `koanf:"easy_multiplier" validate:"gt=0"`
}

type PlaybackConfig struct {
	FlipDelay      time.Duration `koanf:"flip_delay" validate:"gt=0"`
	AdvanceDelay   time.Duration `koanf:"advance_delay" validate:"gt=0"`
	FlipAnimation  time.Duration `koanf:"flip_animation" validate:"gt=0"`
	EmptyFaceDelay time.Duration `koanf:"empty_face_delay" validate:"gt=0"`
}

type SpeechConfig struct {
	Backend string   `koanf:"backend" validate:"oneof=none console command"`
	Command string   `koanf:"command" validate:"required_if=Backend command"`
	Args    []string `koanf:"args"`
	// Console reading-time estimate.
	PerRune     time.Duration `koanf:"per_rune" validate:"gte=0"`
	MinDuration time.Duration `koanf:"min_duration" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type SourcesConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type StudyConfig struct {
	Strategy string `koanf:"strategy" validate:"oneof=linear shuffled intelligent"`
}

// Default returns the built-in settings.
func Default() Config {
	p := scheduler.DefaultParams()
	return Config{
		DB:   DBConfig{Path: "studyloop.db"},
		HTTP: HTTPConfig{Addr: "localhost:8080"},
		Scheduler: SchedulerConfig{
			MinFactor:      p.MinFactor,
			MaxFactor:      p.MaxFactor,
			DefaultFactor:  p.DefaultFactor,
			Increment:      p.Increment,
			Decrement:      p.Decrement,
			HardDecrement:  p.HardDecrement,
			HardMultiplier: p.HardMultiplier,
			GoodMultiplier: p.GoodMultiplier,
			EasyMultiplier: p.EasyMultiplier,
		},
		Playback: PlaybackConfig{
			FlipDelay:      playback.DefaultFlipDelay,
			AdvanceDelay:   playback.DefaultAdvanceDelay,
			FlipAnimation:  playback.DefaultFlipAnimation,
			EmptyFaceDelay: playback.DefaultEmptyFaceDelay,
		},
		Speech: SpeechConfig{
			Backend:     "console",
			PerRune:     60 * time.Millisecond,
			MinDuration: 800 * time.Millisecond,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Sources: SourcesConfig{ReposDir: "repos"},
		Study:   StudyConfig{Strategy: string(domain.Intelligent)},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":         "db.path",
	"addr":       "http.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
	"strategy":   "study.strategy",
	"speech":     "speech.backend",
	"repos-dir":  "sources.repos_dir",
}

// RegisterFlags adds the shared flags to fs, including --config.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db", d.DB.Path, "Path to the SQLite database file")
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "Log format: text or json")
	fs.String("strategy", d.Study.Strategy, "Queue strategy: linear, shuffled or intelligent")
	fs.String("speech", d.Speech.Backend, "Speech backend: none, console or command")
	fs.String("repos-dir", d.Sources.ReposDir, "Directory for cloned git sources")
}

// Load builds the configuration. fs may be nil; when it defines --config
// that file is read first.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue turns STUDYLOOP_PLAYBACK__FLIP_DELAY into playback.flip_delay.
// List values are comma separated.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	switch key {
	case "http.allowed_origins", "speech.args":
		return key, strings.Split(value, ",")
	}
	return key, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Params returns the scheduling parameters.
func (c SchedulerConfig) Params() *scheduler.Params {
	return &scheduler.Params{
		MinFactor:      c.MinFactor,
		MaxFactor:      c.MaxFactor,
		DefaultFactor:  c.DefaultFactor,
		Increment:      c.Increment,
		Decrement:      c.Decrement,
		HardDecrement:  c.HardDecrement,
		HardMultiplier: c.HardMultiplier,
		GoodMultiplier: c.GoodMultiplier,
		EasyMultiplier: c.EasyMultiplier,
	}
}

// Options returns playback options with the configured delays.
func (c PlaybackConfig) Options(log *slog.Logger) playback.Options {
	return playback.Options{
		FlipDelay:      c.FlipDelay,
		AdvanceDelay:   c.AdvanceDelay,
		FlipAnimation:  c.FlipAnimation,
		EmptyFaceDelay: c.EmptyFaceDelay,
		Logger:         log,
	}
}

// DefaultStrategy returns the strategy for new sessions.
func (c StudyConfig) DefaultStrategy() domain.Strategy {
	return domain.Strategy(c.Strategy)
}

// NewLogger builds a slog logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
