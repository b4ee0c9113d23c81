package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/script-runtime/errors"
)

// EnvPrefix prefixes every environment override, e.g.
// SCRIPTRT_ENGINE_MAX_CONTEXTS.
const EnvPrefix = "SCRIPTRT"

// Debugger input modes.
const (
	InputAuto     = "auto"
	InputTerminal = "terminal"
	InputLine     = "line"
)

// Hook declaration syntaxes.
const (
	HooksNative = "native"
	HooksWIT    = "wit"
)

// Config holds the runtime configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Debugger  DebuggerConfig  `mapstructure:"debugger"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// SchedulerConfig holds garbage collection and hook settings.
type SchedulerConfig struct {
	Hooks         string `mapstructure:"hooks"`
	GCAfterAlloc  bool   `mapstructure:"gc_after_alloc"`
	IncrementalGC bool   `mapstructure:"incremental_gc"`
}

// DebuggerConfig holds the command prompt settings.
type DebuggerConfig struct {
	Prompt        string `mapstructure:"prompt"`
	Input         string `mapstructure:"input"`
	ExpandMembers int    `mapstructure:"expand_members"`
}

// EngineConfig holds wazero engine limits.
type EngineConfig struct {
	MaxContexts       int    `mapstructure:"max_contexts"`
	MemoryLimitPages  uint32 `mapstructure:"memory_limit_pages"`
	AsyncifyStackSize uint32 `mapstructure:"asyncify_stack_size"`
	AsyncifyDataAddr  uint32 `mapstructure:"asyncify_data_addr"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("scheduler.hooks", d.Scheduler.Hooks)
	v.SetDefault("scheduler.gc_after_alloc", d.Scheduler.GCAfterAlloc)
	v.SetDefault("scheduler.incremental_gc", d.Scheduler.IncrementalGC)
	v.SetDefault("debugger.prompt", d.Debugger.Prompt)
	v.SetDefault("debugger.input", d.Debugger.Input)
	v.SetDefault("debugger.expand_members", d.Debugger.ExpandMembers)
	v.SetDefault("engine.max_contexts", d.Engine.MaxContexts)
	v.SetDefault("engine.memory_limit_pages", d.Engine.MemoryLimitPages)
	v.SetDefault("engine.asyncify_stack_size", d.Engine.AsyncifyStackSize)
	v.SetDefault("engine.asyncify_data_addr", d.Engine.AsyncifyDataAddr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Debugger: DebuggerConfig{
			Prompt:        "[dbg]> ",
			Input:         InputAuto,
			ExpandMembers: 3,
		},
		Scheduler: SchedulerConfig{
			Hooks:         HooksNative,
			GCAfterAlloc:  true,
			IncrementalGC: true,
		},
	}
}

// Load reads configuration from path, or from SCRIPTRT_CONFIG, or from
// config.{toml,yaml,...} in the working directory or
// $HOME/.config/script-runtime. A missing file is only an error when it was
// named explicitly. Env var overrides use prefix SCRIPTRT_.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "script-runtime"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !stderrors.As(err, &notFound) {
			return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Detail("read config %s", path).
				Cause(err).
				Build()
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enumerated and numeric settings.
func (c Config) Validate() error {
	switch c.Debugger.Input {
	case InputAuto, InputTerminal, InputLine:
	default:
		return invalid("debugger.input", c.Debugger.Input, "auto, terminal or line")
	}
	switch c.Scheduler.Hooks {
	case HooksNative, HooksWIT:
	default:
		return invalid("scheduler.hooks", c.Scheduler.Hooks, "native or wit")
	}
	if c.Debugger.ExpandMembers < 0 {
		return invalid("debugger.expand_members", c.Debugger.ExpandMembers, "zero or more")
	}
	if c.Engine.MaxContexts < 0 {
		return invalid("engine.max_contexts", c.Engine.MaxContexts, "zero or more")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "debug, info, warn, error, dpanic, panic or fatal")
	}
	return nil
}

func invalid(key string, value any, want string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(value).
		Detail("%s = %v, want %s", key, value, want).
		Build()
}

// NewLogger builds a zap logger for cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
