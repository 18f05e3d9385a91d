// Package config loads pagehits settings from an optional YAML file,
// PAGEHITS_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"pagehits/record"
	"pagehits/resolve"
	"pagehits/source"
)

// EnvPrefix prefixes every environment variable, e.g. PAGEHITS_PROCESS_WORKERS.
const EnvPrefix = "PAGEHITS"

type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Process  ProcessConfig  `mapstructure:"process"`
	Generate GenerateConfig `mapstructure:"generate"`
	Log      LogConfig      `mapstructure:"log"`
}

// DataConfig locates the input and output files. Input and Output are
// relative to Dir unless absolute.
type DataConfig struct {
	Dir    string `mapstructure:"dir"`
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

type ProcessConfig struct {
	Workers     int    `mapstructure:"workers"`
	Source      string `mapstructure:"source"`
	Keys        string `mapstructure:"keys"`
	Window      int    `mapstructure:"window"`
	LookupLimit int    `mapstructure:"lookup_limit"`
}

type GenerateConfig struct {
	Count int    `mapstructure:"count"`
	Seed  uint64 `mapstructure:"seed"`
	// Blocks is the number of blocks generated concurrently. Zero means
	// Process.Workers.
	Blocks int `mapstructure:"blocks"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the config file at path, or ./pagehits.yaml when path is empty.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pagehits")
		v.SetConfigType("yaml")
	}

	v.SetDefault("data.dir", filepath.Join("target", "data"))
	v.SetDefault("data.input", "measurements.txt")
	v.SetDefault("data.output", "output.json")
	v.SetDefault("process.workers", runtime.NumCPU())
	v.SetDefault("process.source", string(source.Mapped))
	v.SetDefault("process.keys", record.Exact.String())
	v.SetDefault("process.window", 0)
	v.SetDefault("process.lookup_limit", resolve.DefaultLimit)
	v.SetDefault("generate.count", 1_000_000)
	v.SetDefault("generate.seed", 0)
	v.SetDefault("generate.blocks", 0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Process.Workers = max(cfg.Process.Workers, 1)
	if cfg.Generate.Blocks <= 0 {
		cfg.Generate.Blocks = cfg.Process.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown enum values and negative sizes.
func (c *Config) Validate() error {
	var errs []error
	if _, err := source.ParseMode(c.Process.Source); err != nil {
		errs = append(errs, fmt.Errorf("process.source: %w", err))
	}
	if _, err := record.ParseKeyMode(c.Process.Keys); err != nil {
		errs = append(errs, fmt.Errorf("process.keys: %w", err))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Process.Window < 0 {
		errs = append(errs, fmt.Errorf("process.window: must not be negative, got %d", c.Process.Window))
	}
	if c.Generate.Count < 0 {
		errs = append(errs, fmt.Errorf("generate.count: must not be negative, got %d", c.Generate.Count))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir: must not be empty"))
	}
	return errors.Join(errs...)
}

func (c *Config) InputPath() string {
	return c.resolve(c.Data.Input)
}

func (c *Config) OutputPath() string {
	return c.resolve(c.Data.Output)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// SourceMode returns the parsed process.source.
func (c *Config) SourceMode() source.Mode {
	mode, _ := source.ParseMode(c.Process.Source)
	return mode
}

// KeyMode returns the parsed process.keys.
func (c *Config) KeyMode() record.KeyMode {
	mode, _ := record.ParseKeyMode(c.Process.Keys)
	return mode
}

// LogLevel parses log.level as one of debug, info, warn or error.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
