// Package config loads runtime settings for the demandcast binaries from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/artifact"
	"github.com/gridwatch/demandcast/models"
	"github.com/gridwatch/demandcast/timedataset"
	"github.com/gridwatch/demandcast/train"

	"github.com/joho/godotenv"
)

const (
	EnvData        = "DEMANDCAST_DATA"
	EnvTimeColumn  = "DEMANDCAST_TIME_COLUMN"
	EnvValueColumn = "DEMANDCAST_VALUE_COLUMN"
	EnvModel       = "DEMANDCAST_MODEL"
	EnvMetric      = "DEMANDCAST_METRIC"
	EnvAddr        = "DEMANDCAST_ADDR"
	EnvHoldout     = "DEMANDCAST_HOLDOUT"
	EnvEstimators  = "DEMANDCAST_ESTIMATORS"
	EnvSeed        = "DEMANDCAST_SEED"
	EnvParallelism = "DEMANDCAST_PARALLELISM"
	EnvLogLevel    = "DEMANDCAST_LOG_LEVEL"
)

const (
	DefaultDataPath = "data.csv"
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

var ErrUnknownLogLevel = errors.New("unknown log level")

// Config holds the settings shared by the train, forecast and server binaries
type Config struct {
	DataPath    string
	TimeColumn  string
	ValueColumn string
	ModelPath   string
	MetricPath  string
	Addr        string

	HoldoutSize   int
	NumEstimators int
	Seed          uint64
	Parallelism   int

	LogLevel string
}

// Default returns the configuration used when nothing is set in the environment
func Default() *Config {
	return &Config{
		DataPath:      DefaultDataPath,
		TimeColumn:    timedataset.DefaultTimeColumn,
		ValueColumn:   timedataset.DefaultValueColumn,
		ModelPath:     artifact.DefaultModelPath,
		MetricPath:    artifact.DefaultMetricPath,
		Addr:          DefaultAddr,
		HoldoutSize:   train.DefaultHoldoutSize,
		NumEstimators: models.DefaultNumEstimators,
		Seed:          models.DefaultSeed,
		Parallelism:   0,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads the optional env files, .env when none are named, and then the environment.
// Variables already set in the environment take precedence over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to load env file, %w", err)
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment. Invalid numbers fall back to their
// defaults with a warning.
func FromEnv() *Config {
	def := Default()
	return &Config{
		DataPath:      getEnv(EnvData, def.DataPath),
		TimeColumn:    getEnv(EnvTimeColumn, def.TimeColumn),
		ValueColumn:   getEnv(EnvValueColumn, def.ValueColumn),
		ModelPath:     getEnv(EnvModel, def.ModelPath),
		MetricPath:    getEnv(EnvMetric, def.MetricPath),
		Addr:          getEnv(EnvAddr, def.Addr),
		HoldoutSize:   getEnvInt(EnvHoldout, def.HoldoutSize),
		NumEstimators: getEnvInt(EnvEstimators, def.NumEstimators),
		Seed:          getEnvUint(EnvSeed, def.Seed),
		Parallelism:   getEnvInt(EnvParallelism, def.Parallelism),
		LogLevel:      getEnv(EnvLogLevel, def.LogLevel),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer setting, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		slog.Warn("invalid unsigned setting, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return v
}

// ReadOptions returns the reader setup for the configured data columns
func (c *Config) ReadOptions() *timedataset.ReadOptions {
	opt := timedataset.NewDefaultReadOptions()
	opt.TimeColumn = c.TimeColumn
	opt.ValueColumn = c.ValueColumn
	return opt
}

// TrainOptions returns the training setup described by the config
func (c *Config) TrainOptions() *train.Options {
	opt := train.NewDefaultOptions()
	opt.HoldoutSize = c.HoldoutSize
	opt.ForestOptions.NumEstimators = c.NumEstimators
	opt.ForestOptions.Seed = c.Seed
	opt.ForestOptions.Parallelization = c.Parallelism
	return opt
}

// ForecasterOptions returns forecaster options carrying the training setup
func (c *Config) ForecasterOptions() *demandcast.Options {
	opt := demandcast.NewDefaultOptions()
	opt.TrainOptions = c.TrainOptions()
	return opt
}

// ParseLevel maps debug, info, warn or error to its slog level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("got %q, %w", s, ErrUnknownLogLevel)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the configured level. An unknown level
// logs at info.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if err != nil {
		logger.Warn("invalid log level, using info", "value", c.LogLevel)
	}
	return logger
}
