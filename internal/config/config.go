package config

import (
	"flag"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"connectn/internal/game"
)

// Config holds the server settings. Values come from command line flags,
// then environment variables, then the .env file.
type Config struct {
	GRPCPort       int
	HTTPPort       int
	Shards         int
	LogLevel       string
	LogDevelopment bool

	DefaultColumns      int
	DefaultRows         int
	DefaultWinningCount int
	DefaultInterval     time.Duration
}

// Load reads the .env file named by ENV_FILE, the environment and args
func Load(args []string) (*Config, error) {
	envFile := GetEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "loading %s", envFile)
	}

	cfg := &Config{
		GRPCPort:            GetEnvAsInt("GRPC_PORT", 50051),
		HTTPPort:            GetEnvAsInt("HTTP_PORT", 8080),
		Shards:              GetEnvAsInt("SHARDS", 64),
		LogLevel:            GetEnv("LOG_LEVEL", "info"),
		LogDevelopment:      GetEnvAsBool("LOG_DEVELOPMENT", false),
		DefaultColumns:      GetEnvAsInt("DEFAULT_COLUMNS", game.DefaultColumns),
		DefaultRows:         GetEnvAsInt("DEFAULT_ROWS", game.DefaultRows),
		DefaultWinningCount: GetEnvAsInt("DEFAULT_WINNING_COUNT", game.DefaultWinningCount),
		DefaultInterval:     time.Duration(GetEnvAsInt("DEFAULT_INTERVAL_MS", int(game.DefaultInterval/time.Millisecond))) * time.Millisecond,
	}

	fset := flag.NewFlagSet("connectn", flag.ContinueOnError)
	fset.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The gRPC server port")
	fset.IntVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "The HTTP/REST server port")
	fset.IntVar(&cfg.Shards, "shards", cfg.Shards, "Number of shards for data stores (higher = better concurrency)")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fset.BoolVar(&cfg.LogDevelopment, "log-development", cfg.LogDevelopment, "Human readable console logs")
	fset.IntVar(&cfg.DefaultColumns, "columns", cfg.DefaultColumns, "Default board width")
	fset.IntVar(&cfg.DefaultRows, "rows", cfg.DefaultRows, "Default board height")
	fset.IntVar(&cfg.DefaultWinningCount, "winning-count", cfg.DefaultWinningCount, "Default run length needed to win")
	fset.DurationVar(&cfg.DefaultInterval, "interval", cfg.DefaultInterval, "Default drop animation tick")
	if err := fset.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parsing flags")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		return errors.Errorf("ports must be positive, got grpc=%d http=%d", c.GRPCPort, c.HTTPPort)
	}
	if c.GRPCPort == c.HTTPPort {
		return errors.Errorf("grpc and http ports must differ, both are %d", c.GRPCPort)
	}
	if c.Shards <= 0 {
		return errors.Errorf("shards must be positive, got %d", c.Shards)
	}
	if c.DefaultInterval <= 0 {
		return errors.Errorf("drop interval must be positive, got %s", c.DefaultInterval)
	}
	if err := c.GameConfig().Validate(); err != nil {
		return errors.Wrap(err, "default board")
	}
	return nil
}

// GameConfig returns the board configuration new games start with
func (c *Config) GameConfig() game.Config {
	return game.Config{
		Columns:      c.DefaultColumns,
		Rows:         c.DefaultRows,
		WinningCount: c.DefaultWinningCount,
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return value
}
