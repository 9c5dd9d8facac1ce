// Package config loads the server configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "IRONPAGE_"

var (
	// ErrParsingConfig is returned when the environment cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment into config")
	// ErrReadingEnvFile is returned when an explicitly named .env file cannot be read.
	ErrReadingEnvFile = errors.New("failed to read env file")
	// ErrInvalidConfig is returned when a parsed value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the server configuration.
type Config struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
	CSRFRefresh     time.Duration `env:"CSRF_REFRESH" envDefault:"5m"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load parses the process environment into a Config. Values from the given
// .env files fill in variables the environment does not set; with no files,
// a .env in the working directory is used when present.
func Load(files ...string) (Config, error) {
	fileVars, err := readEnvFiles(files)
	if err != nil {
		return Config{}, err
	}

	environment := processEnv()
	for k, v := range fileVars {
		if _, ok := environment[k]; !ok {
			environment[k] = v
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      Prefix,
		Environment: environment,
	}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func processEnv() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		vars, err := godotenv.Read()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Join(ErrReadingEnvFile, err)
		}
		return vars, nil
	}
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, errors.Join(ErrReadingEnvFile, err)
	}
	return vars, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	case c.CleanupInterval <= 0:
		return fmt.Errorf("%w: cleanup interval must be positive", ErrInvalidConfig)
	case c.CSRFRefresh <= 0:
		return fmt.Errorf("%w: csrf refresh must be positive", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.LogFormat)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
