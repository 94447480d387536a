package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort            = "8000"
	DefaultUsersTable      = "users"
	DefaultUsersKey        = "identifier"
	DefaultMaxPageSize     = 1000
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	DatabaseURL     string
	Host            string
	Port            string
	LogLevel        string
	UsersTable      string
	UsersKey        string
	Tables          []string
	ReadOnly        bool
	MaxPageSize     int
	ShutdownTimeout time.Duration
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads .env from the working directory when present, then the process
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	cfg := &Config{
		DatabaseURL: get("DATABASE_URL", ""),
		Host:        get("FIVEM_API_HOST", ""),
		Port:        get("FIVEM_API_PORT", DefaultPort),
		LogLevel:    strings.ToLower(get("FIVEM_LOG_LEVEL", "info")),
		UsersTable:  get("FIVEM_USERS_TABLE", DefaultUsersTable),
		UsersKey:    get("FIVEM_USERS_KEY", DefaultUsersKey),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("env DATABASE_URL not set")
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid FIVEM_API_PORT %q", cfg.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid FIVEM_LOG_LEVEL %q", cfg.LogLevel)
	}
	for _, name := range strings.Split(get("FIVEM_TABLES", ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Tables = append(cfg.Tables, name)
		}
	}
	if cfg.ReadOnly, err = strconv.ParseBool(get("FIVEM_READ_ONLY", "false")); err != nil {
		return nil, fmt.Errorf("invalid FIVEM_READ_ONLY: %w", err)
	}
	if cfg.MaxPageSize, err = strconv.Atoi(get("FIVEM_MAX_PAGE_SIZE", strconv.Itoa(DefaultMaxPageSize))); err != nil || cfg.MaxPageSize < 1 {
		return nil, fmt.Errorf("invalid FIVEM_MAX_PAGE_SIZE %q", get("FIVEM_MAX_PAGE_SIZE", ""))
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(get("FIVEM_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid FIVEM_SHUTDOWN_TIMEOUT: %w", err)
	}
	return cfg, nil
}
