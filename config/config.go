// Package config loads server configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the server.
type Config struct {
	Host string
	Port string

	// DatabaseURL and DatabaseName are handed to the store untouched.
	DatabaseURL  string
	DatabaseName string

	// StoreBackend selects the store explicitly; empty means infer from DatabaseURL.
	StoreBackend string
	DataDir      string

	LogLevel slog.Level
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the .env file.
func Load(files ...string) Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	return Config{
		Host:         env("HOST", "0.0.0.0"),
		Port:         port(env("PORT", "8000")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		StoreBackend: strings.ToLower(env("STORE_BACKEND", "")),
		DataDir:      env("DATA_DIR", "./data"),
		LogLevel:     level(env("LOG_LEVEL", "info")),
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabaseURLSet reports whether DATABASE_URL was provided.
func (c Config) DatabaseURLSet() bool { return c.DatabaseURL != "" }

// DatabaseNameSet reports whether DATABASE_NAME was provided.
func (c Config) DatabaseNameSet() bool { return c.DatabaseName != "" }

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func port(v string) string {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		slog.Warn("invalid PORT, falling back to 8000", "value", v)
		return "8000"
	}
	return strconv.Itoa(n)
}

func level(v string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return l
}
