// Package config loads shelf-proxy configuration from a TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the runtime configuration for shelf-proxy.
type Config struct {
	ListenAddr string
	LibraryURL string
	RedisAddr  string
	CachePath  string
	UserAgent  string
	AuthToken  string
	LogLevel   string
	MaxAge     time.Duration
}

const (
	defaultConfigPath = "~/.config/shelfsync/config.toml"
	defaultListenAddr = "127.0.0.1:8080"
	defaultRedisAddr  = "localhost:6379"
	defaultCachePath  = "~/.local/share/shelfsync/cache.db"
	defaultUserAgent  = "shelf-proxy/0.1.0"
	defaultLogLevel   = "info"
)

// Load locates and parses the config file, falling back to defaults when
// missing. Environment variables override file values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr: defaultListenAddr,
		RedisAddr:  defaultRedisAddr,
		CachePath:  defaultCachePath,
		UserAgent:  defaultUserAgent,
		LogLevel:   defaultLogLevel,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
	} else {
		defer file.Close()

		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		var raw struct {
			ListenAddr string `toml:"listen_addr"`
			LibraryURL string `toml:"library_url"`
			RedisAddr  string `toml:"redis_addr"`
			CachePath  string `toml:"cache_path"`
			UserAgent  string `toml:"user_agent"`
			AuthToken  string `toml:"auth_token"`
			LogLevel   string `toml:"log_level"`
			MaxAge     string `toml:"max_cache_age"`
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}

		applyString(&cfg.ListenAddr, raw.ListenAddr)
		applyString(&cfg.LibraryURL, raw.LibraryURL)
		applyString(&cfg.RedisAddr, raw.RedisAddr)
		applyString(&cfg.CachePath, raw.CachePath)
		applyString(&cfg.UserAgent, raw.UserAgent)
		applyString(&cfg.AuthToken, raw.AuthToken)
		applyString(&cfg.LogLevel, raw.LogLevel)

		if trimmed := strings.TrimSpace(raw.MaxAge); trimmed != "" {
			maxAge, err := time.ParseDuration(trimmed)
			if err != nil {
				return Config{}, fmt.Errorf("parse max_cache_age: %w", err)
			}
			cfg.MaxAge = maxAge
		}
	}

	// Environment overrides file
	applyString(&cfg.ListenAddr, os.Getenv("SHELF_LISTEN_ADDR"))
	applyString(&cfg.LibraryURL, os.Getenv("SHELF_LIBRARY_URL"))
	applyString(&cfg.RedisAddr, os.Getenv("SHELF_REDIS_ADDR"))
	applyString(&cfg.CachePath, os.Getenv("SHELF_CACHE_PATH"))
	applyString(&cfg.UserAgent, os.Getenv("SHELF_USER_AGENT"))
	applyString(&cfg.AuthToken, os.Getenv("SHELF_AUTH_TOKEN"))
	applyString(&cfg.LogLevel, os.Getenv("SHELF_LOG_LEVEL"))

	if cfg.LibraryURL == "" {
		return Config{}, fmt.Errorf("library_url is required (config file or SHELF_LIBRARY_URL)")
	}

	cfg.CachePath = mustExpand(cfg.CachePath)

	return cfg, nil
}

func applyString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
