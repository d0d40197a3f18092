// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageBadger = "badger"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// minSharedSecret matches the envelope key derivation minimum.
const minSharedSecret = 16

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Backend BackendConfig
	Player  PlayerConfig
	Storage StorageConfig
	Redis   RedisConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins (default: *)
	// Player commands allowed per user per second, and their burst.
	CommandsPerSecond float64
	CommandBurst      int
}

// BackendConfig holds the chapter-text and speech endpoints.
type BackendConfig struct {
	TextURL   string
	SpeechURL string
	// SharedSecret seals request envelopes. Never logged.
	SharedSecret      string
	Timeout           time.Duration
	RequestsPerSecond float64 // per endpoint, 0 disables limiting
	Burst             int
	EnvelopeTTL       time.Duration
}

// PlayerConfig holds playback budgets and defaults.
type PlayerConfig struct {
	MaxSegmentChars  int
	MinSentenceChars int
	SkipSeconds      float64
	ProgressInterval time.Duration
	DefaultVoice     string
	DefaultRate      float64
}

// StorageConfig selects and locates the history store.
type StorageConfig struct {
	Backend      string // badger, sqlite or redis
	Path         string // data directory for badger and sqlite
	HistoryLimit int
}

// RedisConfig holds Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // 0 keeps history forever
}

// LoadConfig loads configuration from the process command line.
// See Load for precedence.
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load registers the configuration flags on fs, parses args and resolves
// every value with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Callers may register their own flags on fs before calling Load.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")

	// Backend flags
	textURL := fs.String("text-url", "", "Chapter text endpoint URL")
	speechURL := fs.String("speech-url", "", "Speech synthesis endpoint URL")
	backendTimeout := fs.String("backend-timeout", "", "Backend request timeout (default: 30s)")
	backendRPS := fs.String("backend-rps", "", "Requests per second per backend endpoint (default: 5)")

	// Player flags
	defaultVoice := fs.String("voice", "", "Default narration voice")
	defaultRate := fs.String("rate", "", "Default playback rate (default: 1)")

	// Storage flags
	storageBackend := fs.String("storage", "", "History store: badger, sqlite or redis (default: badger)")
	dataPath := fs.String("data-path", "", "Data directory for badger and sqlite")
	redisAddr := fs.String("redis-addr", "", "Redis address (default: localhost:6379)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins:    splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "")),
			CommandsPerSecond: getFloatConfigValue("", "COMMANDS_PER_SECOND", 10),
			CommandBurst:      getIntConfigValue("", "COMMAND_BURST", 20),
		},
		Backend: BackendConfig{
			TextURL:           getConfigValue(*textURL, "BACKEND_TEXT_URL", ""),
			SpeechURL:         getConfigValue(*speechURL, "BACKEND_SPEECH_URL", ""),
			SharedSecret:      getConfigValue("", "BACKEND_SHARED_SECRET", ""),
			RequestsPerSecond: getFloatConfigValue(*backendRPS, "BACKEND_RPS", 5),
			Burst:             getIntConfigValue("", "BACKEND_BURST", 10),
		},
		Player: PlayerConfig{
			MaxSegmentChars:  getIntConfigValue("", "PLAYER_MAX_SEGMENT_CHARS", 2000),
			MinSentenceChars: getIntConfigValue("", "PLAYER_MIN_SENTENCE_CHARS", 30),
			SkipSeconds:      getFloatConfigValue("", "PLAYER_SKIP_SECONDS", 10),
			DefaultVoice:     getConfigValue(*defaultVoice, "PLAYER_DEFAULT_VOICE", ""),
			DefaultRate:      getFloatConfigValue(*defaultRate, "PLAYER_DEFAULT_RATE", 1),
		},
		Storage: StorageConfig{
			Backend:      strings.ToLower(getConfigValue(*storageBackend, "STORAGE_BACKEND", StorageBadger)),
			Path:         getConfigValue(*dataPath, "DATA_PATH", ""),
			HistoryLimit: getIntConfigValue("", "HISTORY_LIMIT", 100),
		},
		Redis: RedisConfig{
			Addr:     getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
			Username: getConfigValue("", "REDIS_USERNAME", ""),
			Password: getConfigValue("", "REDIS_PASSWORD", ""),
			DB:       getIntConfigValue("", "REDIS_DB", 0),
			Prefix:   getConfigValue("", "REDIS_PREFIX", "novel-audio:"),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Backend.Timeout, *backendTimeout, "BACKEND_TIMEOUT", "30s"},
		{&cfg.Backend.EnvelopeTTL, "", "BACKEND_ENVELOPE_TTL", "2m"},
		{&cfg.Player.ProgressInterval, "", "PLAYER_PROGRESS_INTERVAL", "30s"},
		{&cfg.Redis.TTL, "", "REDIS_TTL", "0s"},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flag, d.envKey, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if len(c.Backend.SharedSecret) < minSharedSecret {
		return fmt.Errorf("BACKEND_SHARED_SECRET must be at least %d characters", minSharedSecret)
	}
	if c.Backend.TextURL == "" || c.Backend.SpeechURL == "" {
		return errors.New("BACKEND_TEXT_URL and BACKEND_SPEECH_URL are required")
	}
	if c.Backend.Timeout <= 0 || c.Backend.EnvelopeTTL <= 0 {
		return errors.New("backend timeout and envelope TTL must be positive")
	}
	if c.Backend.RequestsPerSecond < 0 {
		return errors.New("backend requests per second cannot be negative")
	}

	if c.Player.MaxSegmentChars <= 0 || c.Player.MinSentenceChars <= 0 {
		return errors.New("segment budgets must be positive")
	}
	if c.Player.SkipSeconds <= 0 {
		return errors.New("skip interval must be positive")
	}
	if c.Player.ProgressInterval <= 0 {
		return errors.New("progress interval must be positive")
	}
	if c.Player.DefaultRate <= 0 {
		return errors.New("default playback rate must be positive")
	}

	switch c.Storage.Backend {
	case StorageBadger, StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("data path cannot be empty after expansion")
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be badger, sqlite, or redis)", c.Storage.Backend)
	}
	if c.Storage.HistoryLimit <= 0 {
		return errors.New("history limit must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "NovelAudio", "data")

	expanded, err := expandPath(c.Storage.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Variables already present in the environment are not overwritten.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
