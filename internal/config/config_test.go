package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Backend: BackendConfig{
			TextURL:      "https://backend.test/chapter",
			SpeechURL:    "https://backend.test/speech",
			SharedSecret: "0123456789abcdef",
			Timeout:      30 * time.Second,
			EnvelopeTTL:  2 * time.Minute,
		},
		Player: PlayerConfig{
			MaxSegmentChars:  2000,
			MinSentenceChars: 30,
			SkipSeconds:      10,
			ProgressInterval: 30 * time.Second,
			DefaultRate:      1,
		},
		Storage: StorageConfig{
			Backend:      StorageBadger,
			Path:         "/some/path",
			HistoryLimit: 100,
		},
	}
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// setBackendEnv provides the values Validate requires.
func setBackendEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BACKEND_TEXT_URL", "https://backend.test/chapter")
	t.Setenv("BACKEND_SPEECH_URL", "https://backend.test/speech")
	t.Setenv("BACKEND_SHARED_SECRET", "a-long-enough-secret")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"short secret", func(c *Config) { c.Backend.SharedSecret = "short" }, "BACKEND_SHARED_SECRET"},
		{"missing text url", func(c *Config) { c.Backend.TextURL = "" }, "BACKEND_TEXT_URL"},
		{"zero segment budget", func(c *Config) { c.Player.MaxSegmentChars = 0 }, "segment budgets"},
		{"negative sentence budget", func(c *Config) { c.Player.MinSentenceChars = -1 }, "segment budgets"},
		{"zero skip", func(c *Config) { c.Player.SkipSeconds = 0 }, "skip interval"},
		{"zero progress interval", func(c *Config) { c.Player.ProgressInterval = 0 }, "progress interval"},
		{"zero rate", func(c *Config) { c.Player.DefaultRate = 0 }, "playback rate"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, "invalid storage backend"},
		{"empty data path", func(c *Config) { c.Storage.Path = "" }, "data path"},
		{"redis without addr", func(c *Config) { c.Storage.Backend = StorageRedis }, "REDIS_ADDR"},
		{"zero history limit", func(c *Config) { c.Storage.HistoryLimit = 0 }, "history limit"},
		{"negative rps", func(c *Config) { c.Backend.RequestsPerSecond = -1 }, "requests per second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBackendEnv(t)

	cfg, err := Load(newFlagSet(), []string{"-env-file", "/nonexistent/.env"})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2000, cfg.Player.MaxSegmentChars)
	assert.Equal(t, 30, cfg.Player.MinSentenceChars)
	assert.InDelta(t, 10, cfg.Player.SkipSeconds, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Player.ProgressInterval)
	assert.Equal(t, StorageBadger, cfg.Storage.Backend)
	assert.Equal(t, 100, cfg.Storage.HistoryLimit)
	assert.True(t, filepath.IsAbs(cfg.Storage.Path))
	assert.Equal(t, "novel-audio:", cfg.Redis.Prefix)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	setBackendEnv(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	cfg, err := Load(newFlagSet(), []string{
		"-env-file", "/nonexistent/.env",
		"-port", "9100",
		"-rate", "1.25",
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.InDelta(t, 1.25, cfg.Player.DefaultRate, 1e-9)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoad_CallerFlags(t *testing.T) {
	setBackendEnv(t)

	fs := newFlagSet()
	novel := fs.String("novel", "", "novel id")

	_, err := Load(fs, []string{"-env-file", "/nonexistent/.env", "-novel", "n42"})
	require.NoError(t, err)
	assert.Equal(t, "n42", *novel)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBackendEnv(t)
	t.Setenv("PLAYER_PROGRESS_INTERVAL", "soon")

	_, err := Load(newFlagSet(), []string{"-env-file", "/nonexistent/.env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLAYER_PROGRESS_INTERVAL")
}

func TestLoad_MissingSecret(t *testing.T) {
	setBackendEnv(t)
	t.Setenv("BACKEND_SHARED_SECRET", "")

	_, err := Load(newFlagSet(), []string{"-env-file", "/nonexistent/.env"})
	assert.Error(t, err)
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.expandDataPath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "NovelAudio", "data"), cfg.Storage.Path)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Path: "~/my-data"}}

	require.NoError(t, cfg.expandDataPath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Storage.Path)
}

func TestExpandDataPath_RelativePath(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Path: "relative/path"}}

	require.NoError(t, cfg.expandDataPath())

	// Should be converted to absolute path.
	assert.True(t, filepath.IsAbs(cfg.Storage.Path))
	assert.Contains(t, cfg.Storage.Path, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	t.Setenv("TEST_ENV_KEY", "env-value")
	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetNumericConfigValues(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_FLOAT", "1.5")
	t.Setenv("TEST_BAD", "many")

	assert.Equal(t, 42, getIntConfigValue("", "TEST_INT", 1))
	assert.Equal(t, 7, getIntConfigValue("7", "TEST_INT", 1))
	assert.Equal(t, 1, getIntConfigValue("", "TEST_BAD", 1))
	assert.InDelta(t, 1.5, getFloatConfigValue("", "TEST_FLOAT", 0), 1e-9)
	assert.InDelta(t, 2.0, getFloatConfigValue("", "TEST_BAD", 2), 1e-9)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug

# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// t.Setenv registers cleanup; unset so the file can supply them.
	for _, k := range []string{"ENV", "LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(k, "")
		os.Unsetenv(k) //nolint:errcheck // Test setup
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
