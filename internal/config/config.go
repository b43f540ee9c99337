// Package config loads energyflow settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all energyflow settings
type Config struct {
	OutputDir      string
	ChartDir       string
	Format         string // png, svg, or empty to follow the file extension
	DPI            int    // 0 keeps each chart's own DPI
	FontPath       string
	FontDirs       []string
	BalanceEpsilon float64
	LogLevel       string
}

// Load reads envFile (a missing file is ignored) and then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		OutputDir:      getEnvWithDefault("ENERGYFLOW_OUTPUT_DIR", "."),
		ChartDir:       getEnvWithDefault("ENERGYFLOW_CHART_DIR", "charts"),
		Format:         strings.ToLower(getEnvWithDefault("ENERGYFLOW_FORMAT", "")),
		DPI:            getEnvAsInt("ENERGYFLOW_DPI", 0),
		FontPath:       getEnvWithDefault("ENERGYFLOW_FONT_PATH", ""),
		FontDirs:       getEnvAsPathList("ENERGYFLOW_FONT_DIRS", DefaultFontDirs()),
		BalanceEpsilon: getEnvAsFloat("ENERGYFLOW_BALANCE_EPSILON", 1e-3),
		LogLevel:       strings.ToLower(getEnvWithDefault("ENERGYFLOW_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Format {
	case "", "png", "svg":
	default:
		return fmt.Errorf("ENERGYFLOW_FORMAT must be png or svg, got %q", c.Format)
	}
	if c.DPI < 0 || c.DPI > 2400 {
		return fmt.Errorf("ENERGYFLOW_DPI must be between 0 and 2400, got %d", c.DPI)
	}
	if c.BalanceEpsilon <= 0 {
		return fmt.Errorf("ENERGYFLOW_BALANCE_EPSILON must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("ENERGYFLOW_LOG_LEVEL: %w", err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("ENERGYFLOW_OUTPUT_DIR must not be empty")
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel maps debug, info, warn and error onto slog levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// DefaultFontDirs lists ./fonts and the platform's usual font directories
func DefaultFontDirs() []string {
	dirs := []string{"fonts"}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		dirs = append(dirs, "/Library/Fonts", "/System/Library/Fonts")
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
	case "windows":
		dirs = append(dirs, filepath.Join(getEnvWithDefault("WINDIR", `C:\Windows`), "Fonts"))
	default:
		dirs = append(dirs, "/usr/share/fonts", "/usr/local/share/fonts")
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts"))
		}
	}
	return dirs
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsPathList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, p := range filepath.SplitList(valueStr) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
