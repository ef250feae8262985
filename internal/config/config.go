package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the videoarena server.
type Config struct {
	Server Server
	Jobs   Jobs
	Video  Video
	Redis  Redis
	AI     AI
}

type Server struct {
	Port int
	Env  string
}

type Jobs struct {
	DBPath        string
	RetentionDays int
}

type Video struct {
	UploadDir     string
	MaxUploadSize int64
}

type Redis struct {
	URL string // optional; empty disables the cache
}

type AI struct {
	Provider       string
	RequestTimeout time.Duration
	JudgeModel     string
	Gemini         Gemini
}

type Gemini struct {
	APIKey  string
	BaseURL string
}

var validProviders = map[string]bool{
	"gemini": true,
	"mock":   true,
}

// SupportedModels maps the model names exposed by the API to the backend
// model identifiers sent to the provider. Comparison requests may select any
// subset; an empty selection means all of them.
func SupportedModels() map[string]string {
	return map[string]string{
		"gemini-3-pro-preview":   "gemini-3-pro-preview",
		"gemini-3-flash-preview": "gemini-3-flash-preview",
		"gemini-2.5-flash":       "gemini-2.5-flash",
		"gemini-2.5-pro":         "gemini-2.5-pro",
	}
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Port: envInt("ARENA_PORT", 8080),
			Env:  envString("ARENA_ENV", "development"),
		},
		Jobs: Jobs{
			DBPath:        envString("ARENA_JOBS_DB", "./jobs.db"),
			RetentionDays: envInt("ARENA_RETENTION_DAYS", 0),
		},
		Video: Video{
			UploadDir:     envString("ARENA_UPLOAD_DIR", "./uploads"),
			MaxUploadSize: int64(envInt("ARENA_MAX_UPLOAD_MB", 500)) * 1024 * 1024,
		},
		Redis: Redis{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AI{
			Provider:       envString("AI_PROVIDER", "gemini"),
			RequestTimeout: envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 600*time.Second),
			JudgeModel:     envString("ARENA_JUDGE_MODEL", "gemini-3-pro-preview"),
			Gemini: Gemini{
				APIKey:  os.Getenv("GEMINI_API_KEY"),
				BaseURL: envString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Jobs.DBPath == "" {
		return fmt.Errorf("ARENA_JOBS_DB is required")
	}
	if c.Jobs.RetentionDays < 0 {
		return fmt.Errorf("ARENA_RETENTION_DAYS must not be negative, got %d", c.Jobs.RetentionDays)
	}

	if c.Video.UploadDir == "" {
		return fmt.Errorf("ARENA_UPLOAD_DIR is required")
	}
	if c.Video.MaxUploadSize <= 0 {
		return fmt.Errorf("ARENA_MAX_UPLOAD_MB must be positive")
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}

	if _, ok := SupportedModels()[c.AI.JudgeModel]; !ok {
		return fmt.Errorf("ARENA_JUDGE_MODEL %q is not a supported model", c.AI.JudgeModel)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
