package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Application paths
	OutputDir string `json:"output_dir"`
	LogDir    string `json:"log_dir"`
	TempDir   string `json:"temp_dir"`

	// Output settings
	OutputFormat string `json:"output_format"`

	Debug bool `json:"debug"`

	Media      MediaConfig      `json:"media"`
	Storage    StorageConfig    `json:"storage"`
	Transcribe TranscribeConfig `json:"transcribe"`
	Revise     ReviseConfig     `json:"revise"`
	Organize   OrganizeConfig   `json:"organize"`
	Render     RenderConfig     `json:"render"`
	Cache      CacheConfig      `json:"cache"`
}

type MediaConfig struct {
	FFmpegPath string `json:"ffmpeg_path"`
	SampleRate int    `json:"sample_rate"`
}

type StorageConfig struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
}

type TranscribeConfig struct {
	// LanguageHint pins the job to one locale; LanguageOptions narrows
	// automatic identification to a candidate set when no hint is given.
	LanguageHint    string        `json:"language_hint"`
	LanguageOptions []string      `json:"language_options"`
	PollInterval    time.Duration `json:"poll_interval"`
	Timeout         time.Duration `json:"timeout"`
}

type ReviseConfig struct {
	MaxWorkers        int           `json:"max_workers"`
	ModelID           string        `json:"model_id"`
	MaxRetries        int           `json:"max_retries"`
	InitialBackoff    time.Duration `json:"initial_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	MaxTokens         int           `json:"max_tokens"`
}

type OrganizeConfig struct {
	Enabled         bool   `json:"enabled"`
	SummaryModelID  string `json:"summary_model_id"`
	ChaptersModelID string `json:"chapters_model_id"`
	MaxTokens       int    `json:"max_tokens"`
}

type RenderConfig struct {
	EnginePath string        `json:"engine_path"`
	Timeout    time.Duration `json:"timeout"`
}

type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load reads configuration from environment variables. The returned Config
// is read-only for the duration of a run.
func Load() (*Config, error) {
	cfg := &Config{
		OutputDir: getEnv("OUTPUT_DIR", "./output"),
		LogDir:    getEnv("LOG_DIR", "./logs"),
		TempDir:   getEnv("TEMP_DIR", os.TempDir()),

		OutputFormat: getEnv("OUTPUT_FORMAT", "pdf"),
		Debug:        getEnvAsBool("DEBUG", false),

		Media: MediaConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
			SampleRate: getEnvAsInt("AUDIO_SAMPLE_RATE", 16000),
		},

		Storage: StorageConfig{
			Bucket:    getEnv("TRANSCRIBE_S3_BUCKET", ""),
			Region:    getEnv("AWS_REGION", "us-west-2"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},

		Transcribe: TranscribeConfig{
			LanguageHint:    getEnv("TRANSCRIBE_LANGUAGE_HINT", ""),
			LanguageOptions: getEnvAsStringSlice("TRANSCRIBE_LANGUAGE_OPTIONS", nil),
			PollInterval:    getEnvAsDuration("TRANSCRIBE_POLL_INTERVAL", 5*time.Second),
			Timeout:         getEnvAsDuration("TRANSCRIBE_TIMEOUT", 30*time.Minute),
		},

		// Revision stage; env names map the original dotted config keys
		// (transcript_revisor.revise.max_workers, .model_id).
		Revise: ReviseConfig{
			MaxWorkers:        getEnvAsInt("REVISE_MAX_WORKERS", 4),
			ModelID:           getEnv("REVISE_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
			MaxRetries:        getEnvAsInt("REVISE_MAX_RETRIES", 3),
			InitialBackoff:    getEnvAsDuration("REVISE_INITIAL_BACKOFF", 2*time.Second),
			MaxBackoff:        getEnvAsDuration("REVISE_MAX_BACKOFF", 30*time.Second),
			RequestsPerSecond: getEnvAsFloat("REVISE_REQUESTS_PER_SECOND", 2.0),
			MaxTokens:         getEnvAsInt("REVISE_MAX_TOKENS", 4000),
		},

		// Organization stage; env names map the original dotted config keys
		// (processors.content_organizer.summary.model_id, .chapters.model_id).
		Organize: OrganizeConfig{
			Enabled:         getEnvAsBool("ORGANIZE_ENABLED", true),
			SummaryModelID:  getEnv("ORGANIZE_SUMMARY_MODEL_ID", ""),
			ChaptersModelID: getEnv("ORGANIZE_CHAPTERS_MODEL_ID", ""),
			MaxTokens:       getEnvAsInt("ORGANIZE_MAX_TOKENS", 4000),
		},

		Render: RenderConfig{
			EnginePath: getEnv("RENDER_ENGINE_PATH", "wkhtmltopdf"),
			Timeout:    getEnvAsDuration("RENDER_TIMEOUT", 2*time.Minute),
		},

		Cache: CacheConfig{
			Enabled: getEnvAsBool("REVISION_CACHE_ENABLED", true),
			Path:    getEnv("REVISION_CACHE_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	switch c.OutputFormat {
	case "pdf", "markdown":
	default:
		return fmt.Errorf("unsupported output format: %s", c.OutputFormat)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("TRANSCRIBE_S3_BUCKET is required")
	}

	if c.Revise.MaxWorkers <= 0 {
		return fmt.Errorf("revise worker count must be positive")
	}
	if c.Revise.MaxRetries <= 0 {
		return fmt.Errorf("revise retry count must be positive")
	}
	if c.Revise.ModelID == "" {
		return fmt.Errorf("revise model id must not be empty")
	}
	if c.Revise.RequestsPerSecond <= 0 {
		return fmt.Errorf("revise request rate must be positive")
	}

	// Organization models default to the revision model.
	if c.Organize.SummaryModelID == "" {
		c.Organize.SummaryModelID = c.Revise.ModelID
	}
	if c.Organize.ChaptersModelID == "" {
		c.Organize.ChaptersModelID = c.Revise.ModelID
	}

	if c.Transcribe.PollInterval <= 0 {
		return fmt.Errorf("transcribe poll interval must be positive")
	}
	if c.Transcribe.Timeout <= c.Transcribe.PollInterval {
		return fmt.Errorf("transcribe timeout must exceed the poll interval")
	}

	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.OutputDir, "output directory"},
		{c.LogDir, "log directory"},
		{c.TempDir, "temp directory"},
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.OutputDir, "revision-cache.db")
	}

	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}
