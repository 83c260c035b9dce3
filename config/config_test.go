package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	os.Setenv("OUTPUT_FORMAT", "markdown")
	os.Setenv("REVISE_MAX_WORKERS", "8")
	os.Setenv("REVISE_MODEL_ID", "test-model")
	os.Setenv("TRANSCRIBE_POLL_INTERVAL", "2s")
	os.Setenv("TRANSCRIBE_TIMEOUT", "10m")
	defer clearTestEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Bucket != "test-bucket" {
		t.Errorf("expected test-bucket, got %s", cfg.Storage.Bucket)
	}
	if cfg.OutputFormat != "markdown" {
		t.Errorf("expected markdown, got %s", cfg.OutputFormat)
	}
	if cfg.Revise.MaxWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Revise.MaxWorkers)
	}
	if cfg.Revise.ModelID != "test-model" {
		t.Errorf("expected test-model, got %s", cfg.Revise.ModelID)
	}
	if cfg.Transcribe.PollInterval != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %s", cfg.Transcribe.PollInterval)
	}
	if cfg.Transcribe.Timeout != 10*time.Minute {
		t.Errorf("expected 10m timeout, got %s", cfg.Transcribe.Timeout)
	}
}

func TestLoadParsesLanguageOptions(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	os.Setenv("TRANSCRIBE_LANGUAGE_OPTIONS", "en-US,ja-JP")
	defer clearTestEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"en-US", "ja-JP"}
	if len(cfg.Transcribe.LanguageOptions) != 2 ||
		cfg.Transcribe.LanguageOptions[0] != want[0] ||
		cfg.Transcribe.LanguageOptions[1] != want[1] {
		t.Errorf("expected %v, got %v", want, cfg.Transcribe.LanguageOptions)
	}
}

func TestLoadDefaults(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	defer clearTestEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OutputFormat != "pdf" {
		t.Errorf("expected default format pdf, got %s", cfg.OutputFormat)
	}
	if cfg.Revise.MaxWorkers != 4 {
		t.Errorf("expected default 4 workers, got %d", cfg.Revise.MaxWorkers)
	}
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled by default")
	}
	if cfg.Cache.Path == "" {
		t.Error("expected a default cache path to be derived")
	}
}

func TestLoadRejectsMissingBucket(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	defer clearTestEnv()

	if _, err := Load(); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	os.Setenv("OUTPUT_FORMAT", "docx")
	defer clearTestEnv()

	if _, err := Load(); err == nil {
		t.Error("expected error for unsupported output format")
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	os.Setenv("REVISE_MAX_WORKERS", "0")
	defer clearTestEnv()

	if _, err := Load(); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestValidateRejectsZeroRetries(t *testing.T) {
	os.Setenv("OUTPUT_DIR", t.TempDir())
	os.Setenv("LOG_DIR", t.TempDir())
	os.Setenv("TEMP_DIR", t.TempDir())
	os.Setenv("TRANSCRIBE_S3_BUCKET", "test-bucket")
	os.Setenv("REVISE_MAX_RETRIES", "0")
	defer clearTestEnv()

	if _, err := Load(); err == nil {
		t.Error("expected error for zero retries")
	}
}

func clearTestEnv() {
	for _, key := range []string{
		"OUTPUT_DIR", "LOG_DIR", "TEMP_DIR", "TRANSCRIBE_S3_BUCKET",
		"OUTPUT_FORMAT", "REVISE_MAX_WORKERS", "REVISE_MODEL_ID",
		"REVISE_MAX_RETRIES", "TRANSCRIBE_POLL_INTERVAL", "TRANSCRIBE_TIMEOUT",
		"TRANSCRIBE_LANGUAGE_OPTIONS", "ORGANIZE_ENABLED",
		"ORGANIZE_SUMMARY_MODEL_ID", "ORGANIZE_CHAPTERS_MODEL_ID",
	} {
		os.Unsetenv(key)
	}
}
