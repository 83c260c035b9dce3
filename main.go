package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/document"
	"video2doc/errors"
	"video2doc/language"
	"video2doc/logger"
	"video2doc/media"
	"video2doc/models"
	"video2doc/organize"
	"video2doc/pipeline"
	"video2doc/repository"
	"video2doc/repository/sqlite"
	"video2doc/retry"
	"video2doc/revise"
	"video2doc/storage"
	"video2doc/transcribe"
)

func main() {
	if err := run(); err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "error in %s stage: %v\n", appErr.Stage, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	video, err := sourceVideoFromEnv()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.LogDir, cfg.Debug); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, video)
	if err != nil {
		return err
	}

	logrus.WithField("artifact", result.ArtifactPath).Info("Document ready")
	fmt.Println(result.ArtifactPath)
	return nil
}

// buildPipeline wires the real external collaborators. The returned
// cleanup closes the revision cache.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	store, err := storage.NewS3Store(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create object store: %w", err)
	}

	transcriber, err := transcribe.NewClient(cfg.Transcribe, cfg.Storage, store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transcription client: %w", err)
	}

	invoker, err := revise.NewBedrockInvoker(cfg.Revise, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	cleanup := func() {}
	var cache repository.RevisionRepository
	if cfg.Cache.Enabled {
		db, err := sqlite.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open revision cache: %w", err)
		}
		cache = sqlite.NewRepository(db)
		cleanup = func() { db.Close() }
	}

	var organizer pipeline.Organizer
	if cfg.Organize.Enabled {
		organizer = organize.NewOrganizer(cfg.Organize, invoker, retry.Policy{
			MaxAttempts: cfg.Revise.MaxRetries,
			BaseDelay:   cfg.Revise.InitialBackoff,
			MaxDelay:    cfg.Revise.MaxBackoff,
			Multiplier:  2.0,
		})
	}

	p := pipeline.New(
		cfg,
		media.NewExtractor(cfg.Media),
		storage.NewLifecycle(store),
		transcriber,
		revise.NewPipeline(cfg.Revise, invoker, cache),
		document.NewAssembler(),
		organizer,
		document.NewRenderer(cfg.Render, cfg.OutputFormat),
	)
	return p, cleanup, nil
}

func sourceVideoFromEnv() (models.SourceVideo, error) {
	video := models.SourceVideo{
		Path:           os.Getenv("VIDEO_PATH"),
		Title:          os.Getenv("VIDEO_TITLE"),
		TargetLanguage: os.Getenv("TARGET_LANGUAGE"),
	}

	var missing []string
	if video.Path == "" {
		missing = append(missing, "VIDEO_PATH")
	}
	if video.Title == "" {
		missing = append(missing, "VIDEO_TITLE")
	}
	if video.TargetLanguage == "" {
		missing = append(missing, "TARGET_LANGUAGE")
	}
	if len(missing) > 0 {
		return video, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if !language.Validate(video.TargetLanguage) {
		return video, fmt.Errorf("unsupported target language %q; supported: %s",
			video.TargetLanguage, strings.Join(language.Supported(), ", "))
	}

	return video, nil
}
