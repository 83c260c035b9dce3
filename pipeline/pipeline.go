package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/document"
	"video2doc/language"
	"video2doc/models"
	"video2doc/storage"
)

// Extractor pulls the audio track out of a source video.
type Extractor interface {
	Extract(ctx context.Context, video models.SourceVideo, tmpDir string) (string, error)
}

// Transcriber manages the remote transcription job lifecycle.
type Transcriber interface {
	Submit(ctx context.Context, staged *storage.StagedObject, languageHint string) (*models.TranscriptionJob, error)
	AwaitCompletion(ctx context.Context, job *models.TranscriptionJob) ([]models.TranscriptSegment, string, error)
}

// Revisor revises/translates a full transcript segment set.
type Revisor interface {
	Revise(ctx context.Context, segments []models.TranscriptSegment, sourceLang, targetLang string) ([]models.RevisedSegment, error)
}

// Organizer enriches an assembled document with a summary and chapters.
type Organizer interface {
	Organize(ctx context.Context, doc *models.Document) error
}

// Renderer serializes the assembled document.
type Renderer interface {
	Render(ctx context.Context, doc *models.Document, outDir string) (string, error)
}

// Result reports what a completed run produced.
type Result struct {
	ProjectDir   string
	ArtifactPath string
	Document     *models.Document
}

// Pipeline runs the stages in order: extract, stage, transcribe, revise,
// assemble, organize, render. The staged audio object is released as soon as the
// transcription job finishes, success or failure, independent of the
// downstream stages.
type Pipeline struct {
	cfg         *config.Config
	extractor   Extractor
	staging     *storage.Lifecycle
	transcriber Transcriber
	revisor     Revisor
	assembler   *document.Assembler
	organizer   Organizer // nil skips the organization stage
	renderer    Renderer
}

func New(
	cfg *config.Config,
	extractor Extractor,
	staging *storage.Lifecycle,
	transcriber Transcriber,
	revisor Revisor,
	assembler *document.Assembler,
	organizer Organizer,
	renderer Renderer,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		extractor:   extractor,
		staging:     staging,
		transcriber: transcriber,
		revisor:     revisor,
		assembler:   assembler,
		organizer:   organizer,
		renderer:    renderer,
	}
}

func (p *Pipeline) Run(ctx context.Context, video models.SourceVideo) (*Result, error) {
	runID := uuid.New().String()[:8]
	logger := logrus.WithFields(logrus.Fields{
		"run_id": runID,
		"video":  video.Path,
	})
	logger.Info("Starting pipeline run")
	startTime := time.Now()

	projectDir, err := p.createProjectDir(video)
	if err != nil {
		return nil, err
	}

	// Stage 1: extract the audio artifact. It is owned by this run and
	// removed once staged.
	audioPath, err := p.extractor.Extract(ctx, video, p.cfg.TempDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioPath)

	// Stage 2: hand the artifact to temporary remote storage. The deferred
	// release pairs with the explicit one below; Release is idempotent, so
	// the object is deleted exactly once on every exit path.
	key := fmt.Sprintf("audio/%s/%s", runID, filepath.Base(audioPath))
	staged, err := p.staging.Stage(ctx, audioPath, key)
	if err != nil {
		return nil, err
	}
	defer p.staging.Release(staged)

	// Stage 3: transcription job lifecycle.
	job, err := p.transcriber.Submit(ctx, staged, p.cfg.Transcribe.LanguageHint)
	if err != nil {
		p.staging.Release(staged)
		return nil, err
	}

	segments, detectedLang, err := p.transcriber.AwaitCompletion(ctx, job)

	// The staged object has served its purpose once the job is terminal
	// (or abandoned); downstream stages never touch it.
	p.staging.Release(staged)

	if err != nil {
		return nil, err
	}

	sourceLang := resolveSourceLanguage(detectedLang, video.TargetLanguage, logger)

	// Stage 4: concurrent revision/translation.
	revised, err := p.revisor.Revise(ctx, segments, sourceLang, video.TargetLanguage)
	if err != nil {
		return nil, err
	}

	// Stage 5: deterministic assembly.
	doc, err := p.assembler.Assemble(document.Meta{
		Title:          video.Title,
		SourceURI:      video.Path,
		SourceLanguage: sourceLang,
		TargetLanguage: video.TargetLanguage,
	}, revised)
	if err != nil {
		return nil, err
	}

	// Stage 6: summary and chapter structure, when enabled.
	if p.organizer != nil {
		if err := p.organizer.Organize(ctx, doc); err != nil {
			return nil, err
		}
	}

	// Stage 7: rendering.
	artifact, err := p.renderer.Render(ctx, doc, projectDir)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"artifact":        artifact,
		"segments":        len(doc.Segments),
		"failed_segments": doc.FailedCount(),
		"elapsed":         time.Since(startTime).Round(time.Second),
	}).Info("Pipeline run completed")

	return &Result{
		ProjectDir:   projectDir,
		ArtifactPath: artifact,
		Document:     doc,
	}, nil
}

// createProjectDir builds the per-run output folder,
// <yyyymmddhhmm>-<video stem> under the configured output dir.
func (p *Pipeline) createProjectDir(video models.SourceVideo) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(video.Path), filepath.Ext(video.Path))
	if len(stem) > 16 {
		stem = stem[:16]
	}
	name := fmt.Sprintf("%s-%s", time.Now().Format("200601021504"), stem)
	dir := filepath.Join(p.cfg.OutputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project folder: %w", err)
	}
	return dir, nil
}

// resolveSourceLanguage maps the service-reported locale to an internal
// code. When detection reports nothing usable, the target language is
// assumed, which turns the revision stage into revise-only.
func resolveSourceLanguage(detected, target string, logger *logrus.Entry) string {
	if detected == "" {
		logger.Warn("Transcription reported no language; revising without translation")
		return target
	}
	code, err := language.FromTranscribeCode(detected)
	if err != nil {
		logger.WithError(err).Warn("Unsupported detected language; revising without translation")
		return target
	}
	logger.WithField("source_language", code).Info("Detected source language")
	return code
}
