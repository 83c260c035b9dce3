package revise

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"video2doc/config"
	"video2doc/errors"
	"video2doc/language"
	"video2doc/models"
	"video2doc/repository"
	"video2doc/retry"
)

// Pipeline fans a transcript out across a fixed pool of workers, each
// revising/translating one segment per remote model call, and collects the
// results in canonical index order. A single segment's permanent failure
// never aborts the run; it is recorded on its RevisedSegment instead.
type Pipeline struct {
	cfg     config.ReviseConfig
	invoker Invoker
	cache   repository.RevisionRepository // nil disables caching
	limiter *rate.Limiter
	policy  retry.Policy
}

func NewPipeline(cfg config.ReviseConfig, invoker Invoker, cache repository.RevisionRepository) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		invoker: invoker,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		policy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.InitialBackoff,
			MaxDelay:    cfg.MaxBackoff,
			Multiplier:  2.0,
		},
	}
}

// Revise processes every segment and returns exactly one RevisedSegment
// per input index, sorted by index. Completion order across workers is
// non-deterministic; ordering is restored by the index-addressed results
// slice, never by relying on completion order.
func (p *Pipeline) Revise(ctx context.Context, segments []models.TranscriptSegment, sourceLang, targetLang string) ([]models.RevisedSegment, error) {
	const op = "RevisionPipeline.Revise"

	if len(segments) == 0 {
		return nil, errors.Revision(op, nil, "transcript contains no segments")
	}

	transcriptID := fingerprint(segments)
	translate := language.ShouldTranslate(sourceLang, targetLang)

	workers := p.cfg.MaxWorkers
	if workers > len(segments) {
		workers = len(segments)
	}

	logrus.WithFields(logrus.Fields{
		"segments":  len(segments),
		"workers":   workers,
		"model_id":  p.cfg.ModelID,
		"translate": translate,
	}).Info("Starting segment revision")

	jobs := make(chan models.TranscriptSegment)
	results := make([]models.RevisedSegment, len(segments))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for seg := range jobs {
				// Each index is written by exactly one worker, so the
				// results slice needs no further coordination.
				results[seg.Index] = p.reviseOne(ctx, workerID, transcriptID, seg, sourceLang, targetLang, translate)
			}
		}(i)
	}

	for _, seg := range segments {
		jobs <- seg
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Revision(op, err, "revision cancelled")
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logrus.WithFields(logrus.Fields{
		"segments": len(results),
		"failed":   failed,
	}).Info("Segment revision finished")

	return results, nil
}

func (p *Pipeline) reviseOne(ctx context.Context, workerID int, transcriptID string, seg models.TranscriptSegment, sourceLang, targetLang string, translate bool) models.RevisedSegment {
	logger := logrus.WithFields(logrus.Fields{
		"worker":  workerID,
		"segment": seg.Index,
	})

	if cached := p.fromCache(ctx, transcriptID, seg.Index); cached != "" {
		logger.Debug("Using cached revision")
		return models.RevisedSegment{Index: seg.Index, Text: cached, Status: models.RevisionOK}
	}

	srcName := languageName(sourceLang)
	tgtName := languageName(targetLang)
	prompt := buildPrompt(seg.Text, srcName, tgtName, translate)

	var text string
	err := p.policy.Do(ctx, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		response, err := p.invoker.Invoke(ctx, p.cfg.ModelID, systemPrompt, prompt)
		if err != nil {
			return err
		}
		text, err = ExtractResult(response)
		return err
	}, isTransient)
	if err != nil {
		logger.WithError(err).Warn("Segment revision failed permanently")
		return models.RevisedSegment{
			Index:  seg.Index,
			Status: models.RevisionFailed,
			Error:  err.Error(),
		}
	}

	p.toCache(ctx, transcriptID, seg.Index, text)
	logger.Debug("Segment revised")
	return models.RevisedSegment{Index: seg.Index, Text: text, Status: models.RevisionOK}
}

func (p *Pipeline) fromCache(ctx context.Context, transcriptID string, index int) string {
	if p.cache == nil {
		return ""
	}
	rec, err := p.cache.Find(ctx, transcriptID, index, p.cfg.ModelID)
	if err != nil {
		logrus.WithError(err).WithField("segment", index).Warn("Revision cache lookup failed")
		return ""
	}
	if rec == nil {
		return ""
	}
	return rec.Text
}

func (p *Pipeline) toCache(ctx context.Context, transcriptID string, index int, text string) {
	if p.cache == nil {
		return
	}
	rec := &repository.RevisionRecord{
		TranscriptID: transcriptID,
		SegmentIndex: index,
		ModelID:      p.cfg.ModelID,
		Text:         text,
	}
	if err := p.cache.Save(ctx, rec); err != nil {
		// Cache writes are best-effort; the revision itself succeeded.
		logrus.WithError(err).WithField("segment", index).Warn("Revision cache write failed")
	}
}

func isTransient(err error) bool {
	var transient *TransientError
	return pkgerrors.As(err, &transient)
}

func languageName(code string) string {
	if name, err := language.Name(code); err == nil {
		return name
	}
	return code
}

// fingerprint identifies a transcript by its segment texts, so cache
// entries survive re-runs of the same input but never leak across inputs.
func fingerprint(segments []models.TranscriptSegment) string {
	h := sha256.New()
	for _, seg := range segments {
		h.Write([]byte(seg.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
