// Package organize enriches an assembled document with a generated summary
// and chapter structure. Both are best-effort: the document is complete and
// renderable without them, so organization failures are logged and absorbed
// rather than failing the run.
package organize

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/errors"
	"video2doc/models"
	"video2doc/retry"
	"video2doc/revise"
)

type Organizer struct {
	cfg     config.OrganizeConfig
	invoker revise.Invoker
	policy  retry.Policy
}

func NewOrganizer(cfg config.OrganizeConfig, invoker revise.Invoker, policy retry.Policy) *Organizer {
	return &Organizer{cfg: cfg, invoker: invoker, policy: policy}
}

// Organize fills in doc.Summary and doc.Chapters from the document's
// paragraph text. Only cancellation is an error; a model call that fails
// permanently leaves the corresponding field empty.
func (o *Organizer) Organize(ctx context.Context, doc *models.Document) error {
	const op = "Organizer.Organize"

	paragraphs := doc.Paragraphs()
	logrus.WithFields(logrus.Fields{
		"paragraphs":     len(paragraphs),
		"summary_model":  o.cfg.SummaryModelID,
		"chapters_model": o.cfg.ChaptersModelID,
	}).Info("Starting content organization")

	summary, err := o.generateSummary(ctx, doc, paragraphs)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Revision(op, ctx.Err(), "organization cancelled")
		}
		logrus.WithError(err).Warn("Summary generation failed; continuing without a summary")
	} else {
		doc.Summary = summary
	}

	chapters, err := o.generateChapters(ctx, doc, paragraphs)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Revision(op, ctx.Err(), "organization cancelled")
		}
		logrus.WithError(err).Warn("Chapter generation failed; continuing without chapters")
		return nil
	}
	doc.Chapters = chapters

	logrus.WithFields(logrus.Fields{
		"summary_chars": len(doc.Summary),
		"chapters":      len(doc.Chapters),
	}).Info("Content organization finished")
	return nil
}

func (o *Organizer) generateSummary(ctx context.Context, doc *models.Document, paragraphs []string) (string, error) {
	prompt := buildSummaryPrompt(paragraphs, doc.SourceLanguage, doc.TargetLanguage)

	var summary string
	err := o.policy.Do(ctx, func() error {
		response, err := o.invoker.Invoke(ctx, o.cfg.SummaryModelID, "", prompt)
		if err != nil {
			return err
		}
		summary, err = revise.ExtractResult(response)
		return err
	}, isTransient)
	return summary, err
}

func (o *Organizer) generateChapters(ctx context.Context, doc *models.Document, paragraphs []string) ([]models.Chapter, error) {
	prompt := buildChaptersPrompt(paragraphs, doc.TargetLanguage)

	var raw string
	err := o.policy.Do(ctx, func() error {
		response, err := o.invoker.Invoke(ctx, o.cfg.ChaptersModelID, "", prompt)
		if err != nil {
			return err
		}
		raw, err = revise.ExtractResult(response)
		return err
	}, isTransient)
	if err != nil {
		return nil, err
	}

	chapters, err := parseChapters(raw, len(paragraphs))
	if err != nil {
		// An unusable chapter layout is discarded, not fatal: the document
		// stays a flat sequence of paragraphs.
		logrus.WithError(err).Warn("Discarding unusable chapter structure")
		return nil, nil
	}
	return chapters, nil
}

// chapterSpec mirrors the model's JSON output; paragraph IDs are 1-based.
type chapterSpec struct {
	SegmentStartID int    `json:"segment_start_id"`
	SegmentEndID   int    `json:"segment_end_id"`
	Title          string `json:"title"`
}

// parseChapters converts the model's 1-based chapter list to 0-based
// segment indices and validates that the chapters tile the document: the
// first starts at the first paragraph, ranges are well-formed and
// consecutive, and the last ends at the final paragraph.
func parseChapters(raw string, paragraphCount int) ([]models.Chapter, error) {
	var specs []chapterSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, errInvalidChapters("empty chapter list")
	}

	chapters := make([]models.Chapter, 0, len(specs))
	next := 1
	for _, spec := range specs {
		if spec.SegmentStartID != next {
			return nil, errInvalidChapters("chapter ranges are not consecutive")
		}
		if spec.SegmentEndID < spec.SegmentStartID {
			return nil, errInvalidChapters("chapter range is inverted")
		}
		if spec.Title == "" {
			return nil, errInvalidChapters("chapter has no title")
		}
		chapters = append(chapters, models.Chapter{
			Title:      spec.Title,
			StartIndex: spec.SegmentStartID - 1,
			EndIndex:   spec.SegmentEndID - 1,
		})
		next = spec.SegmentEndID + 1
	}
	if next != paragraphCount+1 {
		return nil, errInvalidChapters("chapters do not cover the whole document")
	}

	return chapters, nil
}

type errInvalidChapters string

func (e errInvalidChapters) Error() string { return string(e) }

func isTransient(err error) bool {
	var transient *revise.TransientError
	return pkgerrors.As(err, &transient)
}
