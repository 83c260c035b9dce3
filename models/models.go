package models

import (
	"time"
)

// SourceVideo is the caller-owned input to a pipeline run.
type SourceVideo struct {
	Path           string `json:"path"`
	Title          string `json:"title"`
	TargetLanguage string `json:"target_language"`
}

// JobStatus tracks the remote transcription job lifecycle. Transitions are
// driven only by polling the service; a terminal status never changes.
type JobStatus string

const (
	JobSubmitted JobStatus = "submitted"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// TranscriptionJob mirrors the state of one remote transcription job.
type TranscriptionJob struct {
	Name          string    `json:"name"`
	Status        JobStatus `json:"status"`
	OutputKey     string    `json:"output_key,omitempty"`
	LanguageCode  string    `json:"language_code,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// TranscriptSegment is one time-bounded unit of transcript text. Index
// defines canonical order; segments are immutable once produced.
type TranscriptSegment struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

type RevisionStatus string

const (
	RevisionOK     RevisionStatus = "ok"
	RevisionFailed RevisionStatus = "failed"
)

// RevisedSegment is produced exactly once per TranscriptSegment, in any
// completion order, always attributable back to its index.
type RevisedSegment struct {
	Index  int            `json:"index"`
	Text   string         `json:"text,omitempty"`
	Status RevisionStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

func (s RevisedSegment) Failed() bool { return s.Status == RevisionFailed }

// FailureMarker is what a failed segment renders as. It is stable across
// runs so assembling the same segment set yields identical output.
const FailureMarker = "[segment unavailable]"

// Chapter groups a run of consecutive segments under one heading.
// StartIndex and EndIndex are inclusive segment indices.
type Chapter struct {
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// Document is the ordered result of a run. The index set of Segments is
// exactly the index set of the original transcript: no duplication, no
// gaps, failed segments included with their error recorded. Summary and
// Chapters are optional enrichments; an empty value means the organization
// stage was disabled or could not produce them.
type Document struct {
	Title          string           `json:"title"`
	SourceURI      string           `json:"source_uri"`
	SourceLanguage string           `json:"source_language"`
	TargetLanguage string           `json:"target_language"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Summary        string           `json:"summary,omitempty"`
	Chapters       []Chapter        `json:"chapters,omitempty"`
	Segments       []RevisedSegment `json:"segments"`
}

// ChapterAt returns the chapter starting at the given segment index, if any.
func (d *Document) ChapterAt(index int) (Chapter, bool) {
	for _, ch := range d.Chapters {
		if ch.StartIndex == index {
			return ch, true
		}
	}
	return Chapter{}, false
}

// Paragraphs applies the marker policy: failed segments become the explicit
// failure marker rather than being dropped.
func (d *Document) Paragraphs() []string {
	out := make([]string, 0, len(d.Segments))
	for _, seg := range d.Segments {
		if seg.Failed() {
			out = append(out, FailureMarker)
			continue
		}
		out = append(out, seg.Text)
	}
	return out
}

// FailedCount reports how many segments carry a terminal revision failure.
func (d *Document) FailedCount() int {
	n := 0
	for _, seg := range d.Segments {
		if seg.Failed() {
			n++
		}
	}
	return n
}
