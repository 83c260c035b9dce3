package repository

import (
	"context"
	"time"
)

// RevisionRecord is one cached revision result, keyed by the transcript
// fingerprint, the segment index, and the model that produced it.
type RevisionRecord struct {
	TranscriptID string
	SegmentIndex int
	ModelID      string
	Text         string
	CreatedAt    time.Time
}

// RevisionRepository caches successful revisions so an interrupted run can
// resume without repeating model calls. Find returns (nil, nil) on a miss.
type RevisionRepository interface {
	Find(ctx context.Context, transcriptID string, index int, modelID string) (*RevisionRecord, error)
	Save(ctx context.Context, rec *RevisionRecord) error
}
