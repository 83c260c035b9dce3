package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"video2doc/repository"
)

// Repository is the sqlite-backed revision cache.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Find(ctx context.Context, transcriptID string, index int, modelID string) (*repository.RevisionRecord, error) {
	const op = "SQLiteRepository.Find"

	rec := &repository.RevisionRecord{}
	err := r.db.statements.find.QueryRowContext(ctx, transcriptID, index, modelID).Scan(
		&rec.TranscriptID,
		&rec.SegmentIndex,
		&rec.ModelID,
		&rec.Text,
		&rec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (r *Repository) Save(ctx context.Context, rec *repository.RevisionRecord) error {
	const op = "SQLiteRepository.Save"

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	for i := 0; i < 3; i++ { // Simple retry on lock contention
		_, err := r.db.statements.save.ExecContext(ctx,
			rec.TranscriptID,
			rec.SegmentIndex,
			rec.ModelID,
			rec.Text,
			rec.CreatedAt,
		)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}

	return fmt.Errorf("%s: failed after retries", op)
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
