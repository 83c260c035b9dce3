package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"video2doc/repository"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache", "revisions.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestFindMissReturnsNil(t *testing.T) {
	repo := testRepository(t)

	rec, err := repo.Find(context.Background(), "abc123", 0, "test-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record on cache miss, got %+v", rec)
	}
}

func TestSaveAndFind(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	saved := &repository.RevisionRecord{
		TranscriptID: "abc123",
		SegmentIndex: 2,
		ModelID:      "test-model",
		Text:         "revised text",
	}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected Save to stamp CreatedAt")
	}

	found, err := repo.Find(ctx, "abc123", 2, "test-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil {
		t.Fatal("expected a record")
	}
	if found.Text != "revised text" || found.SegmentIndex != 2 {
		t.Errorf("unexpected record: %+v", found)
	}
}

func TestSaveUpserts(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	first := &repository.RevisionRecord{
		TranscriptID: "abc123",
		SegmentIndex: 0,
		ModelID:      "test-model",
		Text:         "first version",
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &repository.RevisionRecord{
		TranscriptID: "abc123",
		SegmentIndex: 0,
		ModelID:      "test-model",
		Text:         "second version",
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	found, err := repo.Find(ctx, "abc123", 0, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	if found.Text != "second version" {
		t.Errorf("expected upsert to replace text, got %q", found.Text)
	}
}

func TestRecordsAreScopedByModel(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, &repository.RevisionRecord{
		TranscriptID: "abc123",
		SegmentIndex: 0,
		ModelID:      "model-a",
		Text:         "from model a",
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := repo.Find(ctx, "abc123", 0, "model-b")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected miss for a different model, got %+v", rec)
	}
}
