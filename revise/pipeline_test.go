package revise

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"video2doc/config"
	"video2doc/models"
	"video2doc/repository"
)

// fakeInvoker wraps the per-call behavior and tracks the concurrency
// high-water mark.
type fakeInvoker struct {
	fn        func(index int, prompt string) (string, error)
	inFlight  int64
	highWater int64
	calls     int64
}

func (f *fakeInvoker) Invoke(ctx context.Context, modelID, system, prompt string) (string, error) {
	cur := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		high := atomic.LoadInt64(&f.highWater)
		if cur <= high || atomic.CompareAndSwapInt64(&f.highWater, high, cur) {
			break
		}
	}
	atomic.AddInt64(&f.calls, 1)

	index := segmentIndexFromPrompt(prompt)
	return f.fn(index, prompt)
}

// Test prompts embed the segment text "segment-N", so the fake can
// recover the index.
func segmentIndexFromPrompt(prompt string) int {
	var index int
	for i := 0; i < 10000; i++ {
		if strings.Contains(prompt, fmt.Sprintf("segment-%d\n", i)) {
			index = i
			break
		}
	}
	return index
}

func makeSegments(n int) []models.TranscriptSegment {
	segments := make([]models.TranscriptSegment, n)
	for i := range segments {
		segments[i] = models.TranscriptSegment{
			Index: i,
			Start: time.Duration(i) * time.Second,
			End:   time.Duration(i+1) * time.Second,
			Text:  fmt.Sprintf("segment-%d", i),
		}
	}
	return segments
}

func testReviseConfig(workers int) config.ReviseConfig {
	return config.ReviseConfig{
		MaxWorkers:        workers,
		ModelID:           "test-model",
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		RequestsPerSecond: 100000,
		MaxTokens:         4000,
	}
}

func okResult(text string) string {
	return "<result>" + text + "</result>"
}

func TestReviseKeepsCanonicalOrder(t *testing.T) {
	const n = 50
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		// Random latency makes completion order non-deterministic.
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		return okResult(fmt.Sprintf("revised-%d", index)), nil
	}}

	p := NewPipeline(testReviseConfig(8), invoker, nil)
	revised, err := p.Revise(context.Background(), makeSegments(n), "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(revised) != n {
		t.Fatalf("expected %d segments, got %d", n, len(revised))
	}
	for i, seg := range revised {
		if seg.Index != i {
			t.Errorf("position %d holds index %d", i, seg.Index)
		}
		if seg.Status != models.RevisionOK {
			t.Errorf("segment %d unexpectedly failed: %s", i, seg.Error)
		}
		if want := fmt.Sprintf("revised-%d", i); seg.Text != want {
			t.Errorf("segment %d: expected %q, got %q", i, want, seg.Text)
		}
	}
}

func TestReviseBoundsConcurrency(t *testing.T) {
	const workers = 3
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		time.Sleep(2 * time.Millisecond)
		return okResult("ok"), nil
	}}

	p := NewPipeline(testReviseConfig(workers), invoker, nil)
	if _, err := p.Revise(context.Background(), makeSegments(40), "en", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if high := atomic.LoadInt64(&invoker.highWater); high > workers {
		t.Errorf("observed %d concurrent calls, pool size is %d", high, workers)
	}
}

func TestRevisePartialFailureContainment(t *testing.T) {
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		if index == 1 {
			return "", fmt.Errorf("content policy rejection")
		}
		return okResult(fmt.Sprintf("revised-%d", index)), nil
	}}

	p := NewPipeline(testReviseConfig(2), invoker, nil)
	revised, err := p.Revise(context.Background(), makeSegments(3), "en", "fr")
	if err != nil {
		t.Fatalf("one segment's failure must not abort the run: %v", err)
	}

	if len(revised) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(revised))
	}
	if revised[1].Status != models.RevisionFailed {
		t.Error("expected segment 1 to be marked failed")
	}
	if revised[1].Error == "" {
		t.Error("expected failure to carry its error record")
	}
	if revised[0].Status != models.RevisionOK || revised[2].Status != models.RevisionOK {
		t.Error("expected surrounding segments to succeed")
	}
}

func TestReviseRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	attempts := map[int]int{}

	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		mu.Lock()
		attempts[index]++
		n := attempts[index]
		mu.Unlock()
		if n < 3 {
			return "", &TransientError{Err: fmt.Errorf("throttled")}
		}
		return okResult("ok"), nil
	}}

	p := NewPipeline(testReviseConfig(2), invoker, nil)
	revised, err := p.Revise(context.Background(), makeSegments(2), "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, seg := range revised {
		if seg.Status != models.RevisionOK {
			t.Errorf("segment %d should have succeeded after retries", i)
		}
	}
}

func TestReviseTransientExhaustionMarksFailure(t *testing.T) {
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		return "", &TransientError{Err: fmt.Errorf("throttled")}
	}}

	p := NewPipeline(testReviseConfig(1), invoker, nil)
	revised, err := p.Revise(context.Background(), makeSegments(1), "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revised[0].Status != models.RevisionFailed {
		t.Error("expected failure after retry exhaustion")
	}
	if got := atomic.LoadInt64(&invoker.calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestReviseEmptyTranscript(t *testing.T) {
	p := NewPipeline(testReviseConfig(2), &fakeInvoker{}, nil)
	if _, err := p.Revise(context.Background(), nil, "en", "fr"); err == nil {
		t.Error("expected error for empty transcript")
	}
}

type fakeCache struct {
	mu      sync.Mutex
	records map[string]*repository.RevisionRecord
	finds   int
	saves   int
}

func cacheKey(transcriptID string, index int, modelID string) string {
	return fmt.Sprintf("%s/%d/%s", transcriptID, index, modelID)
}

func (f *fakeCache) Find(ctx context.Context, transcriptID string, index int, modelID string) (*repository.RevisionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	return f.records[cacheKey(transcriptID, index, modelID)], nil
}

func (f *fakeCache) Save(ctx context.Context, rec *repository.RevisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.records[cacheKey(rec.TranscriptID, rec.SegmentIndex, rec.ModelID)] = rec
	return nil
}

func TestReviseUsesCacheAcrossRuns(t *testing.T) {
	cache := &fakeCache{records: map[string]*repository.RevisionRecord{}}
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		return okResult(fmt.Sprintf("revised-%d", index)), nil
	}}

	p := NewPipeline(testReviseConfig(2), invoker, cache)
	segments := makeSegments(4)

	if _, err := p.Revise(context.Background(), segments, "en", "fr"); err != nil {
		t.Fatal(err)
	}
	firstCalls := atomic.LoadInt64(&invoker.calls)
	if firstCalls != 4 {
		t.Fatalf("expected 4 model calls, got %d", firstCalls)
	}

	revised, err := p.Revise(context.Background(), segments, "en", "fr")
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt64(&invoker.calls) != firstCalls {
		t.Error("expected second run to be served from the cache")
	}
	for i, seg := range revised {
		if seg.Status != models.RevisionOK || seg.Text != fmt.Sprintf("revised-%d", i) {
			t.Errorf("cached segment %d mismatch: %+v", i, seg)
		}
	}
}

func TestReviseFailedSegmentsAreNotCached(t *testing.T) {
	cache := &fakeCache{records: map[string]*repository.RevisionRecord{}}
	invoker := &fakeInvoker{fn: func(index int, prompt string) (string, error) {
		return "", fmt.Errorf("rejected")
	}}

	p := NewPipeline(testReviseConfig(1), invoker, cache)
	if _, err := p.Revise(context.Background(), makeSegments(1), "en", "fr"); err != nil {
		t.Fatal(err)
	}
	if cache.saves != 0 {
		t.Errorf("failed revisions must not be cached, saw %d saves", cache.saves)
	}
}
