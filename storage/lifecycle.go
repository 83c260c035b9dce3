package storage

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"video2doc/errors"
)

// StagedObject is a handle to an artifact resident in temporary remote
// storage. Every StagedObject must be released exactly once; Release is
// idempotent so callers can pair it with defer on every exit path.
type StagedObject struct {
	Key string

	mu       sync.Mutex
	released bool
}

// Lifecycle stages artifacts in the object store and guarantees their
// removal once no longer needed, regardless of pipeline outcome.
type Lifecycle struct {
	store ObjectStore
}

func NewLifecycle(store ObjectStore) *Lifecycle {
	return &Lifecycle{store: store}
}

// Stage uploads the local artifact under key and returns its handle.
// Upload failure is fatal for the run.
func (l *Lifecycle) Stage(ctx context.Context, localPath, key string) (*StagedObject, error) {
	const op = "Lifecycle.Stage"

	f, err := os.Open(localPath)
	if err != nil {
		return nil, errors.Staging(op, err, "failed to open artifact for upload")
	}
	defer f.Close()

	logrus.WithFields(logrus.Fields{
		"artifact": localPath,
		"key":      key,
	}).Info("Staging artifact in temporary storage")

	if err := l.store.Put(ctx, key, f); err != nil {
		return nil, errors.Staging(op, err, "failed to upload artifact")
	}

	return &StagedObject{Key: key}, nil
}

// Release deletes the remote object. A delete failure is logged and
// reported, but treated as a leak rather than a run failure: blocking the
// pipeline on cleanup would be a worse outcome. Repeat calls are no-ops.
func (l *Lifecycle) Release(staged *StagedObject) error {
	const op = "Lifecycle.Release"

	if staged == nil {
		return nil
	}

	staged.mu.Lock()
	if staged.released {
		staged.mu.Unlock()
		return nil
	}
	staged.released = true
	staged.mu.Unlock()

	// Cleanup must proceed even when the run's context is already
	// cancelled, so it runs under its own context.
	if err := l.store.Delete(context.Background(), staged.Key); err != nil {
		logrus.WithError(err).WithField("key", staged.Key).
			Error("Failed to delete staged object; remote object leaked")
		return errors.Staging(op, err, "failed to delete staged object")
	}

	logrus.WithField("key", staged.Key).Info("Released staged object")
	return nil
}
