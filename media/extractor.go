package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/errors"
	"video2doc/models"
)

// Extractor pulls the audio track out of a source video with ffmpeg,
// producing a mono FLAC file the transcription service accepts.
type Extractor struct {
	cfg config.MediaConfig

	// RunFunc executes the external tool; replaceable in tests.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewExtractor(cfg config.MediaConfig) *Extractor {
	e := &Extractor{cfg: cfg}
	e.RunFunc = runCommand
	return e
}

// Extract writes the extracted audio into tmpDir and returns its path. The
// audio artifact is owned by the pipeline run and removed by the caller.
func (e *Extractor) Extract(ctx context.Context, video models.SourceVideo, tmpDir string) (string, error) {
	const op = "Extractor.Extract"

	if _, err := os.Stat(video.Path); err != nil {
		return "", errors.Extraction(op, err, "source video is not readable")
	}

	base := strings.TrimSuffix(filepath.Base(video.Path), filepath.Ext(video.Path))
	out := filepath.Join(tmpDir, base+"_audio.flac")

	logrus.WithFields(logrus.Fields{
		"video": video.Path,
		"audio": out,
	}).Info("Extracting audio track")

	// ffmpeg -y -i input -vn -ac 1 -ar 16000 -f flac output
	stderr, err := e.RunFunc(ctx, e.cfg.FFmpegPath,
		"-y", "-i", video.Path,
		"-vn", "-ac", "1",
		"-ar", strconv.Itoa(e.cfg.SampleRate),
		"-f", "flac",
		out,
	)
	if err != nil {
		logrus.WithError(err).WithField("stderr", string(stderr)).Error("ffmpeg failed")
		return "", errors.Extraction(op, err, "audio extraction failed")
	}

	info, err := os.Stat(out)
	if err != nil {
		return "", errors.Extraction(op, err, "extracted audio artifact is missing")
	}
	if info.Size() == 0 {
		os.Remove(out)
		return "", errors.Extraction(op, nil, "source contains no audio track")
	}

	return out, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
