package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video2doc/config"
	"video2doc/errors"
	"video2doc/models"
	"video2doc/retry"
	"video2doc/storage"
)

// jobRequest carries everything needed to create one remote job.
type jobRequest struct {
	Name            string
	MediaURI        string
	OutputKey       string
	LanguageHint    string
	LanguageOptions []string
}

// Client manages the lifecycle of an asynchronous transcription job:
// submit, poll until a terminal status, then fetch and parse the output.
// The remote API functions are fields so tests can run the state machine
// against fakes.
type Client struct {
	cfg    config.TranscribeConfig
	bucket string
	store  storage.ObjectStore

	StartJobFunc     func(ctx context.Context, req jobRequest) error
	GetJobFunc       func(ctx context.Context, name string) (*models.TranscriptionJob, error)
	FetchOutputFunc  func(ctx context.Context, key string) ([]byte, error)
	DeleteOutputFunc func(ctx context.Context, key string) error
}

// NewClient builds a client backed by the real transcription service. The
// store is reused to fetch the job's output document, which the service
// writes into the same bucket as the staged audio.
func NewClient(cfg config.TranscribeConfig, storageCfg config.StorageConfig, store storage.ObjectStore) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(storageCfg.Region),
	}
	if storageCfg.AccessKey != "" && storageCfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storageCfg.AccessKey, storageCfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		bucket: storageCfg.Bucket,
		store:  store,
	}
	c.bindAWS(transcribe.NewFromConfig(awsCfg))
	c.FetchOutputFunc = store.Get
	c.DeleteOutputFunc = store.Delete
	return c, nil
}

func (c *Client) bindAWS(api *transcribe.Client) {
	c.StartJobFunc = func(ctx context.Context, req jobRequest) error {
		input := &transcribe.StartTranscriptionJobInput{
			TranscriptionJobName: aws.String(req.Name),
			Media:                &types.Media{MediaFileUri: aws.String(req.MediaURI)},
			MediaFormat:          types.MediaFormatFlac,
			OutputBucketName:     aws.String(c.bucket),
			OutputKey:            aws.String(req.OutputKey),
		}
		if req.LanguageHint != "" {
			input.LanguageCode = types.LanguageCode(req.LanguageHint)
		} else {
			input.IdentifyLanguage = aws.Bool(true)
			for _, code := range req.LanguageOptions {
				input.LanguageOptions = append(input.LanguageOptions, types.LanguageCode(code))
			}
		}
		_, err := api.StartTranscriptionJob(ctx, input)
		return err
	}

	c.GetJobFunc = func(ctx context.Context, name string) (*models.TranscriptionJob, error) {
		out, err := api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(name),
		})
		if err != nil {
			return nil, err
		}
		remote := out.TranscriptionJob
		job := &models.TranscriptionJob{
			Name:          name,
			Status:        mapJobStatus(remote.TranscriptionJobStatus),
			LanguageCode:  string(remote.LanguageCode),
			FailureReason: aws.ToString(remote.FailureReason),
		}
		return job, nil
	}
}

func mapJobStatus(s types.TranscriptionJobStatus) models.JobStatus {
	switch s {
	case types.TranscriptionJobStatusCompleted:
		return models.JobSucceeded
	case types.TranscriptionJobStatusFailed:
		return models.JobFailed
	case types.TranscriptionJobStatusInProgress:
		return models.JobRunning
	default:
		return models.JobSubmitted
	}
}

// Submit performs one blocking request to create the remote job.
func (c *Client) Submit(ctx context.Context, staged *storage.StagedObject, languageHint string) (*models.TranscriptionJob, error) {
	const op = "TranscribeClient.Submit"

	stem := strings.TrimSuffix(filepath.Base(staged.Key), filepath.Ext(staged.Key))
	name := fmt.Sprintf("transcribe-%s-%s", stem, uuid.New().String()[:8])

	job := &models.TranscriptionJob{
		Name:        name,
		Status:      models.JobSubmitted,
		OutputKey:   fmt.Sprintf("transcripts/%s.json", name),
		SubmittedAt: time.Now(),
	}

	req := jobRequest{
		Name:            name,
		MediaURI:        fmt.Sprintf("s3://%s/%s", c.bucket, staged.Key),
		OutputKey:       job.OutputKey,
		LanguageHint:    languageHint,
		LanguageOptions: c.cfg.LanguageOptions,
	}

	logrus.WithFields(logrus.Fields{
		"job":       name,
		"media_uri": req.MediaURI,
	}).Info("Submitting transcription job")

	if err := c.StartJobFunc(ctx, req); err != nil {
		return nil, errors.TranscriptionFailed(op, err, "failed to start transcription job")
	}

	return job, nil
}

// AwaitCompletion polls the job until it reaches a terminal status,
// sleeping between polls, with an overall deadline. Success is never
// inferred: only an explicit terminal status from the service counts. On
// success the output document is fetched and parsed into ordered segments;
// the detected source language code is returned alongside.
func (c *Client) AwaitCompletion(ctx context.Context, job *models.TranscriptionJob) ([]models.TranscriptSegment, string, error) {
	const op = "TranscribeClient.AwaitCompletion"

	logger := logrus.WithField("job", job.Name)
	deadline := time.Now().Add(c.cfg.Timeout)

	for {
		remote, err := c.GetJobFunc(ctx, job.Name)
		if err != nil {
			return nil, "", errors.TranscriptionFailed(op, err, "failed to poll transcription job")
		}

		job.Status = remote.Status
		job.LanguageCode = remote.LanguageCode
		job.FailureReason = remote.FailureReason

		if job.Status.IsTerminal() {
			break
		}

		logger.WithField("status", job.Status).Debug("Transcription job still running")

		if time.Now().After(deadline) {
			return nil, "", errors.TranscriptionTimeout(op, nil,
				fmt.Sprintf("transcription job did not finish within %s", c.cfg.Timeout))
		}
		if err := retry.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, "", errors.TranscriptionFailed(op, err, "cancelled while awaiting transcription")
		}
	}

	if job.Status == models.JobFailed {
		return nil, "", errors.TranscriptionFailed(op, nil,
			fmt.Sprintf("transcription job failed: %s", job.FailureReason))
	}

	logger.WithField("language", job.LanguageCode).Info("Transcription job succeeded")

	payload, err := c.FetchOutputFunc(ctx, job.OutputKey)
	if err != nil {
		return nil, "", errors.TranscriptionFailed(op, err, "failed to fetch transcript output")
	}

	segments, err := parseTranscript(payload)
	if err != nil {
		return nil, "", errors.TranscriptionFailed(op, err, "failed to parse transcript output")
	}

	// The output document has served its purpose; remove it from the bucket
	// like the staged audio. A failed delete is a leak, not a run failure.
	if c.DeleteOutputFunc != nil {
		if err := c.DeleteOutputFunc(context.Background(), job.OutputKey); err != nil {
			logger.WithError(err).WithField("key", job.OutputKey).
				Warn("Failed to delete transcript output; remote object leaked")
		}
	}

	logger.WithField("segments", len(segments)).Info("Parsed transcript")
	return segments, job.LanguageCode, nil
}
