package revise

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	pkgerrors "github.com/pkg/errors"

	"video2doc/config"
)

// Invoker is one request/response call to the generative-language service.
type Invoker interface {
	Invoke(ctx context.Context, modelID, system, prompt string) (string, error)
}

// TransientError marks a model call failure as retryable (throttling,
// timeout, momentary unavailability). Anything unwrapped is permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// BedrockInvoker calls an Anthropic model through the Bedrock runtime
// messages API.
type BedrockInvoker struct {
	client    *bedrockruntime.Client
	maxTokens int
}

func NewBedrockInvoker(cfg config.ReviseConfig, storageCfg config.StorageConfig) (*BedrockInvoker, error) {
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

	return &BedrockInvoker{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		maxTokens: cfg.MaxTokens,
	}, nil
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *BedrockInvoker) Invoke(ctx context.Context, modelID, system, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		Temperature:      0,
		System:           system,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, "marshal model request")
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		if isTransientAPIError(err) {
			return "", &TransientError{Err: err}
		}
		return "", pkgerrors.Wrap(err, "invoke model")
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", pkgerrors.Wrap(err, "unmarshal model response")
	}
	if len(resp.Content) == 0 {
		return "", pkgerrors.New("model response contains no content")
	}

	return resp.Content[0].Text, nil
}

func isTransientAPIError(err error) bool {
	var throttled *brtypes.ThrottlingException
	var unavailable *brtypes.ServiceUnavailableException
	var timeout *brtypes.ModelTimeoutException
	var internal *brtypes.InternalServerException
	return pkgerrors.As(err, &throttled) ||
		pkgerrors.As(err, &unavailable) ||
		pkgerrors.As(err, &timeout) ||
		pkgerrors.As(err, &internal)
}
