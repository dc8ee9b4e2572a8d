package oracle

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
)

// AnthropicOracle implements Oracle against the Anthropic Messages API.
// Every call goes through the injected retry policy.
type AnthropicOracle struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	retry       RetryPolicy
}

// AnthropicOptions configures an AnthropicOracle.
type AnthropicOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Retry       RetryPolicy
	BaseURL     string
}

// NewAnthropicOracle creates an oracle backed by an Anthropic model.
func NewAnthropicOracle(opts AnthropicOptions) (*AnthropicOracle, error) {
	if opts.APIKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}
	if opts.Model == "" {
		return nil, errors.New(errors.InvalidInput, "model is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &AnthropicOracle{
		client:      &client,
		model:       anthropic.Model(opts.Model),
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		retry:       opts.Retry,
	}, nil
}

// ModelID returns the configured model identifier.
func (a *AnthropicOracle) ModelID() string {
	return string(a.model)
}

// Classify implements the Oracle interface.
func (a *AnthropicOracle) Classify(ctx context.Context, prompt string, out interface{}) error {
	logger := logging.GetLogger()
	ctx = logging.WithModelID(ctx, string(a.model))

	var content string
	call := func() error {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model: a.model,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
			MaxTokens:   a.maxTokens,
			Temperature: anthropic.Float(a.temperature),
		})
		if err != nil {
			return err
		}
		if message == nil || len(message.Content) == 0 {
			return errors.New(errors.OracleGenerationFailed, "received empty content from Anthropic API")
		}

		content = ""
		if block := message.Content[0]; block.Type == "text" {
			content = block.Text
		}

		usage := &logging.TokenInfo{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
		logger.PromptCompletion(ctx, prompt, content, usage)
		return nil
	}

	if err := a.retry.Do(ctx, call); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.OracleGenerationFailed, "oracle call failed"),
			errors.Fields{"model": string(a.model)})
	}

	return Unmarshal(content, out)
}

var _ Oracle = (*AnthropicOracle)(nil)
