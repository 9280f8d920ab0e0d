package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexusmap/nexus/internal/cost"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// messageCreator is the slice of the Anthropic client the generator uses.
type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Budget gates model calls on token spend. *cost.Tracker satisfies it.
type Budget interface {
	CanProceed() (bool, string)
	RecordUsage(ctx context.Context, inputTokens, outputTokens int64) (cost.BudgetStatus, error)
}

// ErrBudgetExceeded is returned when the configured token budget refuses a request.
var ErrBudgetExceeded = errors.New("plan generation budget exceeded")

// Config holds generator configuration
type Config struct {
	APIKey    string // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model     string // Model to use (default: DefaultModel)
	MaxTokens int64  // Response token limit (default: 4096)
	Retry     RetryConfig
	Budget    Budget // optional
	Logger    *slog.Logger
}

// AnthropicGenerator generates plans with the Anthropic Messages API.
type AnthropicGenerator struct {
	messages       messageCreator
	model          string
	maxTokens      int64
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	budget         Budget
	logger         *slog.Logger
}

var _ Generator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator creates a generator.
func NewAnthropicGenerator(cfg *Config) (*AnthropicGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newGenerator(&client.Messages, cfg), nil
}

func newGenerator(messages messageCreator, cfg *Config) *AnthropicGenerator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cb *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		cb = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	return &AnthropicGenerator{
		messages:       messages,
		model:          model,
		maxTokens:      maxTokens,
		retry:          retry,
		circuitBreaker: cb,
		budget:         cfg.Budget,
		logger:         logger,
	}
}

// maxParseRetries is how many times a response that is not a valid plan is re-requested.
const maxParseRetries = 1

// Generate asks the model for a plan.
func (g *AnthropicGenerator) Generate(ctx context.Context, description string) (*Plan, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	prompt := Prompt(description)
	var lastErr error
	for attempt := 0; attempt <= maxParseRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("plan response was not valid, retrying with clarified prompt",
				"attempt", attempt+1, "error", lastErr)
			prompt = Prompt(description) + "\n\nYour previous answer could not be parsed (" +
				lastErr.Error() + "). Respond with the JSON object only."
		}

		text, err := g.complete(ctx, prompt)
		if err != nil {
			return nil, err
		}

		plan, err := ParsePlan(text)
		if err == nil {
			err = plan.Validate()
		}
		if err == nil {
			g.logger.Debug("generated plan", "phases", len(plan.Phases), "tasks", plan.TaskCount())
			return plan, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("model did not return a usable plan: %w", lastErr)
}

func (g *AnthropicGenerator) complete(ctx context.Context, prompt string) (string, error) {
	if g.budget != nil {
		if ok, reason := g.budget.CanProceed(); !ok {
			return "", fmt.Errorf("%w: %s", ErrBudgetExceeded, reason)
		}
	}

	var response *anthropic.Message
	err := retryWithBackoff(ctx, g.retry, g.circuitBreaker, "plan generation", func(attemptCtx context.Context) error {
		resp, apiErr := g.messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(g.model),
			MaxTokens: g.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	if g.budget != nil {
		if _, err := g.budget.RecordUsage(ctx, response.Usage.InputTokens, response.Usage.OutputTokens); err != nil {
			g.logger.Warn("failed to record token usage", "error", err)
		}
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
