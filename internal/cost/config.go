package cost

import (
	"fmt"
	"time"
)

// Config holds the token budget applied to plan generation
type Config struct {
	// MaxTokensPerHour is the maximum number of tokens (input + output) allowed per window
	// 0 = unlimited
	// Default: 100000
	MaxTokensPerHour int64 `json:"max_tokens_per_hour" yaml:"max_tokens_per_hour"`

	// MaxCostPerHour is the maximum cost in USD allowed per window
	// 0.0 = unlimited (use the token limit instead)
	// Default: 1.50
	MaxCostPerHour float64 `json:"max_cost_per_hour" yaml:"max_cost_per_hour"`

	// AlertThreshold is the fraction of either limit that logs a warning
	// Default: 0.80
	AlertThreshold float64 `json:"alert_threshold" yaml:"alert_threshold"`

	// BudgetResetInterval is the length of the budget window
	// Default: 1 hour
	BudgetResetInterval time.Duration `json:"budget_reset_interval" yaml:"budget_reset_interval"`

	// PersistStatePath is where usage is kept between runs; empty disables persistence
	PersistStatePath string `json:"persist_state_path" yaml:"persist_state_path"`

	// Enabled controls whether budgeting is active
	// Default: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// InputTokenCost is the cost per 1M input tokens (in USD)
	InputTokenCost float64 `json:"input_token_cost" yaml:"input_token_cost"`

	// OutputTokenCost is the cost per 1M output tokens (in USD)
	OutputTokenCost float64 `json:"output_token_cost" yaml:"output_token_cost"`
}

// DefaultConfig returns default budget configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:             true,
		MaxTokensPerHour:    100000,
		MaxCostPerHour:      1.50,
		AlertThreshold:      0.80,
		BudgetResetInterval: time.Hour,
		InputTokenCost:      3.00,  // Claude Sonnet 4.5
		OutputTokenCost:     15.00, // Claude Sonnet 4.5
	}
}

// Validate checks that the configuration has safe and reasonable values
func (c *Config) Validate() error {
	if c.MaxTokensPerHour < 0 {
		return fmt.Errorf("max_tokens_per_hour must be non-negative, got %d", c.MaxTokensPerHour)
	}
	if c.MaxCostPerHour < 0 {
		return fmt.Errorf("max_cost_per_hour must be non-negative, got %.2f", c.MaxCostPerHour)
	}
	if c.AlertThreshold <= 0 || c.AlertThreshold > 1.0 {
		return fmt.Errorf("alert_threshold must be between 0 and 1, got %.2f", c.AlertThreshold)
	}
	if c.BudgetResetInterval <= 0 {
		return fmt.Errorf("budget_reset_interval must be positive, got %v", c.BudgetResetInterval)
	}
	if c.InputTokenCost < 0 {
		return fmt.Errorf("input_token_cost must be non-negative, got %.2f", c.InputTokenCost)
	}
	if c.OutputTokenCost < 0 {
		return fmt.Errorf("output_token_cost must be non-negative, got %.2f", c.OutputTokenCost)
	}
	return nil
}
