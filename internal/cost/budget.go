// Package cost tracks the tokens spent on plan generation and refuses requests once the
// budget for the current window is used up.
package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BudgetStatus represents the current budget state
type BudgetStatus int

const (
	// BudgetHealthy indicates normal operation - under budget limits
	BudgetHealthy BudgetStatus = iota
	// BudgetWarning indicates usage above the alert threshold
	BudgetWarning
	// BudgetExceeded indicates budget limits have been exceeded
	BudgetExceeded
)

// String returns a human-readable string representation of the budget status
func (s BudgetStatus) String() string {
	switch s {
	case BudgetHealthy:
		return "HEALTHY"
	case BudgetWarning:
		return "WARNING"
	case BudgetExceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// BudgetState is the persisted usage record
type BudgetState struct {
	HourlyTokensUsed int64     `json:"hourly_tokens_used"`
	HourlyCostUsed   float64   `json:"hourly_cost_used"`
	WindowStartTime  time.Time `json:"window_start_time"`

	TotalTokensUsed int64   `json:"total_tokens_used"`
	TotalCostUsed   float64 `json:"total_cost_used"`
	Requests        int64   `json:"requests"`

	LastUpdated time.Time `json:"last_updated"`
}

// Tracker tracks token usage and enforces the budget
type Tracker struct {
	config *Config
	state  *BudgetState
	logger *slog.Logger
	mu     sync.Mutex
	now    func() time.Time

	warningLogged bool
}

// NewTracker creates a budget tracker, restoring persisted usage when configured.
func NewTracker(cfg *Config, logger *slog.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	t.state = &BudgetState{WindowStartTime: t.now(), LastUpdated: t.now()}

	if err := t.loadState(); err != nil {
		logger.Warn("failed to load cost state, starting fresh", "path", cfg.PersistStatePath, "error", err)
	}
	t.checkAndResetWindow()
	return t, nil
}

// RecordUsage records the tokens used by one request and returns the resulting status.
func (t *Tracker) RecordUsage(ctx context.Context, inputTokens, outputTokens int64) (BudgetStatus, error) {
	if !t.config.Enabled {
		return BudgetHealthy, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()

	total := inputTokens + outputTokens
	cost := t.calculateCost(inputTokens, outputTokens)
	t.state.HourlyTokensUsed += total
	t.state.HourlyCostUsed += cost
	t.state.TotalTokensUsed += total
	t.state.TotalCostUsed += cost
	t.state.Requests++
	t.state.LastUpdated = t.now()

	if err := t.persistState(); err != nil {
		t.logger.Warn("failed to persist cost state", "error", err)
	}

	status := t.statusLocked()
	t.logger.DebugContext(ctx, "recorded token usage",
		"tokens", total, "cost_usd", cost, "window_tokens", t.state.HourlyTokensUsed, "status", status.String())
	if status == BudgetWarning && !t.warningLogged {
		t.warningLogged = true
		t.logger.Warn("plan generation budget nearly used",
			"window_tokens", t.state.HourlyTokensUsed, "max_tokens", t.config.MaxTokensPerHour,
			"window_cost_usd", t.state.HourlyCostUsed, "max_cost_usd", t.config.MaxCostPerHour)
	}
	return status, nil
}

// CheckBudget returns the current status without recording usage
func (t *Tracker) CheckBudget() BudgetStatus {
	if !t.config.Enabled {
		return BudgetHealthy
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkAndResetWindow()
	return t.statusLocked()
}

// CanProceed reports whether another request fits in the budget, and why not otherwise.
func (t *Tracker) CanProceed() (bool, string) {
	if t.CheckBudget() != BudgetExceeded {
		return true, ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokenLimitExceeded() {
		return false, fmt.Sprintf("hourly token budget exceeded (%d/%d tokens used)",
			t.state.HourlyTokensUsed, t.config.MaxTokensPerHour)
	}
	return false, fmt.Sprintf("hourly cost budget exceeded ($%.2f/$%.2f used)",
		t.state.HourlyCostUsed, t.config.MaxCostPerHour)
}

// BudgetStats contains budget statistics
type BudgetStats struct {
	Status           BudgetStatus `json:"status"`
	HourlyTokensUsed int64        `json:"hourly_tokens_used"`
	HourlyCostUsed   float64      `json:"hourly_cost_used"`
	TotalTokensUsed  int64        `json:"total_tokens_used"`
	TotalCostUsed    float64      `json:"total_cost_used"`
	Requests         int64        `json:"requests"`
	WindowStartTime  time.Time    `json:"window_start_time"`
}

// GetStats returns current budget statistics
func (t *Tracker) GetStats() BudgetStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkAndResetWindow()

	return BudgetStats{
		Status:           t.statusLocked(),
		HourlyTokensUsed: t.state.HourlyTokensUsed,
		HourlyCostUsed:   t.state.HourlyCostUsed,
		TotalTokensUsed:  t.state.TotalTokensUsed,
		TotalCostUsed:    t.state.TotalCostUsed,
		Requests:         t.state.Requests,
		WindowStartTime:  t.state.WindowStartTime,
	}
}

// statusLocked derives the status from the current window. Callers hold mu.
func (t *Tracker) statusLocked() BudgetStatus {
	if !t.config.Enabled {
		return BudgetHealthy
	}
	if t.tokenLimitExceeded() || t.costLimitExceeded() {
		return BudgetExceeded
	}

	threshold := t.config.AlertThreshold
	if t.config.MaxTokensPerHour > 0 &&
		float64(t.state.HourlyTokensUsed) >= float64(t.config.MaxTokensPerHour)*threshold {
		return BudgetWarning
	}
	if t.config.MaxCostPerHour > 0 && t.state.HourlyCostUsed >= t.config.MaxCostPerHour*threshold {
		return BudgetWarning
	}
	return BudgetHealthy
}

func (t *Tracker) tokenLimitExceeded() bool {
	return t.config.MaxTokensPerHour > 0 && t.state.HourlyTokensUsed >= t.config.MaxTokensPerHour
}

func (t *Tracker) costLimitExceeded() bool {
	return t.config.MaxCostPerHour > 0 && t.state.HourlyCostUsed >= t.config.MaxCostPerHour
}

func (t *Tracker) calculateCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) * t.config.InputTokenCost / 1_000_000
	outputCost := float64(outputTokens) * t.config.OutputTokenCost / 1_000_000
	return inputCost + outputCost
}

// checkAndResetWindow starts a new window once the current one has expired.
// MUST be called with mu held
func (t *Tracker) checkAndResetWindow() {
	now := t.now()
	if now.Sub(t.state.WindowStartTime) >= t.config.BudgetResetInterval {
		t.state.HourlyTokensUsed = 0
		t.state.HourlyCostUsed = 0
		t.state.WindowStartTime = now
		t.warningLogged = false
	}
}

func (t *Tracker) persistState() error {
	if t.config.PersistStatePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.config.PersistStatePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(t.config.PersistStatePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func (t *Tracker) loadState() error {
	if t.config.PersistStatePath == "" {
		return nil
	}
	data, err := os.ReadFile(t.config.PersistStatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state BudgetState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	t.state = &state
	return nil
}
