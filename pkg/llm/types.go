// Package llm implements the provider-agnostic LLM Gateway: a single
// synchronous Complete call that normalizes model quirks, retries with
// backoff, accounts tokens and cost, and transparently converts between
// native and prompt-mocked tool calling.
package llm

import (
	"time"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// Options configures a single Complete call. Streaming is intentionally
// absent: requesting it returns ErrUnsupportedOption.
type Options struct {
	Temperature           *float64
	TopP                  *float64
	TopK                  *int
	MaxOutputTokens       int
	Seed                  *int
	ReasoningEffort       ReasoningEffort
	ExtendedThinkingBudget int
	Stream                bool // always rejected; present so callers get a typed error, not a silent no-op
}

// ReasoningEffort mirrors the spec's enum.
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// TokenUsage accumulates per-category token counts.
type TokenUsage struct {
	Prompt     int
	Completion int
	CacheRead  int
	CacheWrite int
}

// Add accumulates u2 into u, in place, used by Metrics bookkeeping.
func (u *TokenUsage) Add(u2 TokenUsage) {
	u.Prompt += u2.Prompt
	u.Completion += u2.Completion
	u.CacheRead += u2.CacheRead
	u.CacheWrite += u2.CacheWrite
}

// MetricsSnapshot is an immutable point-in-time read of a conversation's
// accumulated LLM usage, per spec §3.
type MetricsSnapshot struct {
	ModelName         string
	AccumulatedCost   float64
	AccumulatedTokens TokenUsage
	MaxBudget         *float64
}

// Metrics is the conversation-owned, mutex-free accumulator; callers
// (pkg/conversation) are responsible for the surrounding lock per spec §5
// ("conversation state ... protected by a single conversation-scoped
// lock"). Metrics itself stays monotonic: Add never decreases a field.
type Metrics struct {
	ModelName string
	Cost      float64
	Tokens    TokenUsage
	MaxBudget *float64
}

// Add folds a completion's cost and usage into the running totals.
func (m *Metrics) Add(cost float64, usage TokenUsage) {
	m.Cost += cost
	m.Tokens.Add(usage)
}

// Snapshot returns an immutable copy for callers outside the lock.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ModelName:         m.ModelName,
		AccumulatedCost:   m.Cost,
		AccumulatedTokens: m.Tokens,
		MaxBudget:         m.MaxBudget,
	}
}

// BudgetExceeded reports whether accumulated cost has reached MaxBudget.
func (m *Metrics) BudgetExceeded() bool {
	return m.MaxBudget != nil && m.Cost >= *m.MaxBudget
}

// Response is the result of a successful Complete call.
type Response struct {
	Message  event.Message
	Usage    TokenUsage
	Cost     float64
	RawJSON  []byte // provider's raw response body, for audit/debugging
	ModelID  string
	Duration time.Duration
}

// RetryListener is invoked on every retry attempt, before the wait.
type RetryListener func(attempt, max int)
