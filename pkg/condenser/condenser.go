// Package condenser decides when a conversation's history has grown too
// large for the model's context window and produces the Condensation
// event that tells pkg/view what to forget and what to show in its
// place.
package condenser

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/view"
)

// ErrNothingToCondense is returned when keepRecent is not strictly
// smaller than the view's event count: there is no older prefix left to
// forget.
var ErrNothingToCondense = errors.New("condenser: nothing to condense")

// Condenser is the pluggable strategy interface spec.md §4.7 mandates;
// only the interface, not the reference strategy, is required.
type Condenser interface {
	// ShouldCondense reports whether v's token footprint against
	// contextWindow (in model tokens) warrants condensation.
	ShouldCondense(v view.View, contextWindow int) bool

	// Condense builds the Condensation event that forgets the older
	// portion of v's events, keeping at least keepRecent of the most
	// recent ones intact. Returns ErrNothingToCondense if there is
	// nothing older to forget.
	Condense(ctx context.Context, v view.View, keepRecent int) (*event.Event, error)

	Name() string
}

// NoOpCondenser never condenses; useful for tests and for agents that
// intentionally keep full history.
type NoOpCondenser struct{}

func (NoOpCondenser) ShouldCondense(view.View, int) bool { return false }

func (NoOpCondenser) Condense(context.Context, view.View, int) (*event.Event, error) {
	return nil, ErrNothingToCondense
}

func (NoOpCondenser) Name() string { return "noop" }

// TokenThresholdCondenser is the reference strategy from spec.md §4.7:
// condense once the view's token count crosses threshold (default 0.8)
// of contextWindow, keeping the most recent keepRecent events and
// summarizing everything older via Summarizer.
type TokenThresholdCondenser struct {
	counter    *TokenCounter
	summarizer Summarizer
	threshold  float64
}

// TokenThresholdConfig configures NewTokenThresholdCondenser.
type TokenThresholdConfig struct {
	Model      string // for token counting; see NewTokenCounter
	Summarizer Summarizer
	Threshold  float64 // fraction of contextWindow that triggers condensation; default 0.8
}

// NewTokenThresholdCondenser builds the reference condenser.
func NewTokenThresholdCondenser(cfg TokenThresholdConfig) (*TokenThresholdCondenser, error) {
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("condenser: summarizer is required")
	}
	counter, err := NewTokenCounter(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("condenser: build token counter: %w", err)
	}
	threshold := cfg.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	return &TokenThresholdCondenser{counter: counter, summarizer: cfg.Summarizer, threshold: threshold}, nil
}

func (c *TokenThresholdCondenser) Name() string { return "token_threshold" }

func (c *TokenThresholdCondenser) ShouldCondense(v view.View, contextWindow int) bool {
	if contextWindow <= 0 || v.Len() == 0 {
		return false
	}
	current := c.counter.CountMessages(v.Messages())
	return current >= int(float64(contextWindow)*c.threshold)
}

// Condense forgets every event in v older than the Nth-most-recent
// (N = keepRecent) and summarizes them via c.summarizer. The summary is
// always inserted at offset 0: condensation always forgets a contiguous
// prefix of the view, so the surviving recent events immediately follow
// the summary with nothing from an earlier, already-superseded summary
// left in between (the view only ever shows the MOST RECENT
// Condensation's summary, so a prior one is recomputed fresh here rather
// than preserved).
func (c *TokenThresholdCondenser) Condense(ctx context.Context, v view.View, keepRecent int) (*event.Event, error) {
	events := v.Events
	if keepRecent < 0 {
		keepRecent = 0
	}
	if keepRecent >= len(events) {
		return nil, ErrNothingToCondense
	}

	cutoff := len(events) - keepRecent
	toForget := events[:cutoff]

	forgottenIDs := make([]string, 0, len(toForget))
	for _, e := range toForget {
		if e.Kind == event.KindCondensationSummary {
			// Synthetic: inserted by the view, never appended to the
			// store, so it has no id to forget.
			continue
		}
		forgottenIDs = append(forgottenIDs, e.ID.String())
	}

	forgetView := view.View{Events: toForget}
	summary, err := c.summarizer.Summarize(ctx, forgetView.Messages())
	if err != nil {
		return nil, err
	}

	ev := event.NewCondensationEvent(event.CondensationPayload{
		ForgottenEventIDs: forgottenIDs,
		Summary:           summary,
		HasSummary:        true,
		SummaryOffset:     0,
	})
	return &ev, nil
}

var _ Condenser = (*NoOpCondenser)(nil)
var _ Condenser = (*TokenThresholdCondenser)(nil)
