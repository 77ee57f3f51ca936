package condenser

import "fmt"

// Config selects and configures a Condenser by name, mirroring teacher's
// pkg/agent/history.HistoryConfig/NewHistoryStrategy factory shape.
type Config struct {
	Strategy   string // "noop" or "token_threshold" (default)
	Model      string
	Summarizer Summarizer
	Threshold  float64
}

// New builds a Condenser from cfg. Strategy defaults to
// "token_threshold".
func New(cfg Config) (Condenser, error) {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = "token_threshold"
	}

	switch strategy {
	case "noop":
		return NoOpCondenser{}, nil

	case "token_threshold":
		return NewTokenThresholdCondenser(TokenThresholdConfig{
			Model:      cfg.Model,
			Summarizer: cfg.Summarizer,
			Threshold:  cfg.Threshold,
		})

	default:
		return nil, fmt.Errorf("condenser: unknown strategy %q (valid options: noop, token_threshold)", strategy)
	}
}
