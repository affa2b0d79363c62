package habit

import (
	"log/slog"
	"math"
)

// Engine evaluates tasks under a fixed Policy. It is immutable after construction.
type Engine struct {
	policy Policy
	logger *slog.Logger
}

// NewEngine validates policy and returns an Engine. A nil logger discards logs.
func NewEngine(policy Policy, logger *slog.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{policy: policy, logger: logger}, nil
}

// MustNewEngine is NewEngine for policies known to be valid.
func MustNewEngine(policy Policy, logger *slog.Logger) *Engine {
	e, err := NewEngine(policy, logger)
	if err != nil {
		panic(err)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
