// Package config provides configuration for the deliberation engine:
// consensus thresholds, dead-end tuning, executor behavior, and logging.
//
// Precedence: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/BaSui01/parliament/types"
)

// Config is the complete engine configuration.
type Config struct {
	// Thresholds is the per-round consensus threshold schedule.
	Thresholds ThresholdSchedule `yaml:"thresholds"`

	// DeadEnd tunes dead-end detection.
	DeadEnd DeadEndConfig `yaml:"dead_end"`

	// Executor tunes round execution.
	Executor ExecutorConfig `yaml:"executor"`

	// MaxRounds is the round budget per session.
	MaxRounds int `yaml:"max_rounds"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// RoundThresholds holds the three consensus thresholds for one round.
type RoundThresholds struct {
	// MinConfidence is the minimum average confidence.
	MinConfidence float64 `yaml:"min_confidence"`
	// MaxRisk is the maximum acceptable merged risk.
	MaxRisk float64 `yaml:"max_risk"`
	// MinOutcome is the minimum average outcome.
	MinOutcome float64 `yaml:"min_outcome"`
}

// ThresholdSchedule maps round numbers to consensus thresholds. Thresholds
// typically start strict and loosen in later rounds.
type ThresholdSchedule struct {
	// Rounds maps the 1-indexed round number to its thresholds.
	Rounds map[int]RoundThresholds `yaml:"rounds"`

	// MaxConfidenceStd and MaxOutcomeStd cap score dispersion: consensus
	// additionally requires the analysts to agree this closely.
	MaxConfidenceStd float64 `yaml:"max_confidence_std"`
	MaxOutcomeStd    float64 `yaml:"max_outcome_std"`
}

// ForRound returns the thresholds for the given round. A round beyond the
// schedule falls back to the highest explicitly defined round.
func (s ThresholdSchedule) ForRound(round int) RoundThresholds {
	if t, ok := s.Rounds[round]; ok {
		return t
	}
	last := 0
	var out RoundThresholds
	for n, t := range s.Rounds {
		if n > last {
			last = n
			out = t
		}
	}
	return out
}

// DeadEndConfig tunes dead-end detection. The decline threshold is an
// absolute, round-independent delta even though consensus thresholds loosen
// by round; the two are tuned independently.
type DeadEndConfig struct {
	// ConfidenceDecline declares a dead-end when the previous round's
	// average confidence exceeds the current one by strictly more than this.
	ConfidenceDecline float64 `yaml:"confidence_decline"`

	// PersistentRiskRounds is the number of consecutive rounds that must all
	// exceed HighRiskCutoff to declare a dead-end.
	PersistentRiskRounds int `yaml:"persistent_risk_rounds"`

	// HighRiskCutoff is the max-risk level considered "high".
	HighRiskCutoff float64 `yaml:"high_risk_cutoff"`
}

// ExecutorConfig tunes round execution.
type ExecutorConfig struct {
	// Parallel invokes all specialists concurrently. Leave false when the
	// analyst capability is a shared, rate-limited resource.
	Parallel bool `yaml:"parallel"`

	// AgentDelay is the enforced pause before each sequential analyst call.
	// This is backpressure against rate-limited upstreams, not tuning.
	AgentDelay time.Duration `yaml:"agent_delay"`

	// HistoryTextLimit truncates prior-round response text in prompts, in
	// runes.
	HistoryTextLimit int `yaml:"history_text_limit"`

	// KnowledgeLimit caps the number of retrieved snippets per round.
	KnowledgeLimit int `yaml:"knowledge_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// Default returns the default configuration: strict round 1, lenient round 3,
// sequential execution.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdSchedule{
			Rounds: map[int]RoundThresholds{
				1: {MinConfidence: 85, MaxRisk: 20, MinOutcome: 80},
				2: {MinConfidence: 75, MaxRisk: 30, MinOutcome: 70},
				3: {MinConfidence: 70, MaxRisk: 40, MinOutcome: 60},
			},
			MaxConfidenceStd: 15,
			MaxOutcomeStd:    15,
		},
		DeadEnd: DeadEndConfig{
			ConfidenceDecline:    10,
			PersistentRiskRounds: 2,
			HighRiskCutoff:       60,
		},
		Executor: ExecutorConfig{
			Parallel:         false,
			AgentDelay:       2 * time.Second,
			HistoryTextLimit: 100,
			KnowledgeLimit:   5,
		},
		MaxRounds: 3,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MaxRounds < 1 {
		return types.NewErrorf(types.ErrInvalidConfig, "max_rounds must be >= 1, got %d", c.MaxRounds)
	}
	if len(c.Thresholds.Rounds) == 0 {
		return types.NewError(types.ErrInvalidConfig, "threshold schedule must define at least one round")
	}
	for n, t := range c.Thresholds.Rounds {
		if n < 1 {
			return types.NewErrorf(types.ErrInvalidConfig, "threshold round numbers are 1-indexed, got %d", n)
		}
		for _, v := range []float64{t.MinConfidence, t.MaxRisk, t.MinOutcome} {
			if v < types.ScoreMin || v > types.ScoreMax {
				return types.NewErrorf(types.ErrInvalidConfig, "round %d threshold %v out of [0,100]", n, v)
			}
		}
	}
	if c.Thresholds.MaxConfidenceStd < 0 || c.Thresholds.MaxOutcomeStd < 0 {
		return types.NewError(types.ErrInvalidConfig, "std caps must be non-negative")
	}
	if c.DeadEnd.PersistentRiskRounds < 1 {
		return types.NewErrorf(types.ErrInvalidConfig, "persistent_risk_rounds must be >= 1, got %d", c.DeadEnd.PersistentRiskRounds)
	}
	if c.DeadEnd.HighRiskCutoff < types.ScoreMin || c.DeadEnd.HighRiskCutoff > types.ScoreMax {
		return types.NewErrorf(types.ErrInvalidConfig, "high_risk_cutoff %v out of [0,100]", c.DeadEnd.HighRiskCutoff)
	}
	if c.Executor.AgentDelay < 0 {
		return types.NewError(types.ErrInvalidConfig, "agent_delay must be non-negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return types.NewErrorf(types.ErrInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return types.NewErrorf(types.ErrInvalidConfig, "unknown log format %q", c.Log.Format)
	}
	return nil
}

// String implements fmt.Stringer without dumping the full schedule.
func (c *Config) String() string {
	mode := "sequential"
	if c.Executor.Parallel {
		mode = "parallel"
	}
	return fmt.Sprintf("config(max_rounds=%d mode=%s schedule_rounds=%d)", c.MaxRounds, mode, len(c.Thresholds.Rounds))
}
