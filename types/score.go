package types

import "math"

// ScoreMin and ScoreMax bound every CROSS dimension.
const (
	ScoreMin = 0.0
	ScoreMax = 100.0
)

// NeutralScore is the midpoint substituted when an analyst's output cannot be
// parsed. A neutral triple keeps the round alive without biasing the merge.
const NeutralScore = 50.0

// Score is a single CROSS score: Confidence, Risk, Outcome, each in [0,100],
// plus the rationale behind them. One Score is produced per analyst per round.
type Score struct {
	// Confidence in the proposed solution (0 = uncertain, 100 = certain).
	Confidence float64 `json:"confidence" bson:"confidence" yaml:"confidence"`
	// Risk level (0 = safe, 100 = critical).
	Risk float64 `json:"risk" bson:"risk" yaml:"risk"`
	// Outcome is the expected result quality (0 = poor, 100 = excellent).
	Outcome float64 `json:"outcome" bson:"outcome" yaml:"outcome"`
	// Explanation is the analyst's reasoning behind the three values.
	Explanation string `json:"explanation" bson:"explanation" yaml:"explanation"`
}

// NeutralDefaultScore returns the midpoint score used when parsing fails.
func NeutralDefaultScore(explanation string) Score {
	return Score{
		Confidence:  NeutralScore,
		Risk:        NeutralScore,
		Outcome:     NeutralScore,
		Explanation: explanation,
	}
}

// Clamp forces all three dimensions into [ScoreMin, ScoreMax].
func (s Score) Clamp() Score {
	s.Confidence = clamp(s.Confidence)
	s.Risk = clamp(s.Risk)
	s.Outcome = clamp(s.Outcome)
	return s
}

// Valid reports whether all three dimensions are within range.
func (s Score) Valid() bool {
	return inRange(s.Confidence) && inRange(s.Risk) && inRange(s.Outcome)
}

func clamp(v float64) float64 {
	return math.Min(ScoreMax, math.Max(ScoreMin, v))
}

func inRange(v float64) bool {
	return v >= ScoreMin && v <= ScoreMax
}

// MergedScore aggregates the Scores contributed in one round. It is derived,
// never constructed by hand: use MergeScores.
type MergedScore struct {
	AvgConfidence float64 `json:"avg_confidence" bson:"avg_confidence"`
	MaxRisk       float64 `json:"max_risk" bson:"max_risk"`
	AvgOutcome    float64 `json:"avg_outcome" bson:"avg_outcome"`
	// StdConfidence and StdOutcome measure agreement between analysts.
	// Defined as 0 when only one score contributes.
	StdConfidence float64 `json:"std_confidence" bson:"std_confidence"`
	StdOutcome    float64 `json:"std_outcome" bson:"std_outcome"`
}

// MergeScores merges the CROSS scores of all contributors in one round.
// Returns ErrEmptyScoreSet when scores is empty: a round with zero
// contributions has no defined merge.
func MergeScores(scores []Score) (MergedScore, error) {
	if len(scores) == 0 {
		return MergedScore{}, NewError(ErrEmptyScoreSet, "cannot merge empty score list")
	}

	confidences := make([]float64, len(scores))
	outcomes := make([]float64, len(scores))
	maxRisk := ScoreMin
	for i, s := range scores {
		confidences[i] = s.Confidence
		outcomes[i] = s.Outcome
		if s.Risk > maxRisk {
			maxRisk = s.Risk
		}
	}

	return MergedScore{
		AvgConfidence: mean(confidences),
		MaxRisk:       maxRisk,
		AvgOutcome:    mean(outcomes),
		StdConfidence: sampleStdDev(confidences),
		StdOutcome:    sampleStdDev(outcomes),
	}, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev returns the sample standard deviation, or 0 for fewer than
// two values.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
