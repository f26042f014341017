package deliberation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/parliament/config"
	"github.com/BaSui01/parliament/types"
)

// ConsensusBuilder holds the decision rules: merge the round's CROSS scores,
// then decide consensus, continue, or dead_end.
type ConsensusBuilder struct {
	schedule config.ThresholdSchedule
	deadEnd  config.DeadEndConfig
	logger   *zap.Logger
}

// NewConsensusBuilder creates the decision engine for the given tuning.
func NewConsensusBuilder(schedule config.ThresholdSchedule, deadEnd config.DeadEndConfig, logger *zap.Logger) *ConsensusBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsensusBuilder{
		schedule: schedule,
		deadEnd:  deadEnd,
		logger:   logger.With(zap.String("component", "consensus")),
	}
}

// Merge aggregates the CROSS scores of the round's contributors.
func (b *ConsensusBuilder) Merge(responses []types.AgentResponse) (types.MergedScore, error) {
	scores := make([]types.Score, len(responses))
	for i, r := range responses {
		scores[i] = r.Score
	}
	return types.MergeScores(scores)
}

// Evaluate decides the outcome of the round described by current, given the
// previously recorded rounds. Dead-end detection only applies from round 2
// on: round 1 always either reaches consensus or continues.
func (b *ConsensusBuilder) Evaluate(prior []types.RoundRecord, current *types.RoundRecord) (types.Decision, string) {
	thresholds := b.schedule.ForRound(current.RoundNumber)
	merged := current.Merged

	if reason, ok := b.consensusReached(merged, thresholds); ok {
		b.logger.Info("consensus reached",
			zap.Int("round", current.RoundNumber),
			zap.Float64("avg_confidence", merged.AvgConfidence),
			zap.Float64("max_risk", merged.MaxRisk),
		)
		return types.DecisionConsensus, reason
	}

	if current.RoundNumber >= 2 {
		if reason, ok := b.confidenceDeclined(prior, current); ok {
			b.logger.Warn("dead end: confidence declining", zap.Int("round", current.RoundNumber))
			return types.DecisionDeadEnd, reason
		}
		if reason, ok := b.riskPersistent(prior, current); ok {
			b.logger.Warn("dead end: risk persistently high", zap.Int("round", current.RoundNumber))
			return types.DecisionDeadEnd, reason
		}
	}

	return types.DecisionContinue, b.continueReason(merged, thresholds)
}

// consensusReached checks all five consensus conditions: the three round
// thresholds plus the two agreement caps.
func (b *ConsensusBuilder) consensusReached(m types.MergedScore, t config.RoundThresholds) (string, bool) {
	if m.AvgConfidence >= t.MinConfidence &&
		m.MaxRisk <= t.MaxRisk &&
		m.AvgOutcome >= t.MinOutcome &&
		m.StdConfidence <= b.schedule.MaxConfidenceStd &&
		m.StdOutcome <= b.schedule.MaxOutcomeStd {
		return fmt.Sprintf(
			"consensus: confidence %.1f >= %.1f, risk %.1f <= %.1f, outcome %.1f >= %.1f, agreement within caps (std conf %.1f, std outcome %.1f)",
			m.AvgConfidence, t.MinConfidence, m.MaxRisk, t.MaxRisk, m.AvgOutcome, t.MinOutcome, m.StdConfidence, m.StdOutcome,
		), true
	}
	return "", false
}

// confidenceDeclined reports whether average confidence dropped by strictly
// more than the configured decline between the previous round and this one.
func (b *ConsensusBuilder) confidenceDeclined(prior []types.RoundRecord, current *types.RoundRecord) (string, bool) {
	if len(prior) == 0 {
		return "", false
	}
	prev := prior[len(prior)-1].Merged.AvgConfidence
	drop := prev - current.Merged.AvgConfidence
	if drop > b.deadEnd.ConfidenceDecline {
		return fmt.Sprintf(
			"dead end: average confidence fell %.1f points (%.1f -> %.1f), more than the %.1f decline limit",
			drop, prev, current.Merged.AvgConfidence, b.deadEnd.ConfidenceDecline,
		), true
	}
	return "", false
}

// riskPersistent reports whether the last N rounds, this one included, all
// carried max risk above the cutoff.
func (b *ConsensusBuilder) riskPersistent(prior []types.RoundRecord, current *types.RoundRecord) (string, bool) {
	window := b.deadEnd.PersistentRiskRounds
	if window < 1 {
		return "", false
	}
	// Fewer rounds than the window cannot establish persistence.
	if len(prior)+1 < window {
		return "", false
	}

	if current.Merged.MaxRisk <= b.deadEnd.HighRiskCutoff {
		return "", false
	}
	for i := 0; i < window-1; i++ {
		if prior[len(prior)-1-i].Merged.MaxRisk <= b.deadEnd.HighRiskCutoff {
			return "", false
		}
	}

	return fmt.Sprintf(
		"dead end: max risk above %.1f for %d consecutive rounds (latest %.1f)",
		b.deadEnd.HighRiskCutoff, window, current.Merged.MaxRisk,
	), true
}

// continueReason names every threshold the round missed, so the record
// explains itself.
func (b *ConsensusBuilder) continueReason(m types.MergedScore, t config.RoundThresholds) string {
	var missed []string
	if m.AvgConfidence < t.MinConfidence {
		missed = append(missed, fmt.Sprintf("confidence %.1f < %.1f", m.AvgConfidence, t.MinConfidence))
	}
	if m.MaxRisk > t.MaxRisk {
		missed = append(missed, fmt.Sprintf("risk %.1f > %.1f", m.MaxRisk, t.MaxRisk))
	}
	if m.AvgOutcome < t.MinOutcome {
		missed = append(missed, fmt.Sprintf("outcome %.1f < %.1f", m.AvgOutcome, t.MinOutcome))
	}
	if m.StdConfidence > b.schedule.MaxConfidenceStd {
		missed = append(missed, fmt.Sprintf("confidence spread %.1f > %.1f", m.StdConfidence, b.schedule.MaxConfidenceStd))
	}
	if m.StdOutcome > b.schedule.MaxOutcomeStd {
		missed = append(missed, fmt.Sprintf("outcome spread %.1f > %.1f", m.StdOutcome, b.schedule.MaxOutcomeStd))
	}
	return "continue: " + strings.Join(missed, ", ")
}
