package deliberation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/config"
	"github.com/BaSui01/parliament/internal/metrics"
	"github.com/BaSui01/parliament/storage"
	"github.com/BaSui01/parliament/types"
)

// RoundExecutor runs single deliberation rounds: retrieve knowledge, invoke
// the specialist pool, invoke the generalist over the specialists' responses,
// merge, and evaluate. It never mutates the session; the manager owns the
// lifecycle.
type RoundExecutor struct {
	consensus *ConsensusBuilder
	knowledge storage.KnowledgeStore
	cfg       config.ExecutorConfig
	bus       EventBus
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewRoundExecutor creates a round executor. knowledge, bus, and collector
// may be nil.
func NewRoundExecutor(consensus *ConsensusBuilder, knowledge storage.KnowledgeStore, cfg config.ExecutorConfig, bus EventBus, collector *metrics.Collector, logger *zap.Logger) *RoundExecutor {
	if bus == nil {
		bus = nopBus{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundExecutor{
		consensus: consensus,
		knowledge: knowledge,
		cfg:       cfg,
		bus:       bus,
		metrics:   collector,
		logger:    logger.With(zap.String("component", "executor")),
	}
}

// strategy returns a fresh pool strategy per round so sequential pacing
// starts clean.
func (e *RoundExecutor) strategy() PoolStrategy {
	if e.cfg.Parallel {
		return ParallelStrategy{}
	}
	return NewSequentialStrategy(e.cfg.AgentDelay)
}

// Execute runs the next round for the session against the given parliament
// and returns the completed record. Individual analyst failures are dropped;
// the round fails only when no analyst contributed at all.
func (e *RoundExecutor) Execute(ctx context.Context, parliament *agent.Parliament, session *types.Session) (*types.RoundRecord, error) {
	round := session.NextRoundNumber()
	start := time.Now()

	e.bus.Publish(Event{
		Type:      EventRoundStarted,
		SessionID: session.ID,
		ProjectID: session.ProjectID,
		Round:     round,
	})
	e.logger.Info("round started",
		zap.String("session_id", session.ID),
		zap.Int("round", round),
		zap.Int("parliament_size", parliament.Size()),
	)

	req := agent.Request{
		Task:      session.Task,
		Context:   session.Context,
		Knowledge: e.retrieve(ctx, session.ProjectID, session.Task),
		History:   types.SummarizeRounds(session.Rounds, e.cfg.HistoryTextLimit),
	}

	strategy := e.strategy()

	specialists := e.settle(session, round, strategy.Run(ctx, parliament.Specialists, req))

	// The generalist synthesizes last, seeing this round's specialist
	// responses as peers.
	req.Peers = specialists
	var generalist types.AgentResponse
	haveGeneralist := false
	if results := e.settle(session, round, strategy.Run(ctx, []agent.Analyst{parliament.Generalist}, req)); len(results) > 0 {
		generalist = results[0]
		haveGeneralist = true
	}

	contributors := make([]types.AgentResponse, 0, len(specialists)+1)
	contributors = append(contributors, specialists...)
	if haveGeneralist {
		contributors = append(contributors, generalist)
	}
	merged, err := e.consensus.Merge(contributors)
	if err != nil {
		return nil, types.NewErrorf(types.ErrNoContributors, "round %d: every analyst failed", round).WithCause(err).WithRetryable(true)
	}

	record := types.RoundRecord{
		RoundNumber: round,
		Prompt:      session.Task,
		Generalist:  generalist,
		Specialists: specialists,
		Merged:      merged,
		Timestamp:   time.Now().UTC(),
	}
	record.Decision, record.Reasoning = e.consensus.Evaluate(session.Rounds, &record)

	e.metrics.RecordRound(string(record.Decision), time.Since(start))
	e.bus.Publish(Event{
		Type:      EventRoundCompleted,
		SessionID: session.ID,
		ProjectID: session.ProjectID,
		Round:     round,
		Decision:  record.Decision,
		Detail:    record.Reasoning,
	})
	e.logger.Info("round completed",
		zap.String("session_id", session.ID),
		zap.Int("round", round),
		zap.String("decision", string(record.Decision)),
		zap.Float64("avg_confidence", merged.AvgConfidence),
		zap.Float64("max_risk", merged.MaxRisk),
		zap.Float64("avg_outcome", merged.AvgOutcome),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &record, nil
}

// retrieve fetches knowledge snippets for the round. Retrieval is
// best-effort: a failing knowledge store degrades the round, it never fails
// it.
func (e *RoundExecutor) retrieve(ctx context.Context, projectID, task string) []types.Snippet {
	if e.knowledge == nil {
		return nil
	}
	snippets, err := e.knowledge.Search(ctx, projectID, task, e.cfg.KnowledgeLimit)
	if err != nil {
		e.logger.Warn("knowledge retrieval failed", zap.String("project_id", projectID), zap.Error(err))
		return nil
	}
	return snippets
}

// settle splits pool results into surviving responses, logging and counting
// the failures.
func (e *RoundExecutor) settle(session *types.Session, round int, results []Result) []types.AgentResponse {
	responses := make([]types.AgentResponse, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			e.metrics.RecordAnalystCall(r.AgentID, "error", r.Elapsed)
			e.bus.Publish(Event{
				Type:      EventAnalystFailed,
				SessionID: session.ID,
				Round:     round,
				AgentID:   r.AgentID,
				Detail:    r.Err.Error(),
			})
			e.logger.Warn("analyst failed, dropping from round",
				zap.String("session_id", session.ID),
				zap.Int("round", round),
				zap.String("agent_id", r.AgentID),
				zap.Error(r.Err),
			)
			continue
		}
		e.metrics.RecordAnalystCall(r.AgentID, "ok", r.Elapsed)
		e.bus.Publish(Event{
			Type:      EventAnalystDone,
			SessionID: session.ID,
			Round:     round,
			AgentID:   r.AgentID,
		})
		responses = append(responses, *r.Response)
	}
	return responses
}
