package deliberation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/config"
	"github.com/BaSui01/parliament/storage"
	"github.com/BaSui01/parliament/types"
)

func newTestExecutor(knowledge storage.KnowledgeStore) *RoundExecutor {
	cfg := config.Default()
	cfg.Executor.AgentDelay = 0
	consensus := NewConsensusBuilder(cfg.Thresholds, cfg.DeadEnd, nil)
	return NewRoundExecutor(consensus, knowledge, cfg.Executor, nil, nil, nil)
}

func newTestSession() *types.Session {
	now := time.Now().UTC()
	return &types.Session{
		ID:        "sess-test",
		UserID:    1,
		ProjectID: "proj-1",
		Task:      "should we ship it",
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestExecute_HappyPath(t *testing.T) {
	spec1 := &fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 90, Risk: 10, Outcome: 85}}
	spec2 := &fakeAnalyst{id: "specialist_2", score: types.Score{Confidence: 92, Risk: 8, Outcome: 87}}
	gen := &fakeAnalyst{id: "generalist", score: types.Score{Confidence: 91, Risk: 9, Outcome: 86}}
	parliament := &agent.Parliament{Generalist: gen, Specialists: []agent.Analyst{spec1, spec2}}

	record, err := newTestExecutor(nil).Execute(context.Background(), parliament, newTestSession())
	require.NoError(t, err)

	assert.Equal(t, 1, record.RoundNumber)
	require.Len(t, record.Specialists, 2)
	assert.Equal(t, "specialist_1", record.Specialists[0].AgentID)
	assert.Equal(t, "specialist_2", record.Specialists[1].AgentID)
	assert.Equal(t, "generalist", record.Generalist.AgentID)

	assert.InDelta(t, 91, record.Merged.AvgConfidence, 1e-9)
	assert.InDelta(t, 10, record.Merged.MaxRisk, 1e-9)
	assert.Equal(t, types.DecisionConsensus, record.Decision)
	assert.False(t, record.Timestamp.IsZero())

	// The generalist sees the specialists' responses as peers.
	peers := gen.lastRequest().Peers
	require.Len(t, peers, 2)
	assert.Equal(t, "specialist_1", peers[0].AgentID)

	// Specialists see no peers.
	assert.Empty(t, spec1.lastRequest().Peers)
}

func TestExecute_DropsFailedAnalysts(t *testing.T) {
	spec1 := &fakeAnalyst{id: "specialist_1", err: errors.New("model timeout")}
	spec2 := &fakeAnalyst{id: "specialist_2", score: types.Score{Confidence: 60, Risk: 30, Outcome: 55}}
	gen := &fakeAnalyst{id: "generalist", score: types.Score{Confidence: 62, Risk: 28, Outcome: 57}}
	parliament := &agent.Parliament{Generalist: gen, Specialists: []agent.Analyst{spec1, spec2}}

	record, err := newTestExecutor(nil).Execute(context.Background(), parliament, newTestSession())
	require.NoError(t, err)

	require.Len(t, record.Specialists, 1)
	assert.Equal(t, "specialist_2", record.Specialists[0].AgentID)
	// Merge covers the two survivors only.
	assert.InDelta(t, 61, record.Merged.AvgConfidence, 1e-9)
}

func TestExecute_AllAnalystsFail(t *testing.T) {
	boom := errors.New("provider down")
	parliament := &agent.Parliament{
		Generalist:  &fakeAnalyst{id: "generalist", err: boom},
		Specialists: []agent.Analyst{&fakeAnalyst{id: "specialist_1", err: boom}},
	}

	_, err := newTestExecutor(nil).Execute(context.Background(), parliament, newTestSession())
	require.Error(t, err)
	assert.Equal(t, types.ErrNoContributors, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestExecute_GeneralistFailureLeavesSpecialists(t *testing.T) {
	spec := &fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}}
	parliament := &agent.Parliament{
		Generalist:  &fakeAnalyst{id: "generalist", err: errors.New("model timeout")},
		Specialists: []agent.Analyst{spec},
	}

	record, err := newTestExecutor(nil).Execute(context.Background(), parliament, newTestSession())
	require.NoError(t, err)

	assert.Empty(t, record.Generalist.AgentID)
	assert.InDelta(t, 70, record.Merged.AvgConfidence, 1e-9)
}

func TestExecute_KnowledgeReachesAnalysts(t *testing.T) {
	knowledge := storage.NewMemoryKnowledgeStore()
	require.NoError(t, knowledge.Add(context.Background(), "proj-1", "ship it behind a feature flag", nil))

	spec := &fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}}
	parliament := &agent.Parliament{
		Generalist:  &fakeAnalyst{id: "generalist", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}},
		Specialists: []agent.Analyst{spec},
	}

	_, err := newTestExecutor(knowledge).Execute(context.Background(), parliament, newTestSession())
	require.NoError(t, err)

	require.Len(t, spec.lastRequest().Knowledge, 1)
	assert.Contains(t, spec.lastRequest().Knowledge[0].Content, "feature flag")
}

// failingKnowledge always errors; retrieval must degrade, not fail the round.
type failingKnowledge struct{}

func (failingKnowledge) Search(context.Context, string, string, int) ([]types.Snippet, error) {
	return nil, errors.New("vector store unreachable")
}
func (failingKnowledge) Add(context.Context, string, string, map[string]string) error {
	return errors.New("vector store unreachable")
}
func (failingKnowledge) DeleteProject(context.Context, string) error {
	return errors.New("vector store unreachable")
}

func TestExecute_RetrievalIsBestEffort(t *testing.T) {
	spec := &fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}}
	parliament := &agent.Parliament{
		Generalist:  &fakeAnalyst{id: "generalist", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}},
		Specialists: []agent.Analyst{spec},
	}

	record, err := newTestExecutor(failingKnowledge{}).Execute(context.Background(), parliament, newTestSession())
	require.NoError(t, err)
	assert.Empty(t, spec.lastRequest().Knowledge)
	assert.NotZero(t, record.RoundNumber)
}

func TestExecute_HistoryReachesAnalysts(t *testing.T) {
	session := newTestSession()
	session.Rounds = []types.RoundRecord{{
		RoundNumber: 1,
		Merged:      types.MergedScore{AvgConfidence: 55, MaxRisk: 40, AvgOutcome: 50},
		Generalist:  types.AgentResponse{AgentID: "generalist", Analysis: "needs more data"},
	}}

	spec := &fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}}
	parliament := &agent.Parliament{
		Generalist:  &fakeAnalyst{id: "generalist", score: types.Score{Confidence: 70, Risk: 20, Outcome: 65}},
		Specialists: []agent.Analyst{spec},
	}

	record, err := newTestExecutor(nil).Execute(context.Background(), parliament, session)
	require.NoError(t, err)

	assert.Equal(t, 2, record.RoundNumber)
	require.Len(t, spec.lastRequest().History, 1)
	assert.Equal(t, 1, spec.lastRequest().History[0].RoundNumber)
}
