package deliberation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/types"
)

// fakeAnalyst is a scripted Analyst for strategy and executor tests.
type fakeAnalyst struct {
	id    string
	score types.Score
	err   error

	mu   sync.Mutex
	reqs []agent.Request
}

func (f *fakeAnalyst) ID() string       { return f.id }
func (f *fakeAnalyst) RoleName() string { return f.id }

func (f *fakeAnalyst) Analyze(ctx context.Context, req agent.Request) (*types.AgentResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &types.AgentResponse{
		AgentID:   f.id,
		RoleName:  f.id,
		Score:     f.score,
		Analysis:  "analysis from " + f.id,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *fakeAnalyst) lastRequest() agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func TestParallelStrategy_AllSettle(t *testing.T) {
	analysts := []agent.Analyst{
		&fakeAnalyst{id: "specialist_1", score: types.Score{Confidence: 80, Risk: 10, Outcome: 70}},
		&fakeAnalyst{id: "specialist_2", err: errors.New("model timeout")},
		&fakeAnalyst{id: "specialist_3", score: types.Score{Confidence: 60, Risk: 30, Outcome: 50}},
	}

	results := ParallelStrategy{}.Run(context.Background(), analysts, agent.Request{Task: "t"})
	require.Len(t, results, 3)

	// Results stay in invocation order regardless of completion order.
	assert.Equal(t, "specialist_1", results[0].AgentID)
	assert.Equal(t, "specialist_2", results[1].AgentID)
	assert.Equal(t, "specialist_3", results[2].AgentID)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Response)
	assert.NoError(t, results[2].Err)
	assert.InDelta(t, 60, results[2].Response.Score.Confidence, 1e-9)
}

func TestSequentialStrategy_NoDelay(t *testing.T) {
	var order []string
	analysts := make([]agent.Analyst, 0, 3)
	for _, id := range []string{"a", "b", "c"} {
		id := id
		analysts = append(analysts, analystFunc{id: id, fn: func() {
			order = append(order, id)
		}})
	}

	results := NewSequentialStrategy(0).Run(context.Background(), analysts, agent.Request{})
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSequentialStrategy_PacesEveryCall(t *testing.T) {
	const delay = 20 * time.Millisecond
	analysts := []agent.Analyst{
		&fakeAnalyst{id: "a"},
		&fakeAnalyst{id: "b"},
	}

	start := time.Now()
	results := NewSequentialStrategy(delay).Run(context.Background(), analysts, agent.Request{})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	// The pause applies before the first call too.
	assert.GreaterOrEqual(t, elapsed, 2*delay)
}

func TestSequentialStrategy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	analysts := []agent.Analyst{&fakeAnalyst{id: "a"}, &fakeAnalyst{id: "b"}}
	results := NewSequentialStrategy(5*time.Second).Run(ctx, analysts, agent.Request{})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Response)
	}
}

// analystFunc runs a callback and returns a neutral response.
type analystFunc struct {
	id string
	fn func()
}

func (a analystFunc) ID() string       { return a.id }
func (a analystFunc) RoleName() string { return a.id }

func (a analystFunc) Analyze(ctx context.Context, req agent.Request) (*types.AgentResponse, error) {
	a.fn()
	return &types.AgentResponse{AgentID: a.id, Score: types.NeutralDefaultScore("")}, nil
}
