package deliberation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/types"
)

// Result is one analyst invocation outcome. Exactly one of Response and Err
// is set.
type Result struct {
	AgentID  string
	Response *types.AgentResponse
	Err      error
	Elapsed  time.Duration
}

// PoolStrategy invokes a set of analysts with the same request and returns
// one Result per analyst, in invocation order. Individual failures are
// recorded, never propagated: the executor decides what a failed analyst
// means for the round.
type PoolStrategy interface {
	Run(ctx context.Context, analysts []agent.Analyst, req agent.Request) []Result
}

// ParallelStrategy invokes all analysts concurrently and waits for every one
// to settle.
type ParallelStrategy struct{}

func (ParallelStrategy) Run(ctx context.Context, analysts []agent.Analyst, req agent.Request) []Result {
	results := make([]Result, len(analysts))

	var wg sync.WaitGroup
	for i, a := range analysts {
		wg.Add(1)
		go func(i int, a agent.Analyst) {
			defer wg.Done()
			start := time.Now()
			resp, err := a.Analyze(ctx, req)
			results[i] = Result{AgentID: a.ID(), Response: resp, Err: err, Elapsed: time.Since(start)}
		}(i, a)
	}
	wg.Wait()

	return results
}

// SequentialStrategy invokes analysts one at a time, pausing before every
// call. The pause is backpressure against rate-limited model upstreams; it
// applies to the first call too, so back-to-back rounds still respect the
// spacing.
type SequentialStrategy struct {
	limiter *rate.Limiter
}

// NewSequentialStrategy creates a strategy that waits delay before each
// analyst call. A non-positive delay disables the pacing.
func NewSequentialStrategy(delay time.Duration) *SequentialStrategy {
	if delay <= 0 {
		return &SequentialStrategy{}
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	// Drain the initial token so the first call waits the full delay.
	limiter.Allow()
	return &SequentialStrategy{limiter: limiter}
}

func (s *SequentialStrategy) Run(ctx context.Context, analysts []agent.Analyst, req agent.Request) []Result {
	results := make([]Result, len(analysts))
	for i, a := range analysts {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				results[i] = Result{AgentID: a.ID(), Err: err}
				continue
			}
		}
		start := time.Now()
		resp, err := a.Analyze(ctx, req)
		results[i] = Result{AgentID: a.ID(), Response: resp, Err: err, Elapsed: time.Since(start)}
	}
	return results
}
