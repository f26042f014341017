package agent

import (
	"context"

	"github.com/BaSui01/parliament/types"
)

// Request carries everything an analyst sees for one invocation.
type Request struct {
	// Task is the question under deliberation.
	Task string
	// Context is the session's accumulated context and human guidance.
	Context string
	// Knowledge holds retrieved snippets relevant to the task. May be empty.
	Knowledge []types.Snippet
	// History is the compact summary of prior rounds. May be empty.
	History []types.RoundSummary
	// Peers holds this round's responses from other analysts. Set for the
	// generalist, whose job is to synthesize them.
	Peers []types.AgentResponse
}

// Analyst is the capability contract every parliament member satisfies:
// analyze a task and return a scored response. Individual calls may fail;
// the round executor isolates such failures.
type Analyst interface {
	// ID returns the role identifier ("generalist", "specialist_1", ...).
	ID() string
	// RoleName returns the human-readable role label.
	RoleName() string
	// Analyze produces the analyst's scored contribution.
	Analyze(ctx context.Context, req Request) (*types.AgentResponse, error)
}

// CompletionRequest is a single model invocation.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

// Completer is the opaque model capability behind every analyst. Transport,
// model choice, retries, and timeout policy all live behind this interface.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
