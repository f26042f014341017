package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/parliament/types"
)

// Member is the unified analyst implementation. Every parliament role uses
// this type; behavior is differentiated purely by the injected persona and
// token budget.
type Member struct {
	id        string
	persona   Persona
	maxTokens int
	completer Completer
	logger    *zap.Logger
}

// NewMember creates an analyst for one role from its persona configuration.
func NewMember(id string, cfg types.PersonaConfig, completer Completer, logger *zap.Logger) (*Member, error) {
	if completer == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "completer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	persona := ParsePersona(cfg.Persona)
	if persona.RoleName == "" {
		persona.RoleName = id
	}

	return &Member{
		id:        id,
		persona:   persona,
		maxTokens: cfg.MaxTokens,
		completer: completer,
		logger:    logger.With(zap.String("component", "analyst"), zap.String("role", id)),
	}, nil
}

// ID returns the role identifier.
func (m *Member) ID() string { return m.id }

// RoleName returns the human-readable role label.
func (m *Member) RoleName() string { return m.persona.RoleName }

// Analyze builds the prompt, invokes the model, and parses the CROSS score
// out of the reply.
func (m *Member) Analyze(ctx context.Context, req Request) (*types.AgentResponse, error) {
	prompt := buildPrompt(req)

	raw, err := m.completer.Complete(ctx, CompletionRequest{
		SystemPrompt: m.persona.SystemPrompt,
		Prompt:       prompt,
		MaxTokens:    m.maxTokens,
	})
	if err != nil {
		return nil, types.NewErrorf(types.ErrAnalystFailed, "analyst %s", m.id).WithCause(err)
	}

	score, analysis := parseResponse(raw)

	m.logger.Debug("analysis complete",
		zap.Float64("confidence", score.Confidence),
		zap.Float64("risk", score.Risk),
		zap.Float64("outcome", score.Outcome),
	)

	return &types.AgentResponse{
		AgentID:   m.id,
		RoleName:  m.persona.RoleName,
		Score:     score,
		Analysis:  analysis,
		Timestamp: time.Now().UTC(),
	}, nil
}
