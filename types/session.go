package types

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the outcome of one deliberation round.
type Decision string

const (
	// DecisionConsensus means all thresholds were met with close agreement.
	DecisionConsensus Decision = "consensus"
	// DecisionContinue means another round is needed.
	DecisionContinue Decision = "continue"
	// DecisionDeadEnd means automatic deliberation is unlikely to converge
	// and human guidance is required.
	DecisionDeadEnd Decision = "dead_end"
)

// SessionStatus tracks the session lifecycle.
type SessionStatus string

const (
	StatusPending              SessionStatus = "pending"
	StatusDeliberating         SessionStatus = "deliberating"
	StatusAwaitingContinuation SessionStatus = "awaiting_continuation"
	StatusConsensus            SessionStatus = "consensus"
	StatusDeadEnd              SessionStatus = "dead_end"
	StatusCancelled            SessionStatus = "cancelled"
)

// AgentResponse is one analyst's contribution to a round. Immutable once
// created.
type AgentResponse struct {
	// AgentID is the role identifier ("generalist", "specialist_1", ...).
	AgentID string `json:"agent_id" bson:"agent_id"`
	// RoleName is the human-readable role label from the persona.
	RoleName string `json:"role_name" bson:"role_name"`
	Score    Score  `json:"score" bson:"score"`
	// Analysis is the analyst's full free-text analysis and recommendation.
	Analysis  string    `json:"analysis" bson:"analysis"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// RoundRecord is the complete outcome of one deliberation round.
type RoundRecord struct {
	// RoundNumber is 1-indexed and strictly increasing within a session.
	RoundNumber int `json:"round_number" bson:"round_number"`
	// Prompt summarizes what was asked of the parliament this round.
	Prompt string `json:"prompt" bson:"prompt"`
	// Generalist holds the synthesizing generalist's response.
	Generalist AgentResponse `json:"generalist" bson:"generalist"`
	// Specialists holds the specialist responses in invocation order.
	Specialists []AgentResponse `json:"specialists" bson:"specialists"`
	Merged      MergedScore     `json:"merged" bson:"merged"`
	Decision    Decision        `json:"decision" bson:"decision"`
	Reasoning   string          `json:"reasoning" bson:"reasoning"`
	Timestamp   time.Time       `json:"timestamp" bson:"timestamp"`
}

// Responses returns generalist + specialists as one slice, specialists first
// (invocation order: the generalist synthesizes last).
func (r *RoundRecord) Responses() []AgentResponse {
	out := make([]AgentResponse, 0, len(r.Specialists)+1)
	out = append(out, r.Specialists...)
	out = append(out, r.Generalist)
	return out
}

// Session is one deliberation session. It exclusively owns its RoundRecords.
type Session struct {
	ID        string `json:"session_id" bson:"_id"`
	UserID    int64  `json:"user_id" bson:"user_id"`
	ChatID    int64  `json:"chat_id" bson:"chat_id"`
	ProjectID string `json:"project_id" bson:"project_id"`

	// Task is the question under deliberation.
	Task string `json:"task" bson:"task"`
	// Context accumulates additional context and human guidance.
	Context string `json:"context" bson:"context"`

	Rounds []RoundRecord `json:"rounds" bson:"rounds"`
	Status SessionStatus `json:"status" bson:"status"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// AddRound appends a round record and bumps UpdatedAt.
func (s *Session) AddRound(record RoundRecord) {
	s.Rounds = append(s.Rounds, record)
	s.UpdatedAt = time.Now().UTC()
}

// NextRoundNumber returns the 1-indexed number of the next round.
func (s *Session) NextRoundNumber() int {
	return len(s.Rounds) + 1
}

// LastRound returns the most recent round record, or nil when none exist.
func (s *Session) LastRound() *RoundRecord {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// Active reports whether the session can still be advanced.
func (s *Session) Active() bool {
	switch s.Status {
	case StatusConsensus, StatusCancelled:
		return false
	}
	return true
}

// RoundSummary is the compact view of a prior round handed to analysts for
// prompt economy.
type RoundSummary struct {
	RoundNumber int              `json:"round_number"`
	Merged      MergedScore      `json:"merged"`
	Responses   []ResponseDigest `json:"responses"`
}

// ResponseDigest is one prior response reduced to role + truncated text.
type ResponseDigest struct {
	AgentID  string `json:"agent_id"`
	RoleName string `json:"role_name"`
	Text     string `json:"text"`
}

// SummarizeRounds reduces round history to the compact form used in prompts.
// Each response's analysis text is truncated to maxTextLen runes.
func SummarizeRounds(rounds []RoundRecord, maxTextLen int) []RoundSummary {
	if len(rounds) == 0 {
		return nil
	}
	summaries := make([]RoundSummary, 0, len(rounds))
	for i := range rounds {
		r := &rounds[i]
		responses := r.Responses()
		digests := make([]ResponseDigest, 0, len(responses))
		for _, resp := range responses {
			digests = append(digests, ResponseDigest{
				AgentID:  resp.AgentID,
				RoleName: resp.RoleName,
				Text:     TruncateText(resp.Analysis, maxTextLen),
			})
		}
		summaries = append(summaries, RoundSummary{
			RoundNumber: r.RoundNumber,
			Merged:      r.Merged,
			Responses:   digests,
		})
	}
	return summaries
}

// TruncateText cuts s to at most maxLen runes, appending an ellipsis when
// something was dropped. maxLen <= 0 means no truncation.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

// Snippet is one retrieved knowledge fragment.
type Snippet struct {
	ID       string            `json:"id" bson:"id"`
	Content  string            `json:"content" bson:"content"`
	Score    float64           `json:"score" bson:"score"`
	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// String implements fmt.Stringer for log output.
func (s Snippet) String() string {
	return fmt.Sprintf("snippet(%s score=%.3f)", s.ID, s.Score)
}
