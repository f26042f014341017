package agent

import (
	"fmt"
	"strings"
)

// responseFormat is the reply structure every analyst is instructed to use.
// The CROSS block is what parse.go extracts.
const responseFormat = `Please analyze this task from your perspective and provide your response in the following format:

CROSS SCORES:
Confidence: [0-100]
Risk: [0-100]
Outcome: [0-100]

ANALYSIS:
[Your detailed analysis and recommendation]`

// buildPrompt assembles the analyst prompt from the request, in a fixed
// section order so identical inputs yield identical prompts.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK:\n%s\n", req.Task)

	if req.Context != "" {
		fmt.Fprintf(&b, "\nADDITIONAL CONTEXT:\n%s\n", req.Context)
	}

	if len(req.Knowledge) > 0 {
		b.WriteString("\nRELEVANT KNOWLEDGE:\n")
		for i, snippet := range req.Knowledge {
			fmt.Fprintf(&b, "Snippet %d: %s\n", i+1, snippet.Content)
		}
	}

	if len(req.Peers) > 0 {
		b.WriteString("\nTHIS ROUND'S SPECIALIST RESPONSES:\n")
		for _, peer := range req.Peers {
			role := peer.RoleName
			if role == "" {
				role = peer.AgentID
			}
			fmt.Fprintf(&b, "\n[%s] Confidence: %.0f, Risk: %.0f, Outcome: %.0f\n%s\n",
				role, peer.Score.Confidence, peer.Score.Risk, peer.Score.Outcome, peer.Analysis)
		}
		b.WriteString("\nSynthesize the specialist positions above into a single assessment. Weigh their agreements and conflicts; do not restate them.\n")
	}

	if len(req.History) > 0 {
		b.WriteString("\nPREVIOUS DELIBERATION ROUNDS:\n")
		for _, round := range req.History {
			fmt.Fprintf(&b, "\nRound %d: avg confidence %.1f, max risk %.1f, avg outcome %.1f\n",
				round.RoundNumber, round.Merged.AvgConfidence, round.Merged.MaxRisk, round.Merged.AvgOutcome)
			for _, resp := range round.Responses {
				role := resp.RoleName
				if role == "" {
					role = resp.AgentID
				}
				fmt.Fprintf(&b, "- %s: %s\n", role, resp.Text)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(responseFormat)
	return b.String()
}
