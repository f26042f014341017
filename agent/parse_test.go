package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/parliament/types"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantScore    types.Score
		wantAnalysis string
	}{
		{
			name: "well formed",
			raw: `CROSS SCORES:
Confidence: 85
Risk: 20
Outcome: 80

ANALYSIS:
Use the existing queue, it is battle tested.`,
			wantScore: types.Score{
				Confidence:  85,
				Risk:        20,
				Outcome:     80,
				Explanation: "Use the existing queue, it is battle tested.",
			},
			wantAnalysis: "Use the existing queue, it is battle tested.",
		},
		{
			name: "decimal scores",
			raw: `Confidence: 72.5
Risk: 33.3
Outcome: 66.6

ANALYSIS:
Mixed signals.`,
			wantScore: types.Score{
				Confidence:  72.5,
				Risk:        33.3,
				Outcome:     66.6,
				Explanation: "Mixed signals.",
			},
			wantAnalysis: "Mixed signals.",
		},
		{
			name: "out of range clamped",
			raw: `Confidence: 150
Risk: 20
Outcome: 90

ANALYSIS:
Very sure.`,
			wantScore: types.Score{
				Confidence:  100,
				Risk:        20,
				Outcome:     90,
				Explanation: "Very sure.",
			},
			wantAnalysis: "Very sure.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, analysis := parseResponse(tt.raw)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantAnalysis, analysis)
		})
	}
}

func TestParseResponse_MalformedFallsBackToNeutral(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no scores at all", "I think this is a great idea."},
		{"missing outcome", "Confidence: 80\nRisk: 20\nANALYSIS:\nFine."},
		{"non numeric", "Confidence: high\nRisk: low\nOutcome: good"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := parseResponse(tt.raw)
			assert.Equal(t, types.NeutralScore, score.Confidence)
			assert.Equal(t, types.NeutralScore, score.Risk)
			assert.Equal(t, types.NeutralScore, score.Outcome)
			assert.NotEmpty(t, score.Explanation)
		})
	}
}

func TestParseResponse_AnalysisFallsBackToWholeReply(t *testing.T) {
	raw := "Confidence: 70\nRisk: 30\nOutcome: 60\nNo sections here."
	score, analysis := parseResponse(raw)
	assert.Equal(t, 70.0, score.Confidence)
	assert.Equal(t, raw, analysis)
}

func TestExtractSection(t *testing.T) {
	raw := "ANALYSIS:\nfirst part\nmore text\n\nPROPOSED APPROACH:\nsecond part"
	assert.Equal(t, "first part\nmore text", extractSection(raw, "ANALYSIS"))
	assert.Equal(t, "second part", extractSection(raw, "PROPOSED APPROACH"))
	assert.Equal(t, "", extractSection(raw, "CONCERNS"))
}
