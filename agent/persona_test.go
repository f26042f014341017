package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersona(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantRole   string
		wantPrompt string
	}{
		{
			name: "role header and system prompt",
			text: `# Role: Progressive Architect

# System Prompt
You push for bold structural changes.
Favor long-term leverage.`,
			wantRole:   "Progressive Architect",
			wantPrompt: "You push for bold structural changes.\nFavor long-term leverage.",
		},
		{
			name:       "lowercase role key",
			text:       "role: \"Site Reliability Critic\"\n\n## System Prompt\nAssume everything fails.",
			wantRole:   "Site Reliability Critic",
			wantPrompt: "Assume everything fails.",
		},
		{
			name:       "no headers falls back to whole text",
			text:       "You are a careful reviewer of plans.",
			wantRole:   "",
			wantPrompt: "You are a careful reviewer of plans.",
		},
		{
			name:       "role without prompt section",
			text:       "# Role: Generalist\nSome unstructured notes.",
			wantRole:   "Generalist",
			wantPrompt: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePersona(tt.text)
			assert.Equal(t, tt.wantRole, p.RoleName)
			assert.Equal(t, tt.wantPrompt, p.SystemPrompt)
		})
	}
}
