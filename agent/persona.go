package agent

import (
	"regexp"
	"strings"
)

// Persona is the parsed form of a persona Markdown document.
type Persona struct {
	// RoleName is the human-readable role from the "# Role:" header.
	RoleName string
	// SystemPrompt is everything under the "# System Prompt" header.
	SystemPrompt string
}

var (
	roleHeaderRe   = regexp.MustCompile(`(?im)^(?:#\s*Role:|role:)\s*(.*)$`)
	promptHeaderRe = regexp.MustCompile(`(?im)^#+\s*System\s+Prompt.*$`)
)

// ParsePersona extracts the role name and system prompt from persona
// Markdown. Falls back to treating the whole document as the system prompt
// when neither header is present.
func ParsePersona(text string) Persona {
	var p Persona

	if m := roleHeaderRe.FindStringSubmatch(text); m != nil {
		p.RoleName = strings.Trim(strings.TrimSpace(m[1]), `"'`)
	}

	if loc := promptHeaderRe.FindStringIndex(text); loc != nil {
		p.SystemPrompt = strings.TrimSpace(text[loc[1]:])
	} else if p.RoleName == "" {
		p.SystemPrompt = strings.TrimSpace(text)
	}

	return p
}
