package types

import "time"

// Role identifiers for the fixed parliament roles. Specialist roles are
// free-form ("specialist_1", "specialist_2", ...).
const (
	RoleGeneralist = "generalist"
	RoleSourcer    = "sourcer"
)

// PersonaConfig describes one parliament member: its persona text and its
// response budget. One concrete analyst implementation serves every role,
// differentiated purely by this record.
type PersonaConfig struct {
	// Persona is the raw persona Markdown ("# Role:" header plus
	// "# System Prompt" section).
	Persona string `json:"persona" bson:"persona" yaml:"persona"`
	// MaxTokens caps the analyst's response size.
	MaxTokens int `json:"max_tokens" bson:"max_tokens" yaml:"max_tokens"`
}

// Project is the configuration domain a session runs in: a software project,
// a business domain, or any other decision context.
type Project struct {
	ID          string `json:"project_id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// UserID is the owner.
	UserID int64 `json:"user_id" bson:"user_id"`

	// Generalist and Sourcer configure the two fixed roles; Specialists maps
	// specialist keys ("1", "2", ...) to their configuration.
	Generalist  PersonaConfig            `json:"generalist" bson:"generalist"`
	Sourcer     PersonaConfig            `json:"sourcer" bson:"sourcer"`
	Specialists map[string]PersonaConfig `json:"specialists" bson:"specialists"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
