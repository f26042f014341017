// Package storage provides persistent storage contracts and implementations
// for deliberation sessions, projects, and learned knowledge.
//
// Supported session-store backends:
//   - Memory:   development and testing (default)
//   - MongoDB:  document-per-session production deployments
//   - Redis:    distributed deployments with existing Redis infrastructure
//   - SQL:      relational deployments (session document in a JSON column)
//
// All session operations are atomic with respect to a single session
// document: a session is always written whole.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/parliament/types"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidInput  = errors.New("invalid input")
)

// Backend identifies a session-store backend.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendMongo  Backend = "mongo"
	BackendRedis  Backend = "redis"
	BackendSQL    Backend = "sql"
)

// SessionStore persists deliberation sessions. One document per session,
// containing the full round history, so a conversation can be replayed
// without recomputation.
type SessionStore interface {
	// Create stores a new session. Fails with ErrAlreadyExists on id reuse.
	Create(ctx context.Context, session *types.Session) error

	// Update overwrites the stored session document.
	Update(ctx context.Context, session *types.Session) error

	// Get returns the session by id, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*types.Session, error)

	// GetActive returns the most recently updated non-terminal session for
	// the (user, project) pair, or ErrNotFound. The collaborator layer uses
	// this to reject concurrent session creation.
	GetActive(ctx context.Context, userID int64, projectID string) (*types.Session, error)

	// ListRecent returns up to limit sessions for the (user, project) pair,
	// most recently updated first.
	ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error)

	// DeleteProjectSessions removes every session of a project and returns
	// the number deleted.
	DeleteProjectSessions(ctx context.Context, projectID string) (int64, error)

	// Ping checks store health.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// ProjectStore persists project configuration.
type ProjectStore interface {
	// Put creates or replaces a project.
	Put(ctx context.Context, project *types.Project) error

	// Get returns the project by id, or ErrNotFound.
	Get(ctx context.Context, projectID string) (*types.Project, error)

	// Delete removes the project. Deleting a missing project is a no-op.
	Delete(ctx context.Context, projectID string) error

	// List returns all projects owned by the user.
	List(ctx context.Context, userID int64) ([]*types.Project, error)
}

// KnowledgeStore is the retrieval capability: ranked prior-knowledge lookup
// scoped to a project. Search returns an empty slice on miss and never fails
// for "not found" — retrieval is always best-effort.
type KnowledgeStore interface {
	// Search returns up to limit snippets relevant to query, best first.
	Search(ctx context.Context, projectID, query string, limit int) ([]types.Snippet, error)

	// Add stores a knowledge fragment for later retrieval.
	Add(ctx context.Context, projectID, content string, metadata map[string]string) error

	// DeleteProject removes all knowledge of a project.
	DeleteProject(ctx context.Context, projectID string) error
}

// Config selects and configures the storage backends.
type Config struct {
	// Backend selects the session/project store backend.
	Backend Backend `yaml:"backend" json:"backend"`

	Mongo MongoConfig `yaml:"mongo" json:"mongo"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
	SQL   SQLConfig   `yaml:"sql" json:"sql"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI      string `yaml:"uri" json:"uri"`
	Database string `yaml:"database" json:"database"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr" json:"addr"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	PoolSize  int           `yaml:"pool_size" json:"pool_size"`
	// TTL expires idle session documents; zero keeps them forever.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// SQLConfig configures the SQL backend.
type SQLConfig struct {
	// DSN is the database connection string.
	DSN string `yaml:"dsn" json:"dsn"`
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "parliament",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "parliament:",
			PoolSize:  10,
		},
	}
}
