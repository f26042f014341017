package storage

import "fmt"

// NewSessionStore creates a session store for the configured backend.
func NewSessionStore(cfg Config) (SessionStore, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemorySessionStore(), nil
	case BackendMongo:
		return NewMongoSessionStore(cfg.Mongo)
	case BackendRedis:
		return NewRedisSessionStore(cfg.Redis)
	case BackendSQL:
		return NewPostgresSessionStore(cfg.SQL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
