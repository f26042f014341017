// Package parliament provides a top-level convenience entry point for
// assembling the deliberation engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/parliament"
//
//	mgr, err := parliament.New(myCompleter)
//	mgr, err := parliament.New(myCompleter, parliament.WithConfig(cfg), parliament.WithSessionStore(store))
//
// With no options the engine runs on in-memory stores and the default
// configuration; production deployments inject their own stores.
package parliament

import (
	"go.uber.org/zap"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/config"
	"github.com/BaSui01/parliament/deliberation"
	"github.com/BaSui01/parliament/storage"
)

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessions  storage.SessionStore
	projects  storage.ProjectStore
	knowledge storage.KnowledgeStore
	bus       deliberation.EventBus
}

// WithConfig sets the engine configuration. Defaults to [config.Default].
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger. Defaults to a logger built from the
// configuration's log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSessionStore sets the session store. Defaults to in-memory.
func WithSessionStore(store storage.SessionStore) Option {
	return func(o *options) { o.sessions = store }
}

// WithProjectStore sets the project store. Defaults to in-memory.
func WithProjectStore(store storage.ProjectStore) Option {
	return func(o *options) { o.projects = store }
}

// WithKnowledgeStore sets the knowledge store. Defaults to in-memory.
func WithKnowledgeStore(store storage.KnowledgeStore) Option {
	return func(o *options) { o.knowledge = store }
}

// WithEventBus sets the progress event bus. Without one, events are dropped.
func WithEventBus(bus deliberation.EventBus) Option {
	return func(o *options) { o.bus = bus }
}

// New assembles a [deliberation.SessionManager] around the given model
// capability.
func New(completer agent.Completer, opts ...Option) (*deliberation.SessionManager, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.Default()
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = config.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	if o.sessions == nil {
		o.sessions = storage.NewMemorySessionStore()
	}
	if o.projects == nil {
		o.projects = storage.NewMemoryProjectStore()
	}
	if o.knowledge == nil {
		o.knowledge = storage.NewMemoryKnowledgeStore()
	}

	return deliberation.NewSessionManager(deliberation.ManagerOptions{
		Sessions:  o.sessions,
		Projects:  o.projects,
		Knowledge: o.knowledge,
		Completer: completer,
		Config:    cfg,
		Logger:    logger,
		Bus:       o.bus,
	})
}
