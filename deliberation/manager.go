package deliberation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/parliament/agent"
	"github.com/BaSui01/parliament/config"
	"github.com/BaSui01/parliament/internal/metrics"
	"github.com/BaSui01/parliament/storage"
	"github.com/BaSui01/parliament/types"
)

// ManagerOptions wires the session manager's dependencies. Sessions,
// Projects, and Completer are required; everything else has a working
// default.
type ManagerOptions struct {
	Sessions  storage.SessionStore
	Projects  storage.ProjectStore
	Knowledge storage.KnowledgeStore
	Completer agent.Completer
	Config    *config.Config
	Logger    *zap.Logger
	Bus       EventBus
	Metrics   *metrics.Collector
}

// SessionManager owns the session lifecycle: creation, round advancement,
// human feedback, cancellation, and the project-scoped parliament cache.
// Safe for concurrent use.
type SessionManager struct {
	sessions  storage.SessionStore
	projects  storage.ProjectStore
	knowledge storage.KnowledgeStore
	completer agent.Completer
	executor  *RoundExecutor
	cfg       *config.Config
	bus       EventBus
	metrics   *metrics.Collector
	logger    *zap.Logger

	mu          sync.RWMutex
	parliaments map[string]*agent.Parliament
	building    singleflight.Group
}

// NewSessionManager validates the options and assembles the engine.
func NewSessionManager(opts ManagerOptions) (*SessionManager, error) {
	if opts.Sessions == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "session store is required")
	}
	if opts.Projects == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "project store is required")
	}
	if opts.Completer == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "completer is required")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := opts.Bus
	if bus == nil {
		bus = nopBus{}
	}

	consensus := NewConsensusBuilder(cfg.Thresholds, cfg.DeadEnd, logger)
	executor := NewRoundExecutor(consensus, opts.Knowledge, cfg.Executor, bus, opts.Metrics, logger)

	return &SessionManager{
		sessions:    opts.Sessions,
		projects:    opts.Projects,
		knowledge:   opts.Knowledge,
		completer:   opts.Completer,
		executor:    executor,
		cfg:         cfg,
		bus:         bus,
		metrics:     opts.Metrics,
		logger:      logger.With(zap.String("component", "session_manager")),
		parliaments: make(map[string]*agent.Parliament),
	}, nil
}

// newSessionID produces a unique, time-sortable session id.
func newSessionID() string {
	return fmt.Sprintf("sess_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// CreateSession starts a new deliberation session for the (user, project)
// pair. A user may only run one active session per project at a time.
func (m *SessionManager) CreateSession(ctx context.Context, userID, chatID int64, projectID, task, extraContext string) (*types.Session, error) {
	if strings.TrimSpace(task) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "task must not be empty")
	}

	if _, err := m.projects.Get(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.NewErrorf(types.ErrProjectNotFound, "project %s", projectID)
		}
		return nil, types.NewError(types.ErrStorage, "load project").WithCause(err)
	}

	if active, err := m.sessions.GetActive(ctx, userID, projectID); err == nil {
		return nil, types.NewErrorf(types.ErrInvalidRequest, "active session %s already exists for project %s", active.ID, projectID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewError(types.ErrStorage, "check active session").WithCause(err)
	}

	now := time.Now().UTC()
	session := &types.Session{
		ID:        newSessionID(),
		UserID:    userID,
		ChatID:    chatID,
		ProjectID: projectID,
		Task:      task,
		Context:   extraContext,
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, types.NewError(types.ErrStorage, "create session").WithCause(err)
	}

	m.bus.Publish(Event{Type: EventSessionCreated, SessionID: session.ID, ProjectID: projectID})
	m.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("project_id", projectID),
		zap.Int64("user_id", userID),
	)
	return session, nil
}

// RunRound advances the session by one deliberation round and persists the
// resulting state. When the round budget is already spent, the session moves
// straight to dead_end without recording a round.
func (m *SessionManager) RunRound(ctx context.Context, sessionID string) (*types.RoundRecord, error) {
	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case types.StatusPending, types.StatusDeliberating, types.StatusAwaitingContinuation:
	case types.StatusDeadEnd:
		return nil, types.NewErrorf(types.ErrInvalidTransition, "session %s is at a dead end, submit guidance first", sessionID)
	default:
		return nil, types.NewErrorf(types.ErrInvalidTransition, "session %s is %s", sessionID, session.Status)
	}

	if session.NextRoundNumber() > m.cfg.MaxRounds {
		if err := m.transition(ctx, session, types.StatusDeadEnd); err != nil {
			return nil, err
		}
		m.bus.Publish(Event{Type: EventBudgetExhausted, SessionID: session.ID, ProjectID: session.ProjectID, Round: len(session.Rounds)})
		m.logger.Warn("round budget exhausted", zap.String("session_id", sessionID), zap.Int("max_rounds", m.cfg.MaxRounds))
		return nil, types.NewErrorf(types.ErrRoundBudget, "session %s spent its %d-round budget", sessionID, m.cfg.MaxRounds)
	}

	prev := session.Status
	if err := m.transition(ctx, session, types.StatusDeliberating); err != nil {
		return nil, err
	}

	parliament, err := m.parliamentFor(ctx, session.ProjectID)
	if err != nil {
		// The round never ran; put the session back where it was.
		_ = m.transition(ctx, session, prev)
		return nil, err
	}

	record, err := m.executor.Execute(ctx, parliament, session)
	if err != nil {
		_ = m.transition(ctx, session, prev)
		return nil, err
	}

	session.AddRound(*record)
	next, event := statusFor(record.Decision)
	if err := m.transition(ctx, session, next); err != nil {
		return nil, err
	}
	m.bus.Publish(Event{
		Type:      event,
		SessionID: session.ID,
		ProjectID: session.ProjectID,
		Round:     record.RoundNumber,
		Decision:  record.Decision,
		Detail:    record.Reasoning,
	})

	return record, nil
}

// statusFor maps a round decision to the session status and event it implies.
func statusFor(decision types.Decision) (types.SessionStatus, EventType) {
	switch decision {
	case types.DecisionConsensus:
		return types.StatusConsensus, EventConsensus
	case types.DecisionDeadEnd:
		return types.StatusDeadEnd, EventDeadEnd
	default:
		return types.StatusAwaitingContinuation, EventAwaitingHuman
	}
}

// ContinueSession runs the next round for a session that is waiting on the
// user.
func (m *SessionManager) ContinueSession(ctx context.Context, sessionID string) (*types.RoundRecord, error) {
	return m.RunRound(ctx, sessionID)
}

// SubmitFeedback folds human guidance into the session. With restart the
// round history is cleared and the context buffer is replaced by the
// feedback, so deliberation starts over on the new framing alone; otherwise
// the guidance is appended and the session becomes continuable again.
func (m *SessionManager) SubmitFeedback(ctx context.Context, sessionID, feedback string, restart bool) error {
	if strings.TrimSpace(feedback) == "" {
		return types.NewError(types.ErrInvalidRequest, "feedback must not be empty")
	}

	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch session.Status {
	case types.StatusConsensus, types.StatusCancelled:
		return types.NewErrorf(types.ErrInvalidTransition, "session %s is %s", sessionID, session.Status)
	}

	next := types.StatusAwaitingContinuation
	if restart {
		session.Rounds = nil
		session.Context = feedback
		next = types.StatusPending
	} else if session.Context == "" {
		session.Context = "Human guidance: " + feedback
	} else {
		session.Context += "\n\nHuman guidance: " + feedback
	}
	if err := m.transition(ctx, session, next); err != nil {
		return err
	}

	m.bus.Publish(Event{Type: EventFeedback, SessionID: session.ID, ProjectID: session.ProjectID, Detail: feedback})
	m.logger.Info("feedback submitted",
		zap.String("session_id", sessionID),
		zap.Bool("restart", restart),
	)
	return nil
}

// CancelSession cancels the session. Cancelling an already cancelled session
// is a no-op; a session that reached consensus cannot be cancelled.
func (m *SessionManager) CancelSession(ctx context.Context, sessionID string) error {
	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch session.Status {
	case types.StatusCancelled:
		return nil
	case types.StatusConsensus:
		return types.NewErrorf(types.ErrInvalidTransition, "session %s already reached consensus", sessionID)
	}

	if err := m.transition(ctx, session, types.StatusCancelled); err != nil {
		return err
	}
	m.bus.Publish(Event{Type: EventSessionCancel, SessionID: session.ID, ProjectID: session.ProjectID})
	m.logger.Info("session cancelled", zap.String("session_id", sessionID))
	return nil
}

// ActiveSession returns the user's active session for the project, if any.
func (m *SessionManager) ActiveSession(ctx context.Context, userID int64, projectID string) (*types.Session, error) {
	session, err := m.sessions.GetActive(ctx, userID, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewErrorf(types.ErrSessionNotFound, "no active session for project %s", projectID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "load active session").WithCause(err)
	}
	return session, nil
}

// GetSession returns the session by id.
func (m *SessionManager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return m.getSession(ctx, sessionID)
}

// ListRecent returns the user's most recent sessions for the project.
func (m *SessionManager) ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error) {
	sessions, err := m.sessions.ListRecent(ctx, userID, projectID, limit)
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "list sessions").WithCause(err)
	}
	return sessions, nil
}

// RunSourcer runs the project's single-shot sourcer outside any session:
// research and context gathering without scoring consequences.
func (m *SessionManager) RunSourcer(ctx context.Context, projectID, query string) (*types.AgentResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query must not be empty")
	}
	parliament, err := m.parliamentFor(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if parliament.Sourcer == nil {
		return nil, types.NewErrorf(types.ErrAgentNotFound, "project %s has no sourcer", projectID)
	}

	req := agent.Request{Task: query}
	if m.knowledge != nil {
		snippets, err := m.knowledge.Search(ctx, projectID, query, m.cfg.Executor.KnowledgeLimit)
		if err != nil {
			m.logger.Warn("knowledge retrieval failed", zap.String("project_id", projectID), zap.Error(err))
		} else {
			req.Knowledge = snippets
		}
	}
	return parliament.Sourcer.Analyze(ctx, req)
}

// LearnFromText splits free text into paragraphs and stores each as project
// knowledge for later retrieval.
func (m *SessionManager) LearnFromText(ctx context.Context, projectID, text string, metadata map[string]string) (int, error) {
	if m.knowledge == nil {
		return 0, types.NewError(types.ErrInvalidConfig, "no knowledge store configured")
	}
	added := 0
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if err := m.knowledge.Add(ctx, projectID, paragraph, metadata); err != nil {
			return added, types.NewError(types.ErrStorage, "store knowledge").WithCause(err)
		}
		added++
	}
	m.logger.Info("learned from text", zap.String("project_id", projectID), zap.Int("chunks", added))
	return added, nil
}

// UpsertProject creates or replaces a project and invalidates its cached
// parliament.
func (m *SessionManager) UpsertProject(ctx context.Context, project *types.Project) error {
	if project == nil || project.ID == "" {
		return types.NewError(types.ErrInvalidRequest, "project id is required")
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	if err := m.projects.Put(ctx, project); err != nil {
		return types.NewError(types.ErrStorage, "store project").WithCause(err)
	}
	m.InvalidateAgentCache(project.ID)
	return nil
}

// GetProject returns the project by id.
func (m *SessionManager) GetProject(ctx context.Context, projectID string) (*types.Project, error) {
	project, err := m.projects.Get(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewErrorf(types.ErrProjectNotFound, "project %s", projectID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "load project").WithCause(err)
	}
	return project, nil
}

// DeleteProject removes the project together with all its sessions and
// knowledge, and returns the number of sessions deleted.
func (m *SessionManager) DeleteProject(ctx context.Context, projectID string) (int64, error) {
	deleted, err := m.sessions.DeleteProjectSessions(ctx, projectID)
	if err != nil {
		return deleted, types.NewError(types.ErrStorage, "delete project sessions").WithCause(err)
	}
	if m.knowledge != nil {
		if err := m.knowledge.DeleteProject(ctx, projectID); err != nil {
			return deleted, types.NewError(types.ErrStorage, "delete project knowledge").WithCause(err)
		}
	}
	if err := m.projects.Delete(ctx, projectID); err != nil {
		return deleted, types.NewError(types.ErrStorage, "delete project").WithCause(err)
	}
	m.InvalidateAgentCache(projectID)
	m.logger.Info("project deleted", zap.String("project_id", projectID), zap.Int64("sessions_deleted", deleted))
	return deleted, nil
}

// InvalidateAgentCache drops the cached parliament for the project, forcing a
// rebuild from the stored personas on next use.
func (m *SessionManager) InvalidateAgentCache(projectID string) {
	m.mu.Lock()
	delete(m.parliaments, projectID)
	m.mu.Unlock()
}

// parliamentFor returns the project's parliament, building it at most once
// per project under concurrency.
func (m *SessionManager) parliamentFor(ctx context.Context, projectID string) (*agent.Parliament, error) {
	m.mu.RLock()
	cached, ok := m.parliaments[projectID]
	m.mu.RUnlock()
	if ok {
		m.metrics.RecordCacheHit("parliament")
		return cached, nil
	}
	m.metrics.RecordCacheMiss("parliament")

	v, err, _ := m.building.Do(projectID, func() (any, error) {
		project, err := m.projects.Get(ctx, projectID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.NewErrorf(types.ErrProjectNotFound, "project %s", projectID)
		}
		if err != nil {
			return nil, types.NewError(types.ErrStorage, "load project").WithCause(err)
		}

		parliament, err := agent.BuildParliament(project, m.completer, m.logger)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.parliaments[projectID] = parliament
		m.mu.Unlock()
		return parliament, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*agent.Parliament), nil
}

// getSession loads a session, mapping storage misses to the domain error.
func (m *SessionManager) getSession(ctx context.Context, sessionID string) (*types.Session, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewErrorf(types.ErrSessionNotFound, "session %s", sessionID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "load session").WithCause(err)
	}
	return session, nil
}

// transition moves the session to the new status and persists it. Every
// status change goes through here so the store always reflects the current
// state.
func (m *SessionManager) transition(ctx context.Context, session *types.Session, to types.SessionStatus) error {
	from := session.Status
	session.Status = to
	session.UpdatedAt = time.Now().UTC()
	if err := m.sessions.Update(ctx, session); err != nil {
		session.Status = from
		return types.NewError(types.ErrStorage, "persist session").WithCause(err)
	}
	if from != to {
		m.metrics.RecordTransition(string(from), string(to))
	}
	return nil
}
