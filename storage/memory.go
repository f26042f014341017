package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/BaSui01/parliament/types"
)

// MemorySessionStore is an in-memory SessionStore for development and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	closed   bool
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*types.Session)}
}

func (s *MemorySessionStore) Create(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.sessions[session.ID]; ok {
		return ErrAlreadyExists
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemorySessionStore) Update(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *MemorySessionStore) GetActive(ctx context.Context, userID int64, projectID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var best *types.Session
	for _, session := range s.sessions {
		if session.UserID != userID || session.ProjectID != projectID || !session.Active() {
			continue
		}
		if best == nil || session.UpdatedAt.After(best.UpdatedAt) {
			best = session
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneSession(best), nil
}

func (s *MemorySessionStore) ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var matches []*types.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.ProjectID == projectID {
			matches = append(matches, session)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*types.Session, len(matches))
	for i, m := range matches {
		out[i] = cloneSession(m)
	}
	return out, nil
}

func (s *MemorySessionStore) DeleteProjectSessions(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	var n int64
	for id, session := range s.sessions {
		if session.ProjectID == projectID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *MemorySessionStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemorySessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// cloneSession deep-copies a session so callers never share round slices
// with the store.
func cloneSession(in *types.Session) *types.Session {
	out := *in
	if in.Rounds != nil {
		out.Rounds = make([]types.RoundRecord, len(in.Rounds))
		copy(out.Rounds, in.Rounds)
		for i := range out.Rounds {
			specialists := out.Rounds[i].Specialists
			if specialists != nil {
				out.Rounds[i].Specialists = make([]types.AgentResponse, len(specialists))
				copy(out.Rounds[i].Specialists, specialists)
			}
		}
	}
	return &out
}

// MemoryProjectStore is an in-memory ProjectStore.
type MemoryProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*types.Project
}

// NewMemoryProjectStore creates an empty in-memory project store.
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[string]*types.Project)}
}

func (s *MemoryProjectStore) Put(ctx context.Context, project *types.Project) error {
	if project == nil || project.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *project
	s.projects[project.ID] = &clone
	return nil
}

func (s *MemoryProjectStore) Get(ctx context.Context, projectID string) (*types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *project
	return &clone, nil
}

func (s *MemoryProjectStore) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, projectID)
	return nil
}

func (s *MemoryProjectStore) List(ctx context.Context, userID int64) ([]*types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryKnowledgeStore is a naive in-memory KnowledgeStore using term
// overlap for ranking. Real deployments plug in a vector store behind the
// KnowledgeStore interface; this one keeps tests and single-node setups
// self-contained.
type MemoryKnowledgeStore struct {
	mu      sync.RWMutex
	entries map[string][]types.Snippet // project id -> snippets
}

// NewMemoryKnowledgeStore creates an empty in-memory knowledge store.
func NewMemoryKnowledgeStore() *MemoryKnowledgeStore {
	return &MemoryKnowledgeStore{entries: make(map[string][]types.Snippet)}
}

func (s *MemoryKnowledgeStore) Add(ctx context.Context, projectID, content string, metadata map[string]string) error {
	if projectID == "" || content == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[projectID] = append(s.entries[projectID], types.Snippet{
		ID:       uuid.NewString(),
		Content:  content,
		Metadata: metadata,
	})
	return nil
}

func (s *MemoryKnowledgeStore) Search(ctx context.Context, projectID, query string, limit int) ([]types.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var scored []types.Snippet
	for _, snippet := range s.entries[projectID] {
		content := strings.ToLower(snippet.Content)
		hits := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		snippet.Score = float64(hits) / float64(len(terms))
		scored = append(scored, snippet)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *MemoryKnowledgeStore) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, projectID)
	return nil
}
