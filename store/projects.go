package store

import (
	"sync"

	"github.com/lcamargo/loom/core"
)

// ProjectStore is an in-memory core.ProjectStore.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*core.Project
	notifier core.Notifier
}

// NewProjectStore constructs an empty project store.
func NewProjectStore(notifier core.Notifier) *ProjectStore {
	if notifier == nil {
		notifier = core.NoOpNotifier{}
	}
	return &ProjectStore{
		projects: make(map[string]*core.Project),
		notifier: notifier,
	}
}

// GetByID implements core.ProjectStore.
func (s *ProjectStore) GetByID(id string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, core.NewNotFoundError("project", id)
	}
	return cloneProject(p), nil
}

// Create implements core.ProjectStore.
func (s *ProjectStore) Create(p *core.Project) (*core.Project, error) {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	s.mu.Lock()
	s.projects[p.ID] = cloneProject(p)
	s.mu.Unlock()

	s.notifier.Emit("project-created", cloneProject(p))
	return p, nil
}

// Update implements core.ProjectStore.
func (s *ProjectStore) Update(id string, p *core.Project) (*core.Project, error) {
	s.mu.Lock()
	if _, ok := s.projects[id]; !ok {
		s.mu.Unlock()
		return nil, core.NewNotFoundError("project", id)
	}
	clone := cloneProject(p)
	clone.ID = id
	s.projects[id] = clone
	s.mu.Unlock()

	s.notifier.Emit("project-updated", cloneProject(p))
	return p, nil
}

func cloneProject(p *core.Project) *core.Project {
	clone := *p
	clone.Tasks = append([]string(nil), p.Tasks...)
	clone.Conversations = append([]string(nil), p.Conversations...)
	return &clone
}

// AssistantStore is an in-memory core.AssistantStore.
type AssistantStore struct {
	mu         sync.RWMutex
	assistants map[string]*core.Assistant
}

// NewAssistantStore constructs an empty assistant store.
func NewAssistantStore() *AssistantStore {
	return &AssistantStore{assistants: make(map[string]*core.Assistant)}
}

// GetByID implements core.AssistantStore.
func (s *AssistantStore) GetByID(id string) (*core.Assistant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assistants[id]
	if !ok {
		return nil, core.NewNotFoundError("assistant", id)
	}
	clone := *a
	return &clone, nil
}

// Create implements core.AssistantStore.
func (s *AssistantStore) Create(a *core.Assistant) (*core.Assistant, error) {
	if a.ID == "" {
		a.ID = core.NewID()
	}
	s.mu.Lock()
	clone := *a
	s.assistants[a.ID] = &clone
	s.mu.Unlock()
	return a, nil
}
