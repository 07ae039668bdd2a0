package store

import (
	"sync"

	"github.com/lcamargo/loom/core"
)

// TaskStore is an in-memory core.TaskStore. Creating a task back-links it
// into the owning project's task list.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*core.Task
	projects core.ProjectStore
	notifier core.Notifier
}

// NewTaskStore constructs an empty task store.
func NewTaskStore(projects core.ProjectStore, notifier core.Notifier) *TaskStore {
	if notifier == nil {
		notifier = core.NoOpNotifier{}
	}
	return &TaskStore{
		tasks:    make(map[string]*core.Task),
		projects: projects,
		notifier: notifier,
	}
}

// GetByID implements core.TaskStore.
func (s *TaskStore) GetByID(id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, core.NewNotFoundError("task", id)
	}
	return cloneTask(t), nil
}

// Create implements core.TaskStore.
func (s *TaskStore) Create(t *core.Task) (*core.Task, error) {
	if t.ID == "" {
		t.ID = core.NewID()
	}
	if t.Status == "" {
		t.Status = core.TaskStatusBacklog
	}
	if err := s.linkToProject(t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks[t.ID] = cloneTask(t)
	s.mu.Unlock()

	s.notifier.Emit("task-created", cloneTask(t))
	return t, nil
}

// Update implements core.TaskStore.
func (s *TaskStore) Update(id string, t *core.Task) (*core.Task, error) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return nil, core.NewNotFoundError("task", id)
	}
	clone := cloneTask(t)
	clone.ID = id
	s.tasks[id] = clone
	s.mu.Unlock()

	s.notifier.Emit("task-updated", cloneTask(t))
	return t, nil
}

func cloneTask(t *core.Task) *core.Task {
	clone := *t
	clone.References = append([]string(nil), t.References...)
	return &clone
}

func (s *TaskStore) linkToProject(t *core.Task) error {
	project, err := s.projects.GetByID(t.ProjectID)
	if err != nil {
		return err
	}
	for _, id := range project.Tasks {
		if id == t.ID {
			return nil
		}
	}
	project.Tasks = append(project.Tasks, t.ID)
	_, err = s.projects.Update(project.ID, project)
	return err
}
