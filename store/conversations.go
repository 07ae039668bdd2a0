package store

import (
	"fmt"
	"sync"

	"github.com/lcamargo/loom/core"
)

// ConversationStore is an in-memory core.ConversationStore. Creating a
// conversation defaults its title and back-links it into the owning
// project's conversation list.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
	projects      core.ProjectStore
	notifier      core.Notifier
}

// NewConversationStore constructs an empty conversation store.
func NewConversationStore(projects core.ProjectStore, notifier core.Notifier) *ConversationStore {
	if notifier == nil {
		notifier = core.NoOpNotifier{}
	}
	return &ConversationStore{
		conversations: make(map[string]*core.Conversation),
		projects:      projects,
		notifier:      notifier,
	}
}

// GetByID implements core.ConversationStore.
func (s *ConversationStore) GetByID(id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, core.NewNotFoundError("conversation", id)
	}
	return cloneConversation(c), nil
}

// Create implements core.ConversationStore.
func (s *ConversationStore) Create(c *core.Conversation) (*core.Conversation, error) {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if c.Title == "" {
		c.Title = fmt.Sprintf("Conversation %s", c.ID)
	}
	if err := s.linkToProject(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conversations[c.ID] = cloneConversation(c)
	s.mu.Unlock()

	s.notifier.Emit("conversation-created", cloneConversation(c))
	return c, nil
}

// Update implements core.ConversationStore.
func (s *ConversationStore) Update(id string, c *core.Conversation) (*core.Conversation, error) {
	s.mu.Lock()
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return nil, core.NewNotFoundError("conversation", id)
	}
	clone := cloneConversation(c)
	clone.ID = id
	s.conversations[id] = clone
	s.mu.Unlock()

	s.notifier.Emit("conversation-updated", cloneConversation(c))
	return c, nil
}

func (s *ConversationStore) linkToProject(c *core.Conversation) error {
	project, err := s.projects.GetByID(c.ProjectID)
	if err != nil {
		return err
	}
	for _, id := range project.Conversations {
		if id == c.ID {
			return nil
		}
	}
	project.Conversations = append(project.Conversations, c.ID)
	_, err = s.projects.Update(project.ID, project)
	return err
}

func cloneConversation(c *core.Conversation) *core.Conversation {
	clone := *c
	return &clone
}
