package store

import (
	"sync"

	"github.com/lcamargo/loom/core"
)

// MessageStore is an in-memory core.MessageStore preserving insertion order
// per conversation.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]*core.Message
	order    map[string][]string
	notifier core.Notifier
}

// NewMessageStore constructs an empty message store.
func NewMessageStore(notifier core.Notifier) *MessageStore {
	if notifier == nil {
		notifier = core.NoOpNotifier{}
	}
	return &MessageStore{
		messages: make(map[string]*core.Message),
		order:    make(map[string][]string),
		notifier: notifier,
	}
}

// Create implements core.MessageStore.
func (s *MessageStore) Create(msg *core.Message) (*core.Message, error) {
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	s.mu.Lock()
	s.messages[msg.ID] = cloneMessage(msg)
	s.order[msg.ConversationID] = append(s.order[msg.ConversationID], msg.ID)
	s.mu.Unlock()

	s.notifier.Emit("message-created", cloneMessage(msg))
	return msg, nil
}

// Update implements core.MessageStore.
func (s *MessageStore) Update(id string, msg *core.Message) (*core.Message, error) {
	s.mu.Lock()
	if _, ok := s.messages[id]; !ok {
		s.mu.Unlock()
		return nil, core.NewNotFoundError("message", id)
	}
	clone := cloneMessage(msg)
	clone.ID = id
	s.messages[id] = clone
	s.mu.Unlock()

	s.notifier.Emit("message-updated", cloneMessage(msg))
	return msg, nil
}

// GetByConversationID implements core.MessageStore.
func (s *MessageStore) GetByConversationID(conversationID string) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[conversationID]
	messages := make([]*core.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := s.messages[id]; ok {
			messages = append(messages, cloneMessage(msg))
		}
	}
	return messages, nil
}

func cloneMessage(msg *core.Message) *core.Message {
	clone := *msg
	clone.Blocks = make([]core.Block, len(msg.Blocks))
	copy(clone.Blocks, msg.Blocks)
	return &clone
}
