package runner

import (
	"sync"

	"github.com/lcamargo/loom/core"
)

// Registry tracks the cancellation token of every executing task. Its sole
// purpose is preventing duplicate concurrent runs of the same task id;
// different ids run fully concurrently.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*core.CancelToken
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*core.CancelToken)}
}

// Register records the token for a task id. It reports false without
// overwriting when the id is already registered.
func (r *Registry) Register(taskID string, token *core.CancelToken) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[taskID]; exists {
		return false
	}
	r.tokens[taskID] = token
	return true
}

// Unregister removes a task id. Removing an absent id is a no-op.
func (r *Registry) Unregister(taskID string) {
	r.mu.Lock()
	delete(r.tokens, taskID)
	r.mu.Unlock()
}

// Get returns the registered token for a task id.
func (r *Registry) Get(taskID string) (*core.CancelToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[taskID]
	return token, ok
}

// IsRunning reports whether the task id has an in-flight run.
func (r *Registry) IsRunning(taskID string) bool {
	_, ok := r.Get(taskID)
	return ok
}
