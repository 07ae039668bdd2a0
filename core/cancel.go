package core

import "sync"

// CancelToken is a cooperative, polled cancellation handle with a one-shot
// callback. Long-running operations hold a token and check IsCanceled at
// suspension boundaries; cancellation is advisory and never preemptive.
//
// The callback fires exactly once, on whichever comes first: an explicit
// Cancel call or the first IsCanceled poll that observes the canceled flag.
// This lets a canceled run trigger its cleanup without a separate "cancel"
// entrypoint having to be invoked.
type CancelToken struct {
	mu       sync.Mutex
	canceled bool
	once     sync.Once
	onCancel func()
	taskID   string
}

// NewCancelToken creates a token with an on-cancel callback. onCancel may
// be nil.
func NewCancelToken(onCancel func()) *CancelToken {
	return &CancelToken{onCancel: onCancel}
}

// NewTaskCancelToken creates a token tagged with the task id it guards.
func NewTaskCancelToken(taskID string, onCancel func()) *CancelToken {
	t := NewCancelToken(onCancel)
	t.taskID = taskID
	return t
}

// TaskID returns the task id the token is tagged with, if any.
func (t *CancelToken) TaskID() string { return t.taskID }

// Cancel flips the token. Calling it again after the first transition is a
// no-op.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
	t.fire()
}

// IsCanceled reports whether the token was canceled, firing the on-cancel
// callback as a side effect the first time it observes true.
func (t *CancelToken) IsCanceled() bool {
	t.mu.Lock()
	canceled := t.canceled
	t.mu.Unlock()
	if canceled {
		t.fire()
	}
	return canceled
}

func (t *CancelToken) fire() {
	t.once.Do(func() {
		if t.onCancel != nil {
			t.onCancel()
		}
	})
}
