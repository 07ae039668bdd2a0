package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcamargo/loom/agent"
	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/prompt"
	"github.com/lcamargo/loom/provider"
	"github.com/lcamargo/loom/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Emit(event string, _ any) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) Count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e == event {
			count++
		}
	}
	return count
}

// blockingProvider holds its single turn open until released, so tests can
// observe a run mid-flight.
type blockingProvider struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{release: make(chan struct{})}
}

func (p *blockingProvider) Kind() provider.Kind { return provider.KindAnthropic }

func (p *blockingProvider) ChatCompletion(
	_ context.Context,
	_ string,
	_ []*core.Message,
	token *core.CancelToken,
	_ []provider.FormattedTool,
	_ provider.Handler,
) error {
	if token.IsCanceled() {
		return nil
	}
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-p.release
	return nil
}

func (p *blockingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	stores   agent.Stores
	registry *Registry
	notifier *recordingNotifier
	project  *core.Project
	runner   *Runner
}

func newFixture(t *testing.T, p provider.Provider) *fixture {
	t.Helper()

	projects := store.NewProjectStore(nil)
	project, err := projects.Create(&core.Project{Name: "demo", Path: t.TempDir()})
	require.NoError(t, err)

	stores := agent.Stores{
		Messages:      store.NewMessageStore(nil),
		Conversations: store.NewConversationStore(projects, nil),
		Tasks:         store.NewTaskStore(projects, nil),
		Projects:      projects,
		Assistants:    store.NewAssistantStore(),
	}

	registry := provider.NewRegistry(provider.KindAnthropic)
	registry.Register(p)

	templates := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(templates, prompt.RunTaskTemplate),
		[]byte("work on {{ .project.Name }}: {{ .task.Title }}"),
		0o644,
	))
	renderer := prompt.NewFileRenderer(templates)

	orchestrator := agent.New(stores, registry, agent.WithDefaultModel("test-model"), agent.WithRenderer(renderer))

	notifier := &recordingNotifier{}
	execRegistry := NewRegistry()
	return &fixture{
		stores:   stores,
		registry: execRegistry,
		notifier: notifier,
		project:  project,
		runner:   New(stores, orchestrator, execRegistry, renderer, WithNotifier(notifier)),
	}
}

func (f *fixture) createTask(t *testing.T, title string) *core.Task {
	t.Helper()
	task, err := f.stores.Tasks.Create(&core.Task{ProjectID: f.project.ID, Title: title})
	require.NoError(t, err)
	return task
}

func TestRunTaskSeedsConversation(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic, provider.TextTurn("on it")))
	task := f.createTask(t, "refactor parser")

	require.NoError(t, f.runner.RunTask(context.Background(), task.ID))
	f.runner.Wait()

	updated, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	require.NotEmpty(t, updated.ConversationID)

	conversation, err := f.stores.Conversations.GetByID(updated.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, conversation.TaskID)

	messages, err := f.stores.Messages.GetByConversationID(conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, core.SenderUserSystem, messages[0].Sender)
	assert.Equal(t, "work on demo: refactor parser", messages[0].Blocks[0].Content)
	assert.Equal(t, core.SenderUser, messages[1].Sender)
	assert.Equal(t, core.SenderAssistant, messages[2].Sender)

	assert.Equal(t, 1, f.notifier.Count(core.EventTaskExecuting))
	assert.Equal(t, 1, f.notifier.Count(core.EventTaskNotExecuting))
	assert.False(t, f.registry.IsRunning(task.ID))
}

func TestRunTaskReusesExistingConversation(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic, provider.TextTurn("continuing")))
	task := f.createTask(t, "continue work")

	conversation, err := f.stores.Conversations.Create(&core.Conversation{ProjectID: f.project.ID, TaskID: task.ID})
	require.NoError(t, err)
	task.ConversationID = conversation.ID
	_, err = f.stores.Tasks.Update(task.ID, task)
	require.NoError(t, err)
	_, err = f.stores.Messages.Create(core.NewTextMessage(conversation.ID, core.SenderUser, "carry on"))
	require.NoError(t, err)

	require.NoError(t, f.runner.RunTask(context.Background(), task.ID))
	f.runner.Wait()

	messages, err := f.stores.Messages.GetByConversationID(conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2, "no prompt is re-seeded into a non-empty conversation")
	assert.Equal(t, core.SenderUser, messages[0].Sender)
	assert.Equal(t, core.SenderAssistant, messages[1].Sender)
}

func TestRunTaskIdempotentWhileRunning(t *testing.T) {
	blocking := newBlockingProvider()
	f := newFixture(t, blocking)
	task := f.createTask(t, "long haul")

	require.NoError(t, f.runner.RunTask(context.Background(), task.ID))
	waitFor(t, func() bool { return blocking.Calls() == 1 })
	assert.True(t, f.registry.IsRunning(task.ID))

	running, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusRunning, running.Status)

	// second start while the first is registered is a no-op
	require.NoError(t, f.runner.RunTask(context.Background(), task.ID))
	assert.Equal(t, 1, blocking.Calls())
	assert.Equal(t, 1, f.notifier.Count(core.EventTaskExecuting))

	require.NoError(t, f.runner.StopTask(task.ID))
	close(blocking.release)
	f.runner.Wait()

	assert.False(t, f.registry.IsRunning(task.ID))
	assert.Equal(t, 1, f.notifier.Count(core.EventTaskNotExecuting))
	assert.Equal(t, 1, blocking.Calls(), "no further provider call after stop")

	stopped, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusBacklog, stopped.Status)
}

func TestRunTaskMissingTask(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic))

	err := f.runner.RunTask(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.False(t, f.registry.IsRunning("missing"))
	assert.Equal(t, 1, f.notifier.Count(core.EventTaskNotExecuting))
}

func TestRunTaskFailedStartRevertsToBacklog(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic))
	task := f.createTask(t, "broken wiring")

	// A dangling conversation reference makes preparation fail after the
	// task was already flipped to running.
	task.ConversationID = "missing-conversation"
	_, err := f.stores.Tasks.Update(task.ID, task)
	require.NoError(t, err)

	err = f.runner.RunTask(context.Background(), task.ID)
	require.Error(t, err)

	reverted, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusBacklog, reverted.Status)
	assert.False(t, f.registry.IsRunning(task.ID))
	assert.Equal(t, 1, f.notifier.Count(core.EventTaskNotExecuting))
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic))
	task := f.createTask(t, "finish me")

	require.NoError(t, f.runner.CompleteTask(task.ID))

	done, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusDone, done.Status)
}

func TestArchiveTasks(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic))
	first := f.createTask(t, "one")
	second := f.createTask(t, "two")

	require.NoError(t, f.runner.ArchiveTasks(f.project.ID, []string{first.ID, second.ID}))

	for _, id := range []string{first.ID, second.ID} {
		task, err := f.stores.Tasks.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, core.TaskStatusArchived, task.Status)
	}

	project, err := f.stores.Projects.GetByID(f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, project.Tasks)
}

func TestArchiveTasksFailsFast(t *testing.T) {
	f := newFixture(t, provider.NewMockProvider(provider.KindAnthropic))
	task := f.createTask(t, "survivor")

	err := f.runner.ArchiveTasks(f.project.ID, []string{task.ID, "missing"})
	require.Error(t, err)

	untouched, err := f.stores.Tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusBacklog, untouched.Status, "batch fails before any mutation")

	project, err := f.stores.Projects.GetByID(f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, project.Tasks)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
