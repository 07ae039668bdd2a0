package runner

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/lcamargo/loom/agent"
	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/logging"
	"github.com/lcamargo/loom/prompt"
)

// kickOffMessage is the plain user message appended after the synthesized
// task prompt so the model has a turn to respond to.
const kickOffMessage = "Please execute the task."

// Runner owns the task execution lifecycle. Each task id runs at most once
// concurrently; starting an already-running task is a no-op.
type Runner struct {
	stores       agent.Stores
	orchestrator *agent.Orchestrator
	registry     *Registry
	renderer     core.Renderer

	taskTemplate string
	notifier     core.Notifier
	logger       logging.Logger
	wg           *conc.WaitGroup
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to NoOpLogger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithNotifier sets the push-notification channel. Defaults to NoOpNotifier.
func WithNotifier(notifier core.Notifier) Option {
	return func(r *Runner) { r.notifier = notifier }
}

// WithTaskTemplate overrides the template path rendered into the initial
// task prompt message.
func WithTaskTemplate(path string) Option {
	return func(r *Runner) { r.taskTemplate = path }
}

// New constructs a Runner around an orchestrator and its registry.
func New(stores agent.Stores, orchestrator *agent.Orchestrator, registry *Registry, renderer core.Renderer, opts ...Option) *Runner {
	r := &Runner{
		stores:       stores,
		orchestrator: orchestrator,
		registry:     registry,
		renderer:     renderer,
		taskTemplate: prompt.RunTaskTemplate,
		notifier:     core.NoOpNotifier{},
		logger:       logging.NoOpLogger{},
		wg:           conc.NewWaitGroup(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTask starts executing a task. It registers the task, marks it running,
// resolves or lazily creates its conversation, synthesizes the initial
// prompt messages for a fresh conversation, and starts the orchestration
// loop in the background. Calling RunTask for an id already in the registry
// is a no-op.
func (r *Runner) RunTask(ctx context.Context, taskID string) error {
	token := core.NewTaskCancelToken(taskID, func() {
		r.registry.Unregister(taskID)
		r.notifier.Emit(core.EventTaskNotExecuting, core.TaskExecutionPayload{TaskID: taskID})
	})
	if !r.registry.Register(taskID, token) {
		return nil
	}
	r.notifier.Emit(core.EventTaskExecuting, core.TaskExecutionPayload{TaskID: taskID})
	r.logger.Info("running task", "task_id", taskID)

	conversationID, err := r.prepare(taskID)
	if err != nil {
		r.logger.Error("starting task run", "task_id", taskID, "error", err)
		if conversationID != "" {
			logMsg := core.NewTextMessage(conversationID, core.SenderLog, fmt.Sprintf("task run failed to start: %v", err))
			if _, logErr := r.stores.Messages.Create(logMsg); logErr != nil {
				r.logger.Error("recording task start failure", "task_id", taskID, "error", logErr)
			}
		}
		r.rollbackRunning(taskID)
		token.Cancel()
		return err
	}

	r.wg.Go(func() {
		// Run records its own failures on the conversation.
		_ = r.orchestrator.Run(ctx, conversationID, token)
	})
	return nil
}

// rollbackRunning returns a task that never started its run to the
// backlog. prepare may fail after the running-status update; without the
// rollback the task would stay listed as running with no live execution.
func (r *Runner) rollbackRunning(taskID string) {
	task, err := r.stores.Tasks.GetByID(taskID)
	if err != nil || task.Status != core.TaskStatusRunning {
		return
	}
	task.Status = core.TaskStatusBacklog
	if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
		r.logger.Error("reverting task status", "task_id", taskID, "error", err)
	}
}

// prepare transitions the task to running and returns the conversation id
// the orchestration loop should drive.
func (r *Runner) prepare(taskID string) (string, error) {
	task, err := r.stores.Tasks.GetByID(taskID)
	if err != nil {
		return "", err
	}

	task.Status = core.TaskStatusRunning
	if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
		return "", err
	}

	conversation, err := r.taskConversation(task)
	if err != nil {
		return "", err
	}

	messages, err := r.stores.Messages.GetByConversationID(conversation.ID)
	if err != nil {
		return conversation.ID, err
	}
	if len(messages) == 0 {
		if err := r.seedConversation(task, conversation); err != nil {
			return conversation.ID, err
		}
	}
	return conversation.ID, nil
}

// taskConversation resolves the task's conversation, lazily creating one
// back-referencing the task and its assistant.
func (r *Runner) taskConversation(task *core.Task) (*core.Conversation, error) {
	if task.ConversationID != "" {
		return r.stores.Conversations.GetByID(task.ConversationID)
	}

	conversation, err := r.stores.Conversations.Create(&core.Conversation{
		ProjectID:   task.ProjectID,
		TaskID:      task.ID,
		AssistantID: task.AssistantID,
		Title:       task.Title,
	})
	if err != nil {
		return nil, err
	}

	task.ConversationID = conversation.ID
	if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
		return nil, err
	}
	return conversation, nil
}

// seedConversation writes the rendered task prompt and the kick-off user
// message into an empty conversation.
func (r *Runner) seedConversation(task *core.Task, conversation *core.Conversation) error {
	project, err := r.stores.Projects.GetByID(task.ProjectID)
	if err != nil {
		return err
	}

	text, err := r.renderer.Render(r.taskTemplate, map[string]any{
		"project": project,
		"task":    task,
	})
	if err != nil {
		return err
	}

	if _, err := r.stores.Messages.Create(core.NewTextMessage(conversation.ID, core.SenderUserSystem, text)); err != nil {
		return err
	}
	_, err = r.stores.Messages.Create(core.NewTextMessage(conversation.ID, core.SenderUser, kickOffMessage))
	return err
}

// StopTask cancels a running task's token. The in-flight provider call or
// tool execution is not force-killed; cancellation takes effect at the next
// checked boundary. A task flipped out of running returns to the backlog.
func (r *Runner) StopTask(taskID string) error {
	token, ok := r.registry.Get(taskID)
	if !ok {
		return nil
	}
	token.Cancel()

	task, err := r.stores.Tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	if task.Status == core.TaskStatusRunning {
		task.Status = core.TaskStatusBacklog
		if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
			return err
		}
	}
	return nil
}

// CompleteTask marks a task done and stops its run if one is in flight.
func (r *Runner) CompleteTask(taskID string) error {
	task, err := r.stores.Tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	task.Status = core.TaskStatusDone
	if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
		return err
	}
	return r.StopTask(taskID)
}

// ArchiveTasks archives a batch of tasks: each is flipped to archived,
// removed from the project's active task list, and stopped if running. The
// whole batch fails fast when any referenced task does not exist.
func (r *Runner) ArchiveTasks(projectID string, taskIDs []string) error {
	project, err := r.stores.Projects.GetByID(projectID)
	if err != nil {
		return err
	}

	tasks := make([]*core.Task, 0, len(taskIDs))
	for _, id := range taskIDs {
		task, err := r.stores.Tasks.GetByID(id)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	archived := make(map[string]bool, len(taskIDs))
	for _, task := range tasks {
		task.Status = core.TaskStatusArchived
		if _, err := r.stores.Tasks.Update(task.ID, task); err != nil {
			return err
		}
		archived[task.ID] = true
		if err := r.StopTask(task.ID); err != nil {
			return err
		}
	}

	remaining := project.Tasks[:0]
	for _, id := range project.Tasks {
		if !archived[id] {
			remaining = append(remaining, id)
		}
	}
	project.Tasks = remaining
	_, err = r.stores.Projects.Update(project.ID, project)
	return err
}

// Wait blocks until all background task runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
