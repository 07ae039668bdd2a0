// Package loom provides a high-level façade over the agent orchestration
// engine and the task runner. Most applications interact with this package
// by:
//  1. Creating a Loom via New() (optionally overriding the defaults read
//     from the environment)
//  2. Creating projects, assistants and tasks through the exposed stores
//  3. Starting runs with RunTask or Chat and subscribing to the event bus
//     for streaming updates
//
// The façade delegates orchestration to agent.Orchestrator and the task
// lifecycle to runner.Runner while keeping setup ergonomics concise. All
// defaults are safe for local development; production deployments typically
// supply durable store implementations and a structured logger.
package loom

import (
	"context"

	"github.com/lcamargo/loom/agent"
	"github.com/lcamargo/loom/config"
	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/logging"
	"github.com/lcamargo/loom/notify"
	"github.com/lcamargo/loom/prompt"
	"github.com/lcamargo/loom/provider"
	"github.com/lcamargo/loom/provider/anthropic"
	"github.com/lcamargo/loom/provider/google"
	"github.com/lcamargo/loom/provider/openai"
	"github.com/lcamargo/loom/runner"
	"github.com/lcamargo/loom/store"
	"github.com/lcamargo/loom/tool"
)

// Options configures the Loom instance.
type Options struct {
	// Env supplies provider credentials and engine defaults. Loaded from the
	// environment when nil.
	Env *config.Env

	// Stores (default to in-memory implementations if not provided)
	Messages      core.MessageStore
	Conversations core.ConversationStore
	Tasks         core.TaskStore
	Projects      core.ProjectStore
	Assistants    core.AssistantStore

	// Notifier receives push events. Defaults to an in-process bus exposed
	// via Bus().
	Notifier core.Notifier

	// Logger (defaults to a structured slog logger at the configured level)
	Logger logging.Logger
}

// Loom is the high-level façade aggregating the orchestrator, the task
// runner and their collaborators.
type Loom struct {
	opts   Options
	bus    *notify.Bus
	stores agent.Stores

	orchestrator *agent.Orchestrator
	runner       *runner.Runner
	registry     *runner.Registry
}

// New creates a Loom instance with optional overrides. Any unset
// collaborator is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Loom, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Env == nil {
		env, err := config.LoadEnv()
		if err != nil {
			return nil, err
		}
		opts.Env = env
	}
	env := opts.Env

	if opts.Logger == nil {
		opts.Logger = logging.NewSlogLogger(logging.ParseLevel(env.LogLevel), env.LogFormat, false)
	}

	l := &Loom{opts: opts}

	notifier := opts.Notifier
	if notifier == nil {
		l.bus = notify.NewBus()
		notifier = l.bus
	}

	if opts.Projects == nil {
		opts.Projects = store.NewProjectStore(notifier)
	}
	if opts.Conversations == nil {
		opts.Conversations = store.NewConversationStore(opts.Projects, notifier)
	}
	if opts.Tasks == nil {
		opts.Tasks = store.NewTaskStore(opts.Projects, notifier)
	}
	if opts.Messages == nil {
		opts.Messages = store.NewMessageStore(notifier)
	}
	if opts.Assistants == nil {
		opts.Assistants = store.NewAssistantStore()
	}

	l.stores = agent.Stores{
		Messages:      opts.Messages,
		Conversations: opts.Conversations,
		Tasks:         opts.Tasks,
		Projects:      opts.Projects,
		Assistants:    opts.Assistants,
	}

	providers := provider.NewRegistry(provider.Kind(env.DefaultProvider))
	providers.Register(anthropic.New(func(o *anthropic.Options) {
		o.APIKey = env.AnthropicAPIKey
	}))
	providers.Register(openai.New(func(o *openai.Options) {
		o.APIKey = env.OpenAIAPIKey
	}))
	providers.Register(google.New(func(o *google.Options) {
		o.APIKey = env.GoogleAPIKey
	}))

	renderer := prompt.NewFileRenderer(env.PromptsDir)

	orchestratorLogger := opts.Logger
	runnerLogger := opts.Logger
	if el, ok := opts.Logger.(*logging.EngineLogger); ok {
		orchestratorLogger = el.WithComponent("orchestrator")
		runnerLogger = el.WithComponent("runner")
	}

	l.orchestrator = agent.New(l.stores, providers,
		agent.WithLogger(orchestratorLogger),
		agent.WithNotifier(notifier),
		agent.WithRenderer(renderer),
		agent.WithDefaultModel(env.DefaultModel),
		agent.WithTools(
			tool.NewListFiles(opts.Projects),
			tool.NewReadFile(opts.Projects),
			tool.NewWriteFile(opts.Projects),
			tool.NewWriteTask(opts.Tasks),
			tool.NewListTasks(opts.Tasks, opts.Projects),
		),
	)

	l.registry = runner.NewRegistry()
	l.runner = runner.New(l.stores, l.orchestrator, l.registry, renderer,
		runner.WithLogger(runnerLogger),
		runner.WithNotifier(notifier),
	)

	return l, nil
}

// Bus returns the in-process event bus, or nil when a custom Notifier was
// supplied.
func (l *Loom) Bus() *notify.Bus { return l.bus }

// Stores exposes the persistence collaborators for boundary layers.
func (l *Loom) Stores() agent.Stores { return l.stores }

// Runner exposes the task runner.
func (l *Loom) Runner() *runner.Runner { return l.runner }

// Chat runs the orchestration loop for a conversation and returns its
// cancellation token. Canceling the token stops the run at the next turn
// boundary; the token is also signaled when the run settles.
func (l *Loom) Chat(ctx context.Context, conversationID string) *core.CancelToken {
	token := core.NewCancelToken(nil)
	go func() {
		_ = l.orchestrator.Run(ctx, conversationID, token)
	}()
	return token
}

// RunTask starts executing a task; a no-op when the task is already
// running.
func (l *Loom) RunTask(ctx context.Context, taskID string) error {
	return l.runner.RunTask(ctx, taskID)
}

// StopTask cancels a running task at its next turn boundary.
func (l *Loom) StopTask(taskID string) error { return l.runner.StopTask(taskID) }

// CompleteTask marks a task done and stops it.
func (l *Loom) CompleteTask(taskID string) error { return l.runner.CompleteTask(taskID) }

// ArchiveTasks archives a batch of tasks of one project.
func (l *Loom) ArchiveTasks(projectID string, taskIDs []string) error {
	return l.runner.ArchiveTasks(projectID, taskIDs)
}

// Wait blocks until all background runs started by the runner finish.
func (l *Loom) Wait() { l.runner.Wait() }
