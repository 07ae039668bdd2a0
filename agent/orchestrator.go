package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lcamargo/loom/core"
	"github.com/lcamargo/loom/logging"
	"github.com/lcamargo/loom/prompt"
	"github.com/lcamargo/loom/provider"
	"github.com/lcamargo/loom/tool"
)

// Stores bundles the persistence collaborators the orchestrator reads and
// writes during a run.
type Stores struct {
	Messages      core.MessageStore
	Conversations core.ConversationStore
	Tasks         core.TaskStore
	Projects      core.ProjectStore
	Assistants    core.AssistantStore
}

// Orchestrator drives the tool-use loop for one conversation at a time. A
// single instance is safe for concurrent runs of different conversations;
// each run owns its in-flight assistant message exclusively.
type Orchestrator struct {
	stores    Stores
	providers *provider.Registry
	tools     map[string]tool.Tool
	toolDefs  []provider.ToolDef

	renderer          core.Renderer
	referenceTemplate string
	defaultModel      string
	notifier          core.Notifier
	logger            logging.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to NoOpLogger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithNotifier sets the push-notification channel. Defaults to NoOpNotifier.
func WithNotifier(notifier core.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// WithRenderer sets the template renderer used for reference injection.
func WithRenderer(renderer core.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = renderer }
}

// WithReferenceTemplate overrides the template path rendered for each
// injected task reference.
func WithReferenceTemplate(path string) Option {
	return func(o *Orchestrator) { o.referenceTemplate = path }
}

// WithDefaultModel sets the model used when a conversation has no assistant
// configuration.
func WithDefaultModel(model string) Option {
	return func(o *Orchestrator) { o.defaultModel = model }
}

// WithTools registers the tools exposed to the model.
func WithTools(tools ...tool.Tool) Option {
	return func(o *Orchestrator) {
		for _, t := range tools {
			def := t.Definition()
			o.tools[def.Name] = t
			o.toolDefs = append(o.toolDefs, def)
		}
	}
}

// New constructs an Orchestrator.
func New(stores Stores, providers *provider.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stores:            stores,
		providers:         providers,
		tools:             map[string]tool.Tool{},
		referenceTemplate: prompt.FileReferenceTemplate,
		notifier:          core.NoOpNotifier{},
		logger:            logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the tool-use loop for a conversation until a turn settles
// without tool calls, the token is canceled, or an error occurs. Failures
// never escape: they are recorded as a log-sender message on the
// conversation and returned for observability, and the token is always
// signaled so callers watching it see the run end.
func (o *Orchestrator) Run(ctx context.Context, conversationID string, token *core.CancelToken) error {
	err := o.loop(ctx, conversationID, token)
	if err != nil {
		o.logger.Error("run failed", "conversation_id", conversationID, "error", err)
		logMsg := core.NewTextMessage(conversationID, core.SenderLog, fmt.Sprintf("run failed: %v", err))
		if _, logErr := o.stores.Messages.Create(logMsg); logErr != nil {
			o.logger.Error("recording run failure", "conversation_id", conversationID, "error", logErr)
		}
	}
	token.Cancel()
	return err
}

func (o *Orchestrator) loop(ctx context.Context, conversationID string, token *core.CancelToken) error {
	for {
		if token.IsCanceled() {
			return nil
		}
		settled, err := o.turn(ctx, conversationID, token)
		if err != nil {
			return err
		}
		if settled {
			return nil
		}
	}
}

// turn runs one provider round trip. It reports settled=true when the model
// produced no tool_use block, ending the loop.
func (o *Orchestrator) turn(ctx context.Context, conversationID string, token *core.CancelToken) (bool, error) {
	conversation, err := o.stores.Conversations.GetByID(conversationID)
	if err != nil {
		return false, err
	}

	history, err := o.stores.Messages.GetByConversationID(conversationID)
	if err != nil {
		return false, err
	}
	history, err = o.injectReferences(conversation, history)
	if err != nil {
		return false, err
	}

	p, model, err := o.resolveProvider(conversation)
	if err != nil {
		return false, err
	}

	assistantMsg := core.NewMessage(conversationID, core.SenderAssistant)
	if _, err := o.stores.Messages.Create(assistantMsg); err != nil {
		return false, err
	}

	state := &turnState{orchestrator: o, msg: assistantMsg}
	start := time.Now()
	err = p.ChatCompletion(ctx, model, history, token, provider.FormatTools(o.toolDefs, p.Kind()), state.handle)
	logger := logging.ForConversation(o.logger, conversationID, conversation.TaskID)
	callErr := err
	if callErr == nil {
		callErr = state.err
	}
	logging.ModelCall(logger, string(p.Kind()), model, assistantMsg.InputTokens, time.Since(start), callErr)
	if err != nil {
		return false, err
	}
	if state.err != nil {
		return false, state.err
	}

	if token.IsCanceled() {
		return true, nil
	}
	if !assistantMsg.HasToolUse() {
		return true, nil
	}

	results := o.dispatch(ctx, conversation, assistantMsg.ToolUseBlocks())
	toolMsg := core.NewMessage(conversationID, core.SenderTool)
	for i := range results {
		results[i].MessageID = toolMsg.ID
	}
	toolMsg.Blocks = results
	if _, err := o.stores.Messages.Create(toolMsg); err != nil {
		return false, err
	}

	return false, nil
}

// resolveProvider picks the adapter and model for the conversation,
// defaulting to the registry fallback when no assistant is configured.
func (o *Orchestrator) resolveProvider(conversation *core.Conversation) (provider.Provider, string, error) {
	kind := provider.Kind("")
	model := o.defaultModel
	if conversation.AssistantID != "" {
		assistant, err := o.stores.Assistants.GetByID(conversation.AssistantID)
		if err != nil {
			return nil, "", err
		}
		kind = provider.Kind(assistant.Provider)
		if assistant.Model != "" {
			model = assistant.Model
		}
	}
	p, err := o.providers.Resolve(kind)
	if err != nil {
		return nil, "", err
	}
	return p, model, nil
}

// injectReferences renders each of the task's reference files into the
// conversation's system message. The injection is a one-shot guarded by the
// conversation's ReferencesInjected flag.
func (o *Orchestrator) injectReferences(conversation *core.Conversation, history []*core.Message) ([]*core.Message, error) {
	if conversation.TaskID == "" || conversation.ReferencesInjected || o.renderer == nil {
		return history, nil
	}
	if len(history) == 0 {
		return history, nil
	}
	system := history[0]
	if system.Sender != core.SenderSystem && system.Sender != core.SenderUserSystem {
		return history, nil
	}

	task, err := o.stores.Tasks.GetByID(conversation.TaskID)
	if err != nil {
		return nil, err
	}
	if len(task.References) == 0 {
		return history, nil
	}
	project, err := o.stores.Projects.GetByID(conversation.ProjectID)
	if err != nil {
		return nil, err
	}

	for _, ref := range task.References {
		content, err := os.ReadFile(filepath.Join(project.Path, ref))
		if err != nil {
			o.logger.Warn("skipping unreadable reference", "conversation_id", conversation.ID, "reference", ref, "error", err)
			continue
		}
		text, err := o.renderer.Render(o.referenceTemplate, map[string]any{
			"path":      ref,
			"extension": strings.TrimPrefix(filepath.Ext(ref), "."),
			"content":   string(content),
		})
		if err != nil {
			return nil, err
		}
		system.Blocks = append(system.Blocks, core.Block{
			ID:        core.NewID(),
			MessageID: system.ID,
			Type:      core.BlockTypeText,
			Content:   text,
		})
	}
	if _, err := o.stores.Messages.Update(system.ID, system); err != nil {
		return nil, err
	}

	conversation.ReferencesInjected = true
	if _, err := o.stores.Conversations.Update(conversation.ID, conversation); err != nil {
		return nil, err
	}
	return history, nil
}

// turnState assembles one streaming assistant message. Handler callbacks
// arrive strictly ordered, so no locking is needed; persistence failures are
// captured and surfaced after the stream ends.
type turnState struct {
	orchestrator *Orchestrator
	msg          *core.Message
	err          error
}

func (s *turnState) handle(ev provider.StreamEvent) {
	o := s.orchestrator
	switch ev.Type {
	case provider.EventMessageStart:
		s.msg.InputTokens = ev.InputTokens

	case provider.EventBlockStart:
		block := core.Block{
			ID:        core.NewID(),
			MessageID: s.msg.ID,
			Type:      ev.BlockType,
			Content:   "",
			Tool:      ev.Tool,
			ToolUseID: ev.ToolUseID,
		}
		s.msg.Blocks = append(s.msg.Blocks, block)
		o.notifier.Emit(core.EventBlockCreated, core.BlockCreatedPayload{
			ID:        block.ID,
			MessageID: s.msg.ID,
			Type:      block.Type,
			Tool:      block.Tool,
			ToolUseID: block.ToolUseID,
		})

	case provider.EventBlockDelta:
		block := s.msg.LastBlock()
		if block == nil {
			return
		}
		block.AppendContent(ev.Delta)
		o.notifier.Emit(core.EventBlockDelta, core.BlockDeltaPayload{
			ID:        block.ID,
			MessageID: s.msg.ID,
			Delta:     ev.Delta,
		})

	case provider.EventBlockStop:
		s.persist()
		block := s.msg.LastBlock()
		if block != nil && block.Type == core.BlockTypeToolUse {
			if err := block.CloseToolUse(); err != nil {
				s.fail(fmt.Errorf("parsing tool input for %s: %w", block.Tool, err))
				return
			}
			s.persist()
		}

	case provider.EventMessageStop:
		s.persist()
	}
}

func (s *turnState) persist() {
	if s.err != nil {
		return
	}
	if _, err := s.orchestrator.stores.Messages.Update(s.msg.ID, s.msg); err != nil {
		s.fail(err)
	}
}

func (s *turnState) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}
