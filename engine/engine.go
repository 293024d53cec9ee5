package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/domains/send"
	"github.com/keyquest/wa-gateway/domains/workflow"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/sirupsen/logrus"
)

// Env is the capability bundle handlers run against.
type Env struct {
	Sender send.Sender
	Clock  clock.Clock
	Events *eventbus.Bus
	Log    *logrus.Entry
}

// Handler processes one classified message.
type Handler interface {
	Handle(ctx context.Context, env *Env, msg message.Message) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, env *Env, msg message.Message) error

func (f HandlerFunc) Handle(ctx context.Context, env *Env, msg message.Message) error {
	return f(ctx, env, msg)
}

// Engine resolves classifications to named handlers and records one
// workflow execution per dispatch.
type Engine struct {
	env       *Env
	workflows workflow.IWorkflowRepository

	mu       sync.RWMutex
	handlers map[string]Handler
}

func New(env *Env, workflows workflow.IWorkflowRepository) *Engine {
	return &Engine{
		env:       env,
		workflows: workflows,
		handlers:  make(map[string]Handler),
	}
}

func (e *Engine) Register(name string, h Handler) {
	e.mu.Lock()
	e.handlers[name] = h
	e.mu.Unlock()
}

// Dispatch invokes the handler mapped to the classification. The execution
// record is inserted as running before the handler runs and finalized on
// return; handler errors are absorbed into the record and returned for
// logging only.
func (e *Engine) Dispatch(ctx context.Context, class message.Classification, msg message.Message) error {
	name := class.HandlerName()
	if name == "" {
		return nil
	}

	e.mu.RLock()
	h, ok := e.handlers[name]
	e.mu.RUnlock()
	if !ok {
		logrus.Warnf("[ENGINE] No handler registered for %s", name)
		return nil
	}

	exec := e.beginExecution(ctx, name, msg)

	env := &Env{
		Sender: e.env.Sender,
		Clock:  e.env.Clock,
		Events: e.env.Events,
		Log:    logrus.WithFields(logrus.Fields{"workflow": name, "message": msg.WaMessageID}),
	}

	err := e.runHandler(ctx, h, env, msg)
	e.finishExecution(ctx, exec, err)
	return err
}

func (e *Engine) runHandler(ctx context.Context, h Handler, env *Env, msg message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			env.Log.Errorf("[ENGINE] %v", err)
		}
	}()
	return h.Handle(ctx, env, msg)
}

func (e *Engine) beginExecution(ctx context.Context, name string, msg message.Message) *workflow.Execution {
	workflowID := name
	if wf, err := e.workflows.GetByName(ctx, name); err == nil && wf != nil {
		workflowID = wf.ID
	}

	payload, _ := json.Marshal(msg)
	exec := &workflow.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     workflowID,
		Status:         workflow.ExecutionRunning,
		TriggerPayload: string(payload),
		StartedAt:      e.env.Clock.Now().UTC(),
	}
	if err := e.workflows.CreateExecution(ctx, exec); err != nil {
		logrus.WithError(err).Warn("[ENGINE] Failed to record execution start")
	}
	return exec
}

func (e *Engine) finishExecution(ctx context.Context, exec *workflow.Execution, handlerErr error) {
	now := e.env.Clock.Now().UTC()
	exec.CompletedAt = &now
	if handlerErr != nil {
		exec.Status = workflow.ExecutionFailed
		exec.Error = handlerErr.Error()
	} else {
		exec.Status = workflow.ExecutionCompleted
	}
	if err := e.workflows.UpdateExecution(ctx, exec); err != nil {
		logrus.WithError(err).Warn("[ENGINE] Failed to record execution result")
	}
}
