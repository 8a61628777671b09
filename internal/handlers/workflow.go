package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"faaskit/pkg/lambda"
	"faaskit/pkg/middleware"
	"faaskit/pkg/pubsub"
	"faaskit/pkg/saga"
)

// OrderWorkflow is the example order fulfilment state machine.
func OrderWorkflow() *saga.Definition {
	return &saga.Definition{
		Name: "order",
		States: map[string]map[string]string{
			saga.Start: {saga.InitTransition: "placed"},
			"placed":   {"pay": "paid", "cancel": "cancelled"},
			"paid":     {"ship": "shipped"},
		},
	}
}

// WorkflowDeps carries the workflow endpoint's cold-start wiring.
type WorkflowDeps struct {
	Env    map[string]string
	Engine *saga.Engine
	Conn   *pubsub.Conn
	Topic  string
	Logger *logrus.Logger
}

// Workflow advances order instances from subscription notifications shaped
// {"saga": name, "transition": name}. Transitions that do not apply to the
// current state are recorded as skips rather than failing the invocation.
type Workflow struct {
	engine *saga.Engine
	logger *logrus.Logger
}

// NewWorkflow builds the handler.
func NewWorkflow(engine *saga.Engine, logger *logrus.Logger) *Workflow {
	if logger == nil {
		logger = logrus.New()
	}
	return &Workflow{engine: engine, logger: logger}
}

// Handle applies one transition message and emits a state-changed event for
// downstream consumers.
func (w *Workflow) Handle(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
	name, _ := kw.Message["saga"].(string)
	transition, _ := kw.Message["transition"].(string)
	if name == "" || transition == "" {
		return nil, fmt.Errorf("workflow message missing saga or transition")
	}

	log := w.logger.WithFields(logrus.Fields{"saga": name, "transition": transition})

	if transition == saga.InitTransition {
		instance, err := w.engine.Init(ctx, kw.Namespace, name)
		if err != nil {
			return nil, err
		}
		return w.stateChanged(instance.Name, transition, instance.State), nil
	}

	instance, err := w.engine.Get(ctx, kw.Namespace, name)
	if err != nil {
		return nil, err
	}

	next, err := w.engine.Definition().Next(instance.State, transition)
	if err != nil {
		log.WithField("state", instance.State).Info("Transition not applicable, recording skip")
		w.engine.Skip(ctx, kw.Namespace, name, transition)
		return map[string]interface{}{}, nil
	}

	if _, err := w.engine.Transition(ctx, kw.Namespace, name, transition, next); err != nil {
		return nil, err
	}
	return w.stateChanged(name, transition, next), nil
}

func (w *Workflow) stateChanged(name, transition, state string) map[string]interface{} {
	return map[string]interface{}{
		"events": map[string][]pubsub.DomainEvent{
			"order-events": {
				{
					Name: "order.state-changed",
					Detail: map[string]interface{}{
						"saga":       name,
						"transition": transition,
						"state":      state,
					},
				},
			},
		},
	}
}

// NewWorkflowChain stacks the subscription middleware around the handler.
// No response codec: a failed invocation must surface so the notification
// is redelivered.
func NewWorkflowChain(deps *WorkflowDeps) lambda.Handler {
	w := NewWorkflow(deps.Engine, deps.Logger)
	return lambda.NewChain(
		middleware.NamespaceAware(deps.Env),
		middleware.Subscriber(deps.Topic),
		middleware.EventPublisher(deps.Conn),
	).MustBuild(w.Handle)
}
