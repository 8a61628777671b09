package saga

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"faaskit/pkg/store"
)

// InitTransition is the entry transition every definition declares.
const InitTransition = "init"

// timestampLayout is fixed-width UTC so lexicographic order on history
// entries equals time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const (
	attrSagaName     = "saga"
	attrCurrentState = "current_state"
	attrHistory      = "history"
)

// Instance is a persisted workflow instance.
type Instance struct {
	Name  string
	State string
	Item  store.Item
}

// HistoryEntry is one recorded transition.
type HistoryEntry struct {
	Timestamp  string
	Transition string
}

// History returns the instance history entries. The underlying store keeps
// them as an unordered set; this sorts them into time order.
func (i *Instance) History() []HistoryEntry {
	raw := historySet(i.Item)
	sort.Strings(raw)
	entries := make([]HistoryEntry, 0, len(raw))
	for _, e := range raw {
		ts, transition, _ := strings.Cut(e, "|")
		entries = append(entries, HistoryEntry{Timestamp: ts, Transition: transition})
	}
	return entries
}

// Engine runs instances of one workflow definition against an item store.
// Instances live in a per-namespace table keyed by workflow name.
type Engine struct {
	definition *Definition
	store      store.Store
	logger     *logrus.Logger
	now        func() time.Time
}

// NewEngine validates the definition and returns an engine over it.
func NewEngine(definition *Definition, st store.Store, logger *logrus.Logger) (*Engine, error) {
	if err := definition.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{definition: definition, store: st, logger: logger, now: time.Now}, nil
}

// TableName returns the instance table for a namespace.
func TableName(namespace string) string {
	return fmt.Sprintf("faaskit-%s-sagas", namespace)
}

// Init creates the named instance in the entry transition's target state,
// or returns the existing instance unchanged. Creation is a conditional
// write, so two concurrent calls cannot both create; the loser reloads the
// winner's row. Exactly one history entry is recorded per created instance.
func (e *Engine) Init(ctx context.Context, namespace, name string) (*Instance, error) {
	table := TableName(namespace)
	key := store.Key{Name: attrSagaName, Value: name}

	item, err := e.store.Get(ctx, table, key)
	if err == nil {
		return e.instance(name, item), nil
	}
	if !errors.Is(err, store.ErrItemNotFound) {
		return nil, err
	}

	initial, err := e.definition.InitialState(InitTransition)
	if err != nil {
		return nil, err
	}

	fresh := store.Item{attrSagaName: name, attrCurrentState: initial}
	err = e.store.PutIfAbsent(ctx, table, key, fresh)
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		// Lost the creation race; the other caller's row wins.
		item, err := e.store.Get(ctx, table, key)
		if err != nil {
			return nil, err
		}
		return e.instance(name, item), nil
	case err != nil:
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"workflow":  e.definition.Name,
		"saga":      name,
		"namespace": namespace,
		"state":     initial,
	}).Info("Workflow instance created")

	if item := e.recordHistory(ctx, table, key, InitTransition); item != nil {
		return e.instance(name, item), nil
	}
	return e.instance(name, fresh), nil
}

// Transition sets the instance state to nextState and records a history
// entry for the named transition. The state write is last-writer-wins; no
// check against the current state is made here, the caller resolves the
// legal next state from the definition. Returns the post-append item, nil
// when the history append failed.
func (e *Engine) Transition(ctx context.Context, namespace, name, transition, nextState string) (store.Item, error) {
	table := TableName(namespace)
	key := store.Key{Name: attrSagaName, Value: name}

	if _, err := e.store.Update(ctx, table, key, map[string]interface{}{attrCurrentState: nextState}); err != nil {
		return nil, fmt.Errorf("transition %s: %w", transition, err)
	}

	e.logger.WithFields(logrus.Fields{
		"workflow":   e.definition.Name,
		"saga":       name,
		"namespace":  namespace,
		"transition": transition,
		"state":      nextState,
	}).Info("Workflow transition applied")

	return e.recordHistory(ctx, table, key, transition), nil
}

// Skip records a history entry for a transition that needed no work,
// leaving the state untouched. Each call appends a new entry.
func (e *Engine) Skip(ctx context.Context, namespace, name, transition string) store.Item {
	table := TableName(namespace)
	key := store.Key{Name: attrSagaName, Value: name}

	e.logger.WithFields(logrus.Fields{
		"workflow":   e.definition.Name,
		"saga":       name,
		"namespace":  namespace,
		"transition": transition,
	}).Info("Workflow transition skipped")

	return e.recordHistory(ctx, table, key, transition)
}

// Get loads an instance; store.ErrItemNotFound when it does not exist.
func (e *Engine) Get(ctx context.Context, namespace, name string) (*Instance, error) {
	item, err := e.store.Get(ctx, TableName(namespace), store.Key{Name: attrSagaName, Value: name})
	if err != nil {
		return nil, err
	}
	return e.instance(name, item), nil
}

// Definition returns the workflow definition this engine runs.
func (e *Engine) Definition() *Definition {
	return e.definition
}

// recordHistory appends a timestamped entry to the instance history set.
// History is best-effort telemetry: store errors are logged and yield nil,
// never an error.
func (e *Engine) recordHistory(ctx context.Context, table string, key store.Key, transition string) store.Item {
	entry := fmt.Sprintf("%s|%s", e.now().UTC().Format(timestampLayout), transition)
	item, err := e.store.AddToSet(ctx, table, key, attrHistory, entry)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"table":      table,
			"saga":       key.Value,
			"transition": transition,
		}).Warn("Failed to record workflow history")
		return nil
	}
	return item
}

func (e *Engine) instance(name string, item store.Item) *Instance {
	state, _ := item[attrCurrentState].(string)
	return &Instance{Name: name, State: state, Item: item}
}

func historySet(item store.Item) []string {
	switch t := item[attrHistory].(type) {
	case store.StringSet:
		return append([]string(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
