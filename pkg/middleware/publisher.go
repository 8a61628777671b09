package middleware

import (
	"context"
	"errors"
	"sort"

	"faaskit/pkg/lambda"
	"faaskit/pkg/pubsub"
)

// Result keys a handler uses to hand outbound traffic to the publishing
// middleware.
const (
	messagesKey = "messages"
	eventsKey   = "events"
)

type publisher struct {
	conn *pubsub.Conn
}

// Publisher publishes the messages a handler returns under the "messages"
// key of a map result: topic name to payload. The handler result passes
// through unchanged; a publish failure propagates.
func Publisher(conn *pubsub.Conn) lambda.Middleware {
	return &publisher{conn: conn}
}

func (m *publisher) Name() string             { return "publisher" }
func (m *publisher) Provides() []lambda.Field { return nil }
func (m *publisher) Requires() []lambda.Field { return nil }

func (m *publisher) Validate() error {
	if m.conn == nil {
		return errors.New("publish connection is nil")
	}
	return nil
}

func (m *publisher) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		result, err := next(ctx, event, kw)
		if err != nil {
			return result, err
		}

		outbound := resultMap(result)[messagesKey]
		if byTopic, ok := outbound.(map[string]interface{}); ok && len(byTopic) > 0 {
			messages := make([]pubsub.Message, 0, len(byTopic))
			for _, topic := range sortedKeys(byTopic) {
				messages = append(messages, pubsub.Message{Topic: topic, Payload: byTopic[topic]})
			}
			if _, err := m.conn.Publish(ctx, messages); err != nil {
				return nil, err
			}
		}
		return result, nil
	}
}

type eventPublisher struct {
	conn *pubsub.Conn
}

// EventPublisher publishes the domain events a handler returns under the
// "events" key of a map result: topic name to a slice of events. Every
// event is validated against the domain-event schema before anything is
// published; a schema violation propagates.
func EventPublisher(conn *pubsub.Conn) lambda.Middleware {
	return &eventPublisher{conn: conn}
}

func (m *eventPublisher) Name() string             { return "event-publisher" }
func (m *eventPublisher) Provides() []lambda.Field { return nil }
func (m *eventPublisher) Requires() []lambda.Field { return nil }

func (m *eventPublisher) Validate() error {
	if m.conn == nil {
		return errors.New("publish connection is nil")
	}
	return nil
}

func (m *eventPublisher) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		result, err := next(ctx, event, kw)
		if err != nil {
			return result, err
		}

		outbound, ok := resultMap(result)[eventsKey].(map[string][]pubsub.DomainEvent)
		if !ok || len(outbound) == 0 {
			return result, nil
		}

		// Validate the whole batch before the first publish so a bad event
		// cannot leave a partially published batch behind.
		for _, topic := range sortedTopics(outbound) {
			for _, ev := range outbound[topic] {
				if err := ev.Validate(); err != nil {
					return nil, err
				}
			}
		}
		for _, topic := range sortedTopics(outbound) {
			if err := m.conn.PublishEvents(ctx, topic, outbound[topic]); err != nil {
				return nil, err
			}
		}
		return result, nil
	}
}

func resultMap(result interface{}) map[string]interface{} {
	switch r := result.(type) {
	case map[string]interface{}:
		return r
	case *lambda.Response:
		if m, ok := r.Body.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTopics(m map[string][]pubsub.DomainEvent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
