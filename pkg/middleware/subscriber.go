package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"faaskit/pkg/lambda"
)

type subscriber struct {
	requiredTopics []string
}

// Subscriber unwraps a subscription notification: it expects the event to
// carry at least one record, optionally validates the record's topic name
// against the allowed suffixes, decodes the message payload as JSON, and
// injects it into kwargs. Shape and decode failures are errors, not
// envelopes: a subscription trigger has no HTTP caller to answer, and the
// provider's redelivery should apply.
func Subscriber(requiredTopics ...string) lambda.Middleware {
	return &subscriber{requiredTopics: requiredTopics}
}

func (m *subscriber) Name() string             { return "subscriber" }
func (m *subscriber) Provides() []lambda.Field { return []lambda.Field{lambda.FieldMessage} }
func (m *subscriber) Requires() []lambda.Field { return nil }

func (m *subscriber) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		if event == nil || len(event.Records) == 0 {
			return nil, fmt.Errorf("%w: event is not a subscription notification", lambda.ErrUnsupportedEvent)
		}
		record := event.Records[0]

		if len(m.requiredTopics) > 0 && !m.topicAllowed(record.TopicARN) {
			return nil, fmt.Errorf("unexpected topic %s", record.TopicARN)
		}

		var message map[string]interface{}
		if err := json.Unmarshal([]byte(record.Message), &message); err != nil {
			return nil, fmt.Errorf("could not decode subscription message: %w", err)
		}

		kw.Message = message
		return next(ctx, event, kw)
	}
}

// topicAllowed matches the topic name (the last ARN segment) against the
// allowed suffixes, so namespaced topic names still match their base name.
func (m *subscriber) topicAllowed(topicARN string) bool {
	parts := strings.Split(topicARN, ":")
	name := parts[len(parts)-1]
	for _, allowed := range m.requiredTopics {
		if strings.HasSuffix(name, allowed) {
			return true
		}
	}
	return false
}
