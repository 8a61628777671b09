// Package pubsub translates outbound messages and domain events into SNS
// fan-out calls, and decodes inbound stream records for handlers.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/sirupsen/logrus"
)

// SNSAPI is the subset of the SNS client used for publishing.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Conn binds an SNS client to a region, account, and deployment namespace.
type Conn struct {
	client    SNSAPI
	region    string
	accountID string
	namespace string
	logger    *logrus.Logger
}

// Connect builds a Conn. The client is injected so tests and local tooling
// can substitute a stub.
func Connect(client SNSAPI, region, accountID, namespace string) *Conn {
	return &Conn{
		client:    client,
		region:    region,
		accountID: accountID,
		namespace: namespace,
		logger:    logrus.StandardLogger(),
	}
}

// TopicARN resolves a topic name to its ARN, expanding the {namespace}
// placeholder used in topic declarations.
func (c *Conn) TopicARN(topic string) string {
	name := strings.ReplaceAll(topic, "{namespace}", c.namespace)
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", c.region, c.accountID, name)
}

// Message is one outbound payload addressed to a topic.
type Message struct {
	Topic   string
	Payload interface{}
}

// Publish sends each message to its topic in input order and returns the
// published payloads. String payloads are sent verbatim; structured payloads
// are serialized with stable key order and get a timestamp injected if they
// lack one. Publishing stops at the first failure: the caller sees the
// partial result together with the underlying error.
func (c *Conn) Publish(ctx context.Context, messages []Message) ([]interface{}, error) {
	published := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		payload := withTimestamp(m.Payload)
		body, err := encodePayload(payload)
		if err != nil {
			return published, fmt.Errorf("encode message for topic %s: %w", m.Topic, err)
		}

		arn := c.TopicARN(m.Topic)
		c.logger.WithFields(logrus.Fields{"topic": arn}).Debug("Publishing message")
		_, err = c.client.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(arn),
			Message:  aws.String(body),
		})
		if err != nil {
			return published, fmt.Errorf("publish to topic %s: %w", m.Topic, err)
		}
		published = append(published, payload)
	}
	return published, nil
}

// PublishEvents validates every event up front, then publishes each to the
// topic with the event name as subject and message-type attribute. A schema
// violation prevents all publishes and propagates to the caller.
func (c *Conn) PublishEvents(ctx context.Context, topic string, events []DomainEvent) error {
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("invalid event for topic %s: %w", topic, err)
		}
	}

	arn := c.TopicARN(topic)
	for _, ev := range events {
		body, err := encodePayload(withTimestamp(ev.Detail))
		if err != nil {
			return fmt.Errorf("encode event %s for topic %s: %w", ev.Name, topic, err)
		}
		_, err = c.client.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(arn),
			Subject:  aws.String(ev.Name),
			Message:  aws.String(body),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"message_type": {
					DataType:    aws.String("String"),
					StringValue: aws.String(ev.Name),
				},
			},
		})
		if err != nil {
			return fmt.Errorf("publish event %s to topic %s: %w", ev.Name, topic, err)
		}
	}
	return nil
}

// withTimestamp returns the payload with a timestamp field injected if the
// payload is structured and lacks one. The input map is not mutated.
func withTimestamp(payload interface{}) interface{} {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}
	cp := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		cp[k] = v
	}
	if _, ok := cp["timestamp"]; !ok {
		cp["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return cp
}

func encodePayload(payload interface{}) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
