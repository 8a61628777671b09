package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"

	"faaskit/pkg/lambda"
	"faaskit/pkg/pubsub"
)

type captureSNS struct {
	published []sns.PublishInput
	err       error
}

func (c *captureSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.published = append(c.published, *params)
	return &sns.PublishOutput{}, nil
}

func testConn(client pubsub.SNSAPI) *pubsub.Conn {
	return pubsub.Connect(client, "us-east-1", "123456789012", "dev")
}

func TestPublisher_PublishesHandlerMessages(t *testing.T) {
	client := &captureSNS{}
	built := lambda.NewChain(Publisher(testConn(client))).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return map[string]interface{}{
				"messages": map[string]interface{}{
					"topic-b": "payload-b",
					"topic-a": "payload-a",
				},
				"other": "kept",
			}, nil
		})

	result, err := built(context.Background(), &lambda.Event{}, nil)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}

	if len(client.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(client.published))
	}
	if *client.published[0].TopicArn != "arn:aws:sns:us-east-1:123456789012:topic-a" {
		t.Errorf("first topic = %s", *client.published[0].TopicArn)
	}
	if *client.published[0].Message != "payload-a" {
		t.Errorf("first payload = %s", *client.published[0].Message)
	}

	m, ok := result.(map[string]interface{})
	if !ok || m["other"] != "kept" {
		t.Errorf("handler result not passed through: %#v", result)
	}
}

func TestPublisher_NoMessagesKey(t *testing.T) {
	client := &captureSNS{}
	built := lambda.NewChain(Publisher(testConn(client))).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return map[string]interface{}{"made": "it"}, nil
		})

	if _, err := built(context.Background(), &lambda.Event{}, nil); err != nil {
		t.Fatalf("chain error = %v", err)
	}
	if len(client.published) != 0 {
		t.Errorf("published %d messages, want 0", len(client.published))
	}
}

func TestPublisher_FailurePropagates(t *testing.T) {
	client := &captureSNS{err: errors.New("sns down")}
	built := lambda.NewChain(Publisher(testConn(client))).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return map[string]interface{}{
				"messages": map[string]interface{}{"topic-a": "x"},
			}, nil
		})

	if _, err := built(context.Background(), &lambda.Event{}, nil); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}

func TestPublisher_NilConnFailsBuild(t *testing.T) {
	if _, err := lambda.NewChain(Publisher(nil)).Build(echoHandler); err == nil {
		t.Fatal("expected build error for nil connection")
	}
}

func TestEventPublisher_PublishesValidEvents(t *testing.T) {
	client := &captureSNS{}
	built := lambda.NewChain(EventPublisher(testConn(client))).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return map[string]interface{}{
				"events": map[string][]pubsub.DomainEvent{
					"order-events": {
						{Name: "order.placed", Detail: map[string]interface{}{"id": "o-1"}},
					},
				},
			}, nil
		})

	if _, err := built(context.Background(), &lambda.Event{}, nil); err != nil {
		t.Fatalf("chain error = %v", err)
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d events, want 1", len(client.published))
	}
	input := client.published[0]
	if *input.Subject != "order.placed" {
		t.Errorf("subject = %s", *input.Subject)
	}
	if attr, ok := input.MessageAttributes["message_type"]; !ok || *attr.StringValue != "order.placed" {
		t.Errorf("message_type attribute = %+v", input.MessageAttributes)
	}
}

func TestEventPublisher_InvalidEventBlocksWholeBatch(t *testing.T) {
	client := &captureSNS{}
	built := lambda.NewChain(EventPublisher(testConn(client))).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return map[string]interface{}{
				"events": map[string][]pubsub.DomainEvent{
					"order-events": {
						{Name: "order.placed", Detail: map[string]interface{}{"id": "o-1"}},
						{Name: "", Detail: map[string]interface{}{"id": "o-2"}},
					},
				},
			}, nil
		})

	if _, err := built(context.Background(), &lambda.Event{}, nil); err == nil {
		t.Fatal("expected validation error")
	}
	if len(client.published) != 0 {
		t.Errorf("published %d events before validation failure, want 0", len(client.published))
	}
}
