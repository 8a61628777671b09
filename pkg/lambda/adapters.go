package lambda

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// APIGatewayHandler adapts a built chain handler to the signature expected
// by the Lambda runtime for API Gateway proxy integrations. The chain is
// expected to end in the response codec; anything else that escapes is
// reported as a bare 500.
func APIGatewayHandler(h Handler) func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		result, err := h(ctx, FromAPIGateway(req), nil)
		if err != nil {
			return events.APIGatewayProxyResponse{
				StatusCode: 500,
				Body:       "Internal server error",
			}, nil
		}

		switch r := result.(type) {
		case *Envelope:
			return events.APIGatewayProxyResponse{
				StatusCode: r.StatusCode,
				Body:       r.Body,
				Headers:    r.Headers,
			}, nil
		default:
			body, encodeErr := EncodeBody(result)
			if encodeErr != nil {
				return events.APIGatewayProxyResponse{
					StatusCode: 500,
					Body:       "Internal server error",
				}, nil
			}
			return events.APIGatewayProxyResponse{StatusCode: 200, Body: body}, nil
		}
	}
}

// SNSHandler adapts a built chain handler to the Lambda runtime signature
// for SNS triggers. A returned error fails the invocation so the provider's
// redelivery applies.
func SNSHandler(h Handler) func(ctx context.Context, ev events.SNSEvent) error {
	return func(ctx context.Context, ev events.SNSEvent) error {
		if _, err := h(ctx, FromSNS(ev), nil); err != nil {
			return fmt.Errorf("handle subscription event: %w", err)
		}
		return nil
	}
}
