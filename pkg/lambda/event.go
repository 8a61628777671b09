package lambda

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Event is the generic trigger payload handed to a handler chain. It is a
// normalized view over the provider event shapes (API Gateway proxy requests,
// SNS notifications) so middleware can be written once for every trigger.
type Event struct {
	Headers               map[string]string
	Body                  string
	QueryStringParameters map[string]string
	PathParameters        map[string]string

	// Authorizer holds the claims produced by the API Gateway custom
	// authorizer (sub, scopes, domain, ...).
	Authorizer map[string]interface{}

	// Records holds subscription notification records for pub/sub triggers.
	Records []SubscriptionRecord
}

// SubscriptionRecord is one record of a subscription notification event.
type SubscriptionRecord struct {
	TopicARN string
	Message  string
}

// Header returns the named header, matching the name case-insensitively.
// Gateways and CDNs rewrite header casing, so exact lookups are not safe.
func (e *Event) Header(name string) string {
	if e == nil {
		return ""
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Claim returns the named authorizer claim as a string, or "" if the claim
// is absent or not a string.
func (e *Event) Claim(name string) string {
	if e == nil || e.Authorizer == nil {
		return ""
	}
	s, _ := e.Authorizer[name].(string)
	return s
}

// HasClaim reports whether the authorizer section contains the named claim.
func (e *Event) HasClaim(name string) bool {
	if e == nil || e.Authorizer == nil {
		return false
	}
	_, ok := e.Authorizer[name]
	return ok
}

// FromAPIGateway converts an API Gateway proxy request into a generic Event.
func FromAPIGateway(req events.APIGatewayProxyRequest) *Event {
	return &Event{
		Headers:               req.Headers,
		Body:                  req.Body,
		QueryStringParameters: req.QueryStringParameters,
		PathParameters:        req.PathParameters,
		Authorizer:            req.RequestContext.Authorizer,
	}
}

// FromSNS converts an SNS notification event into a generic Event.
func FromSNS(ev events.SNSEvent) *Event {
	event := &Event{}
	for _, r := range ev.Records {
		event.Records = append(event.Records, SubscriptionRecord{
			TopicARN: r.SNS.TopicArn,
			Message:  r.SNS.Message,
		})
	}
	return event
}
