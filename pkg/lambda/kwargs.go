package lambda

import "context"

// Field names one derived value a middleware can contribute to the Kwargs
// passed inward through a chain. The set is closed: middleware declare the
// fields they provide and require so collisions and missing providers are
// caught when a chain is built, not per request.
type Field string

const (
	FieldEnv           Field = "env"
	FieldNamespace     Field = "namespace"
	FieldConfiguration Field = "configuration"
	FieldDomain        Field = "domain"
	FieldSub           Field = "sub"
	FieldScopes        Field = "scopes"
	FieldParams        Field = "params"
	FieldBody          Field = "body"
	FieldMessage       Field = "message"
	FieldOrigin        Field = "origin"
)

// ConfigClient loads and saves the structured settings of a deployment.
type ConfigClient interface {
	Load(ctx context.Context) (map[string]interface{}, error)
	Save(ctx context.Context, settings map[string]interface{}) error
}

// Kwargs is the accumulating context built as an event passes through a
// chain. Each middleware fills the fields it declared via Provides; the
// innermost handler receives the union of all prior derivations.
type Kwargs struct {
	// Env holds the environment values injected by the Environ middleware.
	Env map[string]string

	// Namespace is the deployment namespace.
	Namespace string

	// Configuration is a bound settings client for the deployment.
	Configuration ConfigClient

	// Domain is the caller's custom-domain claim.
	Domain string

	// Sub is the caller's subject identifier claim.
	Sub string

	// Scopes are the caller's granted scopes.
	Scopes []string

	// Params holds validated query-string and path parameters.
	Params map[string]string

	// Body is the validated, deserialized request body.
	Body map[string]interface{}

	// Message is the decoded subscription message.
	Message map[string]interface{}

	// Origin is the request origin accepted by the CORS middleware.
	Origin string
}
