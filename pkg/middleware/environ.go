package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"faaskit/pkg/lambda"
)

// NamespaceVar is the well-known environment name carrying the deployment
// namespace.
const NamespaceVar = "NAMESPACE"

// EnvFromOS snapshots the process environment into an explicit map. Chains
// take the snapshot by reference instead of reading ambient process state
// per request.
func EnvFromOS() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

type environ struct {
	env      map[string]string
	required []string
	optional []string
}

// Environ injects the named environment values into kwargs. Required names
// missing from the snapshot fail chain construction; optional names are
// injected only when present.
func Environ(env map[string]string, required, optional []string) lambda.Middleware {
	return &environ{env: env, required: required, optional: optional}
}

func (m *environ) Name() string             { return "environ" }
func (m *environ) Provides() []lambda.Field { return []lambda.Field{lambda.FieldEnv} }
func (m *environ) Requires() []lambda.Field { return nil }

func (m *environ) Validate() error {
	return m.checkRequired()
}

func (m *environ) checkRequired() error {
	for _, name := range m.required {
		if _, ok := m.env[name]; !ok {
			return fmt.Errorf("%w: %s", lambda.ErrMissingConfiguration, name)
		}
	}
	return nil
}

func (m *environ) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		// Build-time validation already ran; re-check in case the chain was
		// assembled without Build.
		if err := m.checkRequired(); err != nil {
			return nil, err
		}
		if kw.Env == nil {
			kw.Env = map[string]string{}
		}
		for _, name := range m.required {
			kw.Env[name] = m.env[name]
		}
		for _, name := range m.optional {
			if v, ok := m.env[name]; ok {
				kw.Env[name] = v
			}
		}
		return next(ctx, event, kw)
	}
}

type namespaceAware struct {
	environ
}

// NamespaceAware injects the deployment namespace from the environment
// snapshot. The namespace is required.
func NamespaceAware(env map[string]string) lambda.Middleware {
	return &namespaceAware{environ{env: env, required: []string{NamespaceVar}}}
}

func (m *namespaceAware) Name() string { return "namespace-aware" }
func (m *namespaceAware) Provides() []lambda.Field {
	return []lambda.Field{lambda.FieldEnv, lambda.FieldNamespace}
}

func (m *namespaceAware) Wrap(next lambda.Handler) lambda.Handler {
	return m.environ.Wrap(func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		kw.Namespace = kw.Env[NamespaceVar]
		return next(ctx, event, kw)
	})
}
