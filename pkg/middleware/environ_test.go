package middleware

import (
	"context"
	"errors"
	"testing"

	"faaskit/pkg/lambda"
)

func TestEnviron_InjectsValues(t *testing.T) {
	env := map[string]string{
		"NAMESPACE": "dev",
		"OPTIONAL":  "present",
		"IGNORED":   "never asked for",
	}
	built := lambda.NewChain(Environ(env, []string{"NAMESPACE"}, []string{"OPTIONAL", "ABSENT"})).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return kw.Env, nil
		})

	result, err := built(context.Background(), &lambda.Event{}, nil)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}
	got := result.(map[string]string)
	if got["NAMESPACE"] != "dev" || got["OPTIONAL"] != "present" {
		t.Errorf("env = %v", got)
	}
	if _, ok := got["ABSENT"]; ok {
		t.Error("absent optional name was injected")
	}
	if _, ok := got["IGNORED"]; ok {
		t.Error("undeclared name was injected")
	}
}

func TestEnviron_MissingRequiredFailsBuild(t *testing.T) {
	_, err := lambda.NewChain(Environ(map[string]string{}, []string{"NAMESPACE"}, nil)).Build(echoHandler)
	if !errors.Is(err, lambda.ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
}

func TestNamespaceAware_SetsNamespace(t *testing.T) {
	built := lambda.NewChain(NamespaceAware(map[string]string{"NAMESPACE": "stage"})).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			return kw.Namespace, nil
		})

	result, err := built(context.Background(), &lambda.Event{}, nil)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}
	if result != "stage" {
		t.Errorf("namespace = %v, want stage", result)
	}
}

func TestNamespaceAware_MissingNamespaceFailsBuild(t *testing.T) {
	_, err := lambda.NewChain(NamespaceAware(map[string]string{})).Build(echoHandler)
	if !errors.Is(err, lambda.ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
}
