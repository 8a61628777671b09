package authorizer

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testAuthorizer(secret string) *Authorizer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(&Config{Secret: secret}, logger)
}

func TestTokenRoundTrip(t *testing.T) {
	auth := testAuthorizer("test-secret")

	token, err := auth.GenerateToken("user-1", "example.com", []string{"hello:read", "hello:write"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %s", claims.Subject)
	}
	if claims.Domain != "example.com" {
		t.Errorf("domain = %s", claims.Domain)
	}
	if claims.Scopes != "hello:read hello:write" {
		t.Errorf("scopes = %q, want space-delimited list", claims.Scopes)
	}
	if claims.Issuer != "faaskit-dev" {
		t.Errorf("issuer = %s", claims.Issuer)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := testAuthorizer("right-secret").GenerateToken("user-1", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testAuthorizer("wrong-secret").ValidateToken(token); err == nil {
		t.Fatal("expected validation failure with the wrong secret")
	}
}

func TestAuthorize(t *testing.T) {
	auth := testAuthorizer("test-secret")
	token, err := auth.GenerateToken("user-1", "example.com", []string{"hello:read"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{name: "valid bearer", header: "Bearer " + token},
		{name: "missing header", header: "", wantErr: true},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "missing token", header: "Bearer", wantErr: true},
		{name: "garbage token", header: "Bearer not.a.jwt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := auth.Authorize(tt.header)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Fatalf("err = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if claims["sub"] != "user-1" || claims["scopes"] != "hello:read" {
				t.Errorf("claims = %v", claims)
			}
		})
	}
}
