package lambda

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Envelope is the canonical wire response: a status code, a pre-serialized
// body, and optional headers. Every failure path a client can trigger ends
// in a well-formed Envelope.
type Envelope struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Response is an explicit handler result whose body has not been serialized
// yet. A zero StatusCode means 200.
type Response struct {
	StatusCode int
	Body       interface{}
	Headers    map[string]string
}

// Set is a string set rendered as a sorted JSON array. Member order inside a
// set is not meaningful, so serialization normalizes it.
type Set map[string]struct{}

// NewSet builds a Set from its members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// MarshalJSON renders the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	members := make([]string, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	sort.Strings(members)
	return json.Marshal(members)
}

// EncodeBody renders a handler body value as wire text. Strings pass through
// verbatim; everything else is serialized as JSON.
func EncodeBody(v interface{}) (string, error) {
	switch b := v.(type) {
	case nil:
		return "", nil
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode response body: %w", err)
		}
		return string(raw), nil
	}
}
