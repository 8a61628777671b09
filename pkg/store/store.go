// Package store provides the persistence boundary used by the saga engine
// and available to business handlers: keyed items with atomic conditional
// writes and set/list mutation primitives.
package store

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Item is one persisted record's attribute map.
type Item map[string]interface{}

// Key identifies an item by its partition key attribute.
type Key struct {
	Name  string
	Value string
}

// StringSet is an unordered set of strings persisted with set semantics:
// adds are idempotent and duplicate members collapse.
type StringSet []string

// Contains reports set membership.
func (s StringSet) Contains(v string) bool {
	for _, m := range s {
		if m == v {
			return true
		}
	}
	return false
}

// Add returns the set with v added, unchanged if already a member.
func (s StringSet) Add(v string) StringSet {
	if s.Contains(v) {
		return s
	}
	return append(s, v)
}

// Remove returns the set without v.
func (s StringSet) Remove(v string) StringSet {
	out := make(StringSet, 0, len(s))
	for _, m := range s {
		if m != v {
			out = append(out, m)
		}
	}
	return out
}

// Store is the storage interface consumed by this toolkit. Conditional
// operations (PutIfAbsent and the set/list mutations) fail with
// ErrConditionFailed when their precondition on the existing item does not
// hold; Update upserts like the underlying stores do.
type Store interface {
	// Get returns the item, or ErrItemNotFound.
	Get(ctx context.Context, table string, key Key) (Item, error)

	// Put writes the item unconditionally.
	Put(ctx context.Context, table string, key Key, item Item) error

	// PutIfAbsent writes the item only if no item exists at the key. This
	// is the atomic create-if-absent underpinning idempotent saga init.
	PutIfAbsent(ctx context.Context, table string, key Key, item Item) error

	// Update sets the given attributes and returns the post-update item.
	Update(ctx context.Context, table string, key Key, attrs map[string]interface{}) (Item, error)

	// Query returns the items whose indexed attribute equals value.
	Query(ctx context.Context, table, index, attribute string, value interface{}) ([]Item, error)

	// AddToSet atomically adds a value to the item's string-set attribute
	// and returns the post-update item.
	AddToSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error)

	// RemoveFromSet atomically removes a value from the item's string-set
	// attribute and returns the post-update item.
	RemoveFromSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error)

	// MoveBetweenSets atomically moves a value from one string-set
	// attribute to another and returns the post-update item.
	MoveBetweenSets(ctx context.Context, table string, key Key, source, target, value string) (Item, error)

	// AppendToList atomically appends a value to the item's list attribute,
	// creating the list if absent, and returns the post-update item.
	AppendToList(ctx context.Context, table string, key Key, attribute string, value interface{}) (Item, error)

	// MoveBetweenLists removes the element at index from the source list
	// and appends value to the target list, returning the post-update item.
	MoveBetweenLists(ctx context.Context, table string, key Key, source string, index int, target string, value interface{}) (Item, error)

	// Close releases any resources held by the backend.
	Close() error
}

// QueryUnique queries an index and insists on exactly one result. Zero or
// multiple matches are logged and reported as an absent item rather than an
// error; deciding whether that is fatal is left to the caller.
func QueryUnique(ctx context.Context, s Store, logger *logrus.Logger, table, index, attribute string, value interface{}) (Item, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	items, err := s.Query(ctx, table, index, attribute, value)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{"table": table, "index": index, "attribute": attribute}
	switch len(items) {
	case 0:
		logger.WithFields(fields).Info("No records for indexed attribute")
		return nil, nil
	case 1:
		return items[0], nil
	default:
		logger.WithFields(fields).Warn("Multiple records for indexed attribute, expected one")
		return nil, nil
	}
}

// Clone deep-copies an item so callers cannot alias backend state.
func (i Item) Clone() Item {
	if i == nil {
		return nil
	}
	return Item(cloneValue(map[string]interface{}(i)).(map[string]interface{}))
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for n, e := range t {
			out[n] = cloneValue(e)
		}
		return out
	case StringSet:
		out := make(StringSet, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
