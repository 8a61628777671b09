package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and local development. It
// honors the same conditional semantics as the persistent backends and can
// inject failures per operation.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]Item
	errs   map[string]error
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[string]map[string]Item{},
		errs:   map[string]error{},
	}
}

// SetError makes every subsequent call of the named operation ("Get",
// "AddToSet", ...) fail with err. A nil err clears the injection.
func (m *MemoryStore) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

func (m *MemoryStore) injected(op string) error {
	return m.errs[op]
}

func (m *MemoryStore) table(name string) map[string]Item {
	t, ok := m.tables[name]
	if !ok {
		t = map[string]Item{}
		m.tables[name] = t
	}
	return t
}

func (m *MemoryStore) Get(ctx context.Context, table string, key Key) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Get"); err != nil {
		return nil, err
	}
	item, ok := m.table(table)[key.Value]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, table string, key Key, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Put"); err != nil {
		return err
	}
	m.table(table)[key.Value] = item.Clone()
	return nil
}

func (m *MemoryStore) PutIfAbsent(ctx context.Context, table string, key Key, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("PutIfAbsent"); err != nil {
		return err
	}
	t := m.table(table)
	if _, ok := t[key.Value]; ok {
		return ErrConditionFailed
	}
	t[key.Value] = item.Clone()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, table string, key Key, attrs map[string]interface{}) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Update"); err != nil {
		return nil, err
	}
	t := m.table(table)
	item, ok := t[key.Value]
	if !ok {
		item = Item{key.Name: key.Value}
	}
	for k, v := range attrs {
		item[k] = v
	}
	t[key.Value] = item
	return item.Clone(), nil
}

func (m *MemoryStore) Query(ctx context.Context, table, index, attribute string, value interface{}) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Query"); err != nil {
		return nil, err
	}
	var out []Item
	for _, item := range m.table(table) {
		if item[attribute] == value {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) AddToSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return m.mutate(ctx, "AddToSet", table, key, func(item Item) {
		item[attribute] = toStringSet(item[attribute]).Add(value)
	})
}

func (m *MemoryStore) RemoveFromSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return m.mutate(ctx, "RemoveFromSet", table, key, func(item Item) {
		item[attribute] = toStringSet(item[attribute]).Remove(value)
	})
}

func (m *MemoryStore) MoveBetweenSets(ctx context.Context, table string, key Key, source, target, value string) (Item, error) {
	return m.mutate(ctx, "MoveBetweenSets", table, key, func(item Item) {
		item[source] = toStringSet(item[source]).Remove(value)
		item[target] = toStringSet(item[target]).Add(value)
	})
}

func (m *MemoryStore) AppendToList(ctx context.Context, table string, key Key, attribute string, value interface{}) (Item, error) {
	return m.mutate(ctx, "AppendToList", table, key, func(item Item) {
		item[attribute] = append(toList(item[attribute]), value)
	})
}

func (m *MemoryStore) MoveBetweenLists(ctx context.Context, table string, key Key, source string, index int, target string, value interface{}) (Item, error) {
	return m.mutate(ctx, "MoveBetweenLists", table, key, func(item Item) {
		src := toList(item[source])
		if index >= 0 && index < len(src) {
			item[source] = append(src[:index:index], src[index+1:]...)
		}
		item[target] = append(toList(item[target]), value)
	})
}

func (m *MemoryStore) Close() error { return nil }

// mutate applies fn to an existing item under the key-exists condition the
// persistent backends enforce for set/list mutations.
func (m *MemoryStore) mutate(_ context.Context, op, table string, key Key, fn func(Item)) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(op); err != nil {
		return nil, err
	}
	t := m.table(table)
	item, ok := t[key.Value]
	if !ok {
		return nil, ErrConditionFailed
	}
	fn(item)
	t[key.Value] = item
	return item.Clone(), nil
}

// toStringSet coerces a stored attribute into a StringSet, tolerating the
// decoded forms a backend round-trip can produce.
func toStringSet(v interface{}) StringSet {
	switch t := v.(type) {
	case nil:
		return StringSet{}
	case StringSet:
		return t
	case []string:
		return StringSet(t)
	case []interface{}:
		out := make(StringSet, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return StringSet{}
	}
}

func toList(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{}
	}
}
