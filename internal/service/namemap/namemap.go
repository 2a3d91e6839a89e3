// Package namemap holds the per-run maps that bridge submission-supplied
// names to server-generated ids. All types are safe for concurrent use by
// the fanned-out tasks of one run.
package namemap

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Map is a name to id mapping. Set overwrites, so duplicate names resolve
// to whichever write landed last.
type Map struct {
	mu  sync.Mutex
	ids map[string]string
}

// Set records id under name.
func (m *Map) Set(name, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string]string)
	}
	m.ids[name] = id
}

// Get returns the id recorded under name.
func (m *Map) Get(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[name]
	return id, ok
}

// Snapshot returns a copy of the mapping.
func (m *Map) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.ids))
	for k, v := range m.ids {
		out[k] = v
	}
	return out
}

// Registry is a Map whose entries are created on first use.
//
// Resolve is an insert-if-absent primitive: for a given name the create
// function runs at most once at a time, callers racing on the same new name
// share its result, and a successful id is kept for later callers.
type Registry struct {
	Map
	group singleflight.Group
}

// Resolve returns the id for name, calling create when none is recorded.
// A failed create is not recorded.
func (r *Registry) Resolve(name string, create func() (string, error)) (string, error) {
	if id, ok := r.Get(name); ok {
		return id, nil
	}
	v, err, _ := r.group.Do(name, func() (any, error) {
		// A flight for name may have finished between Get and Do.
		if id, ok := r.Get(name); ok {
			return id, nil
		}
		id, err := create()
		if err != nil {
			return "", err
		}
		r.Set(name, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Multi maps a name to the list of ids attached to it, such as the fields or
// coupons that must be related to one ticket.
type Multi struct {
	mu  sync.Mutex
	ids map[string][]string
}

// Add appends id under every name.
func (m *Multi) Add(id string, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string][]string)
	}
	for _, name := range names {
		m.ids[name] = append(m.ids[name], id)
	}
}

// Snapshot returns a deep copy with each id list sorted, so results do not
// depend on the completion order of concurrent writers.
func (m *Multi) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.ids))
	for k, v := range m.ids {
		ids := append([]string(nil), v...)
		sort.Strings(ids)
		out[k] = ids
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
