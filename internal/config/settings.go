package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/dshills/crossbuild/internal/config/loader"
	"github.com/dshills/crossbuild/internal/config/notify"
)

// EventChanged is raised with the changed keys as arguments.
const EventChanged = "settingsChanged"

// Settings is the read-only settings boundary.
type Settings interface {
	// Get returns the value for key.
	Get(key string) (string, bool)

	// OnChange registers fn to receive the keys that changed.
	OnChange(fn func(keys []string)) *notify.Subscription
}

// GetString returns the value for key or def when it is unset or empty.
func GetString(s Settings, key, def string) string {
	if s == nil {
		return def
	}
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return def
}

// GetList returns a list-valued setting split on loader.ListSeparator.
func GetList(s Settings, key string) []string {
	v := GetString(s, key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, loader.ListSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MapSettings is an in-memory Settings. It is used by tests and by
// callers that embed crossbuild with their own settings storage.
type MapSettings struct {
	mu     sync.RWMutex
	values map[string]string
	events *notify.Notifier
}

// NewMapSettings creates a MapSettings holding a copy of values.
func NewMapSettings(values map[string]string) *MapSettings {
	m := &MapSettings{
		values: make(map[string]string, len(values)),
		events: notify.New(),
	}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the value for key.
func (m *MapSettings) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// OnChange registers fn to receive the keys that changed.
func (m *MapSettings) OnChange(fn func(keys []string)) *notify.Subscription {
	return m.events.SubscribeName(EventChanged, func(ev notify.Event) {
		fn(argsToKeys(ev.Args))
	})
}

// Set stores a value and notifies if it changed.
func (m *MapSettings) Set(key, value string) {
	m.Replace(m.withValue(key, value))
}

func (m *MapSettings) withValue(key, value string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	next := make(map[string]string, len(m.values)+1)
	for k, v := range m.values {
		next[k] = v
	}
	next[key] = value
	return next
}

// Replace swaps in a full set of values and notifies about every key that
// was added, removed or changed.
func (m *MapSettings) Replace(values map[string]string) {
	m.mu.Lock()
	changed := Diff(m.values, values)
	m.values = make(map[string]string, len(values))
	for k, v := range values {
		m.values[k] = v
	}
	m.mu.Unlock()

	if len(changed) > 0 {
		m.events.Notify(EventChanged, keysToArgs(changed)...)
	}
}

// Diff returns the sorted keys whose values differ between a and b.
func Diff(a, b map[string]string) []string {
	var changed []string
	for k, v := range a {
		if nv, ok := b[k]; !ok || nv != v {
			changed = append(changed, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func keysToArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}

func argsToKeys(args []any) []string {
	keys := make([]string, 0, len(args))
	for _, a := range args {
		if s, ok := a.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys
}

var _ Settings = (*MapSettings)(nil)
