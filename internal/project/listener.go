package project

import "github.com/dshills/crossbuild/internal/config/notify"

// ModelReplaced is the key delivered when a whole model was swapped.
const ModelReplaced = "*"

const eventModelChanged = "modelChanged"

// Model is the live view of the active toolchain or uploader. Each switch
// creates a new Model that takes over the listeners of the previous one.
type Model struct {
	name   string
	events *notify.Notifier
}

func newModel(name string) *Model {
	return &Model{name: name, events: notify.New()}
}

// Name returns the toolchain or uploader this model represents.
func (m *Model) Name() string {
	return m.name
}

// OnChange subscribes fn to edits of the model. fn receives the changed
// key, or ModelReplaced after a switch.
func (m *Model) OnChange(fn func(key string)) *notify.Subscription {
	return m.events.SubscribeName(eventModelChanged, func(ev notify.Event) {
		for _, a := range ev.Args {
			if k, ok := a.(string); ok {
				fn(k)
			}
		}
	})
}

// Listeners returns the number of subscriptions.
func (m *Model) Listeners() int {
	return m.events.Len()
}

func (m *Model) changed(key string) {
	m.events.Notify(eventModelChanged, key)
}

// replace returns a model for name that owns m's listeners. The caller
// announces the swap with changed(ModelReplaced).
func (m *Model) replace(name string) *Model {
	next := newModel(name)
	m.events.MoveTo(next.events)
	m.events.Close()
	return next
}

func (m *Model) close() {
	m.events.Close()
}
