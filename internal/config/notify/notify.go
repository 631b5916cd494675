// Package notify provides named change notification with merge windows.
//
// Observers subscribe either to every event or to a single event name.
// While a merge window is open, events of the same name are coalesced:
// their payload arguments are de-duplicated (an argument seen again moves
// to its most recent position) and delivered as one event per name when
// the outermost window closes.
package notify

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Event is a named notification with a payload.
type Event struct {
	// Name identifies the kind of change, e.g. "dataChanged".
	Name string

	// Args is the event payload. Coalesced events carry the merged arguments.
	Args []any
}

// Observer is called when an event is delivered.
type Observer func(ev Event)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uuid.UUID
	name     string
	observer Observer

	mu       sync.Mutex
	notifier *Notifier
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id.String()
}

// Name returns the event name this subscription is bound to, or "" for
// subscriptions that receive every event.
func (s *Subscription) Name() string {
	return s.name
}

// Unsubscribe removes this subscription from whichever notifier currently
// owns it.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	n := s.notifier
	s.notifier = nil
	s.mu.Unlock()

	if n != nil {
		n.remove(s.id)
	}
}

func (s *Subscription) setNotifier(n *Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// pending holds the coalesced arguments of one event name.
type pending struct {
	name string
	args []any
}

// Notifier manages subscriptions and delivers events.
type Notifier struct {
	mu sync.Mutex

	// Subscriptions in registration order.
	subs []*Subscription

	// Merge window depth and queued events in first-seen name order.
	depth   int
	pending []*pending

	closed bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all events.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add("", observer)
}

// SubscribeName registers an observer for events with the given name.
func (n *Notifier) SubscribeName(name string, observer Observer) *Subscription {
	return n.add(name, observer)
}

func (n *Notifier) add(name string, observer Observer) *Subscription {
	sub := &Subscription{
		id:       uuid.New(),
		name:     name,
		observer: observer,
		notifier: n,
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	return sub
}

func (n *Notifier) remove(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Notify delivers an event, or queues it when a merge window is open.
func (n *Notifier) Notify(name string, args ...any) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if n.depth > 0 {
		n.queue(name, args)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	n.deliver(Event{Name: name, Args: args})
}

// queue coalesces args into the pending entry for name. Caller holds mu.
func (n *Notifier) queue(name string, args []any) {
	var p *pending
	for _, q := range n.pending {
		if q.name == name {
			p = q
			break
		}
	}
	if p == nil {
		p = &pending{name: name}
		n.pending = append(n.pending, p)
	}

	for _, a := range args {
		for i, existing := range p.args {
			if reflect.DeepEqual(existing, a) {
				p.args = append(p.args[:i], p.args[i+1:]...)
				break
			}
		}
		p.args = append(p.args, a)
	}
}

// BeginMerge opens a merge window. Windows nest; events are flushed when
// the outermost window closes.
func (n *Notifier) BeginMerge() {
	n.mu.Lock()
	n.depth++
	n.mu.Unlock()
}

// EndMerge closes a merge window and flushes queued events if it was the
// outermost one.
func (n *Notifier) EndMerge() {
	n.mu.Lock()
	if n.depth == 0 {
		n.mu.Unlock()
		return
	}
	n.depth--
	if n.depth > 0 || n.closed {
		n.mu.Unlock()
		return
	}
	queued := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, p := range queued {
		n.deliver(Event{Name: p.name, Args: p.args})
	}
}

// Merge runs fn inside a merge window.
func (n *Notifier) Merge(fn func()) {
	n.BeginMerge()
	defer n.EndMerge()
	fn()
}

// MoveTo transfers every subscription to dst. Existing Subscription
// handles stay valid and now unsubscribe from dst.
func (n *Notifier) MoveTo(dst *Notifier) {
	if dst == nil || dst == n {
		return
	}

	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	dst.mu.Lock()
	for _, s := range subs {
		s.setNotifier(dst)
		dst.subs = append(dst.subs, s)
	}
	dst.mu.Unlock()
}

// Close drops queued events and stops delivery. It is safe to call Close
// multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.pending = nil
}

// deliver calls every matching observer outside the lock.
func (n *Notifier) deliver(ev Event) {
	n.mu.Lock()
	observers := make([]Observer, 0, len(n.subs))
	for _, s := range n.subs {
		if s.name == "" || s.name == ev.Name {
			observers = append(observers, s.observer)
		}
	}
	n.mu.Unlock()

	for _, obs := range observers {
		obs(ev)
	}
}
