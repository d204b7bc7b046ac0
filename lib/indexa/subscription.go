package indexa

import (
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Subscription
// --------------------------------------------------------------------------

// Subscription is the handle returned by Subscribe. Its identity removes the
// listener again; the callback itself carries no identity.
type Subscription struct {
	store  string
	fn     func([]Record)
	closed atomic.Bool
}

// Store returns the name of the store the subscription listens on.
func (s *Subscription) Store() string {
	return s.store
}

// subscriberList is the ordered set of listeners of one store. Order is
// registration order; the notify cycle delivers in exactly that order.
type subscriberList struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (l *subscriberList) add(sub *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, sub)
}

func (l *subscriberList) remove(sub *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

// snapshot copies the current listener slice so delivery never holds the
// lock while running callbacks.
func (l *subscriberList) snapshot() []*Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Subscription(nil), l.subs...)
}

func (l *subscriberList) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs) == 0
}

// --------------------------------------------------------------------------
// Registry Methods
// --------------------------------------------------------------------------

// Subscribe registers fn as a change listener on the store and immediately
// delivers the current full snapshot to it. After every committed mutation
// on the store, fn receives a fresh snapshot of all records, never a delta.
//
// The callback must treat every invocation as "this is the current truth":
// two mutations racing in quick succession may coalesce into one observed
// final state or trigger one notification each, depending on commit order.
func (d *Database) Subscribe(store string, fn func([]Record)) (*Subscription, error) {
	sub := &Subscription{store: store, fn: fn}

	// register first, then read: a mutation committing while the initial
	// snapshot is read already sees the listener and runs its own cycle, so
	// the worst case is an extra delivery, never a missed one
	list, _ := d.subscribers.LoadOrCompute(store, func() *subscriberList {
		return &subscriberList{}
	})
	list.add(sub)

	records, err := d.GetAll(store)
	if err != nil {
		d.Unsubscribe(sub)
		return nil, err
	}

	deliver(sub, records)
	trace("subscribed on %q", store)
	return sub, nil
}

// Unsubscribe removes the subscription from its store. Removing an unknown
// or already removed subscription is a no-op. A mid-cycle unsubscribe stops
// deliveries that have not started yet; one already running may complete.
func (d *Database) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.closed.CompareAndSwap(false, true) {
		return
	}
	if list, ok := d.subscribers.Load(sub.store); ok {
		list.remove(sub)
	}
	trace("unsubscribed from %q", sub.store)
}

// notify runs one notification cycle for the store: one fresh read of all
// records, delivered to every listener in registration order. It runs as a
// background continuation of a committed mutation. With zero listeners no
// read is performed at all.
func (d *Database) notify(store string) {
	list, ok := d.subscribers.Load(store)
	if !ok || list.empty() {
		return
	}

	records, err := d.GetAll(store)
	if err != nil {
		trace("notify %q: snapshot failed: %v", store, err)
		return
	}

	countNotification()
	for _, sub := range list.snapshot() {
		if sub.closed.Load() {
			continue
		}
		deliver(sub, records)
	}
}

// deliver invokes one listener, isolating panics so a faulty listener can
// never starve the remaining ones or the triggering caller.
func deliver(sub *Subscription, records []Record) {
	defer func() {
		if r := recover(); r != nil {
			trace("listener on %q panicked: %v", sub.store, r)
		}
	}()
	sub.fn(records)
}
