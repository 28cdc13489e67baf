package queue

import (
	"sort"

	"github.com/tordrt/schemasync/internal/schema"
)

// Listener observes the queue. Calls come from the worker goroutine, in order,
// after the models have been updated and before the command's ticket settles.
type Listener interface {
	// IdentifierMapped is called once per provisional id that became durable
	IdentifierMapped(provisional, real string, typ schema.EntityType)
	// RolledBack is called after a failure reset the Local Model
	RolledBack(cause error)
}

// ListenerFunc adapts a function to Listener; it ignores rollbacks
type ListenerFunc func(provisional, real string, typ schema.EntityType)

// IdentifierMapped calls f
func (f ListenerFunc) IdentifierMapped(provisional, real string, typ schema.EntityType) {
	f(provisional, real, typ)
}

// RolledBack does nothing
func (ListenerFunc) RolledBack(error) {}

// Subscribe registers l and returns a function that removes it
func (q *Queue) Subscribe(l Listener) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++
	q.listeners[id] = l
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

// OnIdentifierMapped registers fn to be called for every resolved identifier
func (q *Queue) OnIdentifierMapped(fn func(provisional, real string, typ schema.EntityType)) (unsubscribe func()) {
	return q.Subscribe(ListenerFunc(fn))
}

// listenersLocked returns the listeners in subscription order
func (q *Queue) listenersLocked() []Listener {
	ids := make([]int, 0, len(q.listeners))
	for id := range q.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = q.listeners[id]
	}
	return out
}
