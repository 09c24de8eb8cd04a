// Package notify implements the ordered change broadcast shared by the
// wishlist and cart stores.
package notify

import "sync"

// Hub fans a change out to every subscriber in subscription order.
//
// Publish is expected to be called with the owning store's lock held, which
// is what gives subscribers a single, issue-ordered stream of changes.
// Subscribers must therefore not call back into the publishing store.
type Hub[E any] struct {
	mu   sync.Mutex
	next uint64
	subs []subscriber[E]
}

type subscriber[E any] struct {
	id uint64
	fn func(E)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is idempotent.
func (h *Hub[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	h.subs = append(h.subs, subscriber[E]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub[E]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to a snapshot of the current subscribers.
func (h *Hub[E]) Publish(e E) {
	h.mu.Lock()
	subs := h.subs
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len reports the number of active subscribers.
func (h *Hub[E]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
