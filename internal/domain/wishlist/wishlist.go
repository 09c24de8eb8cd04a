// Package wishlist holds the shared set of products the shopper liked.
package wishlist

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-showroom/internal/domain/instrument"
	"github.com/xenking/kart-showroom/internal/domain/notify"
	"github.com/xenking/kart-showroom/internal/domain/product"
)

// Change is published after every effective wishlist mutation.
type Change struct {
	ProductID  string
	InWishlist bool
}

// Store is the single source of truth for wishlist membership. It is safe
// for concurrent use; mutations are serialized and broadcast in issue order.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]product.Product

	hub     notify.Hub[Change]
	metrics *instrument.Mutations
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records mutation outcomes on m.
func WithMetrics(m *instrument.Mutations) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty wishlist.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]product.Product),
		metrics: instrument.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ToggleOrAdd adds p unless an entry for p.ID already exists, in which case
// it does nothing. It is the only add path.
func (s *Store) ToggleOrAdd(ctx context.Context, p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[p.ID]; ok {
		s.metrics.Record(ctx, "add", instrument.Noop)
		return
	}
	s.entries[p.ID] = p
	s.order = append(s.order, p.ID)
	s.metrics.Record(ctx, "add", instrument.Applied)
	zctx.From(ctx).Debug("Wishlist add", zap.String("product_id", p.ID))

	s.hub.Publish(Change{ProductID: p.ID, InWishlist: true})
}

// Remove deletes the entry for id if present.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		s.metrics.Record(ctx, "remove", instrument.Noop)
		return
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.metrics.Record(ctx, "remove", instrument.Applied)
	zctx.From(ctx).Debug("Wishlist remove", zap.String("product_id", id))

	s.hub.Publish(Change{ProductID: id, InWishlist: false})
}

// Contains reports whether id is in the wishlist.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[id]
	return ok
}

// Items returns the wishlist in insertion order.
func (s *Store) Items() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, len(s.order))
	for i, id := range s.order {
		out[i] = s.entries[id]
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe registers fn for every subsequent Change. fn runs while the store
// is locked and must not call back into the store.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}
