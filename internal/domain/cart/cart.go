// Package cart holds the shared shopping cart: one entry per product with a
// quantity that never drops below one.
package cart

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-showroom/internal/domain/instrument"
	"github.com/xenking/kart-showroom/internal/domain/notify"
	"github.com/xenking/kart-showroom/internal/domain/product"
)

// DefaultQuantity seeds a new entry when the caller supplies no usable
// quantity.
const DefaultQuantity = 1

// PlaceholderUnitPrice is charged for every line regardless of the product's
// own price. Real per-item pricing is not wired in yet; Subtotal reproduces
// the storefront's current behaviour.
var PlaceholderUnitPrice = decimal.NewFromInt(1000)

// Entry is a product snapshot with its quantity.
type Entry struct {
	Product  product.Product
	Quantity int
}

// Change is published after every effective cart mutation. Quantity is zero
// when the entry was removed.
type Change struct {
	ProductID string
	InCart    bool
	Quantity  int
}

// Store is the single source of truth for cart membership and quantity. It
// is safe for concurrent use; mutations are serialized and broadcast in
// issue order.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry

	hub     notify.Hub[Change]
	metrics *instrument.Mutations
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records mutation outcomes on m.
func WithMetrics(m *instrument.Mutations) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty cart.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		metrics: instrument.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add creates an entry for p with the given quantity. A second Add for the
// same product is a no-op: it neither re-adds nor bumps the quantity.
// Quantities below one fall back to DefaultQuantity.
func (s *Store) Add(ctx context.Context, p product.Product, quantity int) {
	if quantity < 1 {
		quantity = DefaultQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[p.ID]; ok {
		s.metrics.Record(ctx, "add", instrument.Noop)
		return
	}
	s.entries[p.ID] = &Entry{Product: p, Quantity: quantity}
	s.order = append(s.order, p.ID)
	s.metrics.Record(ctx, "add", instrument.Applied)
	zctx.From(ctx).Debug("Cart add",
		zap.String("product_id", p.ID),
		zap.Int("quantity", quantity),
	)

	s.hub.Publish(Change{ProductID: p.ID, InCart: true, Quantity: quantity})
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
	zctx.From(ctx).Debug("Cart remove", zap.String("product_id", id))

	s.hub.Publish(Change{ProductID: id, InCart: false})
}

// SetQuantity replaces the quantity of an existing entry. Quantities below
// one are rejected and leave the entry untouched; removal is a separate
// operation. Unknown products are ignored.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) {
	lg := zctx.From(ctx)
	if quantity < 1 {
		s.metrics.Record(ctx, "set_quantity", instrument.Rejected)
		lg.Debug("Cart quantity rejected",
			zap.String("product_id", id),
			zap.Int("quantity", quantity),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		s.metrics.Record(ctx, "set_quantity", instrument.Noop)
		return
	}
	if e.Quantity == quantity {
		s.metrics.Record(ctx, "set_quantity", instrument.Noop)
		return
	}
	e.Quantity = quantity
	s.metrics.Record(ctx, "set_quantity", instrument.Applied)
	lg.Debug("Cart quantity set",
		zap.String("product_id", id),
		zap.Int("quantity", quantity),
	)

	s.hub.Publish(Change{ProductID: id, InCart: true, Quantity: quantity})
}

// Contains reports whether id is in the cart.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[id]
	return ok
}

// QuantityOf returns the stored quantity for id.
func (s *Store) QuantityOf(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return 0, false
	}
	return e.Quantity, true
}

// Entries returns copies of the cart lines in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.order))
	for i, id := range s.order {
		out[i] = *s.entries[id]
	}
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subtotal sums PlaceholderUnitPrice × quantity over all lines.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, e := range s.entries {
		total = total.Add(PlaceholderUnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return total
}

// Subscribe registers fn for every subsequent Change. fn runs while the store
// is locked and must not call back into the store.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}
