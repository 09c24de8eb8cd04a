// Package showroom composes the catalog view: one viewer controller per
// product, all bound to the same wishlist and cart.
package showroom

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
)

// ErrNotMounted is returned when viewers are requested while the catalog
// view is not on screen.
var ErrNotMounted = errors.New("catalog view not mounted")

// SurfaceFactory creates the rendering surface for one product viewer.
type SurfaceFactory func(p product.Product) viewer.Surface

// Mount is one on-screen instance of the catalog view.
type Mount struct {
	ID       uuid.UUID
	Platform string

	controllers []*viewer.Controller
	byID        map[string]*viewer.Controller
}

// View owns the product list and the currently mounted controllers. It holds
// no shopper state of its own.
type View struct {
	products *product.Index
	wishlist viewer.Wishlist
	cart     viewer.Cart
	surfaces SurfaceFactory
	lg       *zap.Logger

	mu    sync.RWMutex
	mount *Mount
}

// New reads the catalog once and returns an unmounted View.
func New(
	ctx context.Context,
	catalog product.Catalog,
	wl viewer.Wishlist,
	c viewer.Cart,
	surfaces SurfaceFactory,
	lg *zap.Logger,
) (*View, error) {
	products, err := catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list catalog")
	}
	idx, err := product.NewIndex(products)
	if err != nil {
		return nil, errors.Wrap(err, "index catalog")
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &View{
		products: idx,
		wishlist: wl,
		cart:     c,
		surfaces: surfaces,
		lg:       lg,
	}, nil
}

// Products returns the catalog in order.
func (v *View) Products() []product.Product {
	return v.products.All()
}

// Product returns one catalog record or product.ErrNotFound.
func (v *View) Product(id string) (product.Product, error) {
	return v.products.Get(id)
}

// Mount puts the catalog view on screen for a device with the given platform
// signature. Any previous mount is unmounted first, discarding its viewer
// state.
func (v *View) Mount(platform, pageURL string) *Mount {
	m := &Mount{
		ID:       uuid.New(),
		Platform: platform,
		byID:     make(map[string]*viewer.Controller, v.products.Len()),
	}
	lg := v.lg.With(zap.Stringer("mount_id", m.ID))
	for _, p := range v.products.All() {
		c := viewer.New(p, v.wishlist, v.cart, v.surfaces(p), viewer.Config{
			Platform: platform,
			PageURL:  pageURL,
			Logger:   lg,
		})
		m.controllers = append(m.controllers, c)
		m.byID[p.ID] = c
	}

	v.mu.Lock()
	prev := v.mount
	v.mount = m
	v.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	lg.Info("Catalog view mounted", zap.Int("viewers", len(m.controllers)))
	return m
}

// Unmount tears the current mount down. It is a no-op when nothing is
// mounted.
func (v *View) Unmount() {
	v.mu.Lock()
	prev := v.mount
	v.mount = nil
	v.mu.Unlock()

	if prev != nil {
		prev.close()
		v.lg.Info("Catalog view unmounted", zap.Stringer("mount_id", prev.ID))
	}
}

// Current returns the active mount.
func (v *View) Current() (*Mount, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.mount == nil {
		return nil, ErrNotMounted
	}
	return v.mount, nil
}

// Controller returns the mounted controller for a product.
func (v *View) Controller(id string) (*viewer.Controller, error) {
	m, err := v.Current()
	if err != nil {
		return nil, err
	}
	return m.Controller(id)
}

// Controllers returns the mounted controllers in catalog order.
func (m *Mount) Controllers() []*viewer.Controller {
	out := make([]*viewer.Controller, len(m.controllers))
	copy(out, m.controllers)
	return out
}

// Controller returns the controller for a product or product.ErrNotFound.
func (m *Mount) Controller(id string) (*viewer.Controller, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return c, nil
}

// Snapshot renders every viewer in catalog order.
func (m *Mount) Snapshot() []viewer.State {
	out := make([]viewer.State, len(m.controllers))
	for i, c := range m.controllers {
		out[i] = c.View()
	}
	return out
}

func (m *Mount) close() {
	for _, c := range m.controllers {
		c.Close()
	}
}
