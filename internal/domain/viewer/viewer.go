// Package viewer implements the per-product viewer controller: AR capability,
// variant selection, hotspot navigation, overlays and fullscreen, plus the
// wishlist/cart membership it derives from the shared stores.
package viewer

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/wishlist"
)

// DefaultVariant is the sentinel option that clears the variant override.
const DefaultVariant = "Default"

// PriceLabel is shown for every product until real pricing is wired in.
const PriceLabel = "Rs. 1000"

var (
	// ErrClosed is returned by operations on an unmounted controller.
	ErrClosed = errors.New("viewer closed")
	// ErrVariantsUnavailable is returned while the model has not loaded, and
	// forever after a failed load.
	ErrVariantsUnavailable = errors.New("variants unavailable")
	// ErrUnknownVariant is returned for a name the model does not declare.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrAnnotationsHidden is returned when a hotspot is selected while the
	// annotation layer is hidden.
	ErrAnnotationsHidden = errors.New("annotations hidden")
	// ErrUnknownAnnotation is returned for an out-of-range hotspot index.
	ErrUnknownAnnotation = errors.New("unknown annotation")
	// ErrNotFullscreen is returned by a Surface asked to exit fullscreen
	// while the page is not fullscreen.
	ErrNotFullscreen = errors.New("not in fullscreen")
	// ErrInvalidDirection is returned for a quantity direction other than
	// Increase or Decrease.
	ErrInvalidDirection = errors.New("invalid quantity direction")
)

// Direction is a quantity change request.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Config holds per-mount settings.
type Config struct {
	// Platform is the host device signature (user agent), probed once.
	Platform string
	// PageURL is encoded in the QR hint shown to non-AR devices.
	PageURL string
	Logger  *zap.Logger
}

// Controller drives one product viewer. Its state is private to the
// instance; the only shared state it touches is the wishlist and cart.
type Controller struct {
	product  product.Product
	wishlist Wishlist
	cart     Cart
	surface  Surface
	pageURL  string
	lg       *zap.Logger

	arSupported bool

	loaded chan struct{}
	cancel context.CancelFunc
	unsubs []func()

	mu                 sync.Mutex
	closed             bool
	wishlistSeen       bool
	cartSeen           bool
	inWishlist         bool
	inCart             bool
	quantity           int
	variantsReady      bool
	variants           []string
	selected           string
	hasSelection       bool
	helpVisible        bool
	annotationsVisible bool
}

// New mounts a controller for p. It probes AR capability, subscribes to both
// stores, derives the initial membership and starts loading the model.
func New(p product.Product, wl Wishlist, c Cart, s Surface, cfg Config) *Controller {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := &Controller{
		product:     p,
		wishlist:    wl,
		cart:        c,
		surface:     s,
		pageURL:     cfg.PageURL,
		lg:          lg.With(zap.String("product_id", p.ID)),
		arSupported: DetectAR(cfg.Platform),
		loaded:      make(chan struct{}),
		cancel:      cancel,
		quantity:    cart.DefaultQuantity,
	}

	// Subscribe before reading so no change slips between the read and the
	// subscription; a change seen first wins over the initial read.
	ctrl.unsubs = []func(){
		wl.Subscribe(ctrl.onWishlistChange),
		c.Subscribe(ctrl.onCartChange),
	}
	inWishlist := wl.Contains(p.ID)
	inCart := c.Contains(p.ID)
	quantity, _ := c.QuantityOf(p.ID)

	ctrl.mu.Lock()
	if !ctrl.wishlistSeen {
		ctrl.inWishlist = inWishlist
	}
	if !ctrl.cartSeen {
		ctrl.inCart = inCart
		if inCart {
			ctrl.quantity = quantity
		}
	}
	ctrl.mu.Unlock()

	go ctrl.awaitLoad(ctx, s.Load(p.Model))

	return ctrl
}

func (c *Controller) awaitLoad(ctx context.Context, results <-chan LoadResult) {
	select {
	case <-ctx.Done():
		return
	case res, ok := <-results:
		if !ok {
			res = LoadResult{Err: errors.New("load channel closed without result")}
		}
		c.applyLoad(res)
	}
}

func (c *Controller) applyLoad(res LoadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	defer close(c.loaded)

	if res.Err != nil {
		c.lg.Warn("Model load failed, variant selector disabled", zap.Error(res.Err))
		return
	}
	c.variants = slices.Clone(res.Variants)
	c.variantsReady = true
	c.lg.Debug("Model loaded", zap.Strings("variants", c.variants))
}

func (c *Controller) onWishlistChange(ch wishlist.Change) {
	if ch.ProductID != c.product.ID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wishlistSeen = true
	c.inWishlist = ch.InWishlist
}

func (c *Controller) onCartChange(ch cart.Change) {
	if ch.ProductID != c.product.ID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cartSeen = true
	c.inCart = ch.InCart
	if ch.InCart {
		c.quantity = ch.Quantity
	}
}

// Product returns the product this controller renders.
func (c *Controller) Product() product.Product {
	return c.product
}

// Loaded is closed once the model load has settled, successfully or not.
// It never closes if the load never resolves or the controller was closed
// first.
func (c *Controller) Loaded() <-chan struct{} {
	return c.loaded
}

// Close unmounts the controller. Pending load continuations become no-ops,
// store subscriptions are dropped and the surface is released. Close is
// idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	c.cancel()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	c.surface.Release()
}

// ToggleWishlist removes the product from the wishlist if it is there and
// adds it otherwise.
func (c *Controller) ToggleWishlist(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	in := c.inWishlist
	c.mu.Unlock()

	if in {
		c.wishlist.Remove(ctx, c.product.ID)
	} else {
		c.wishlist.ToggleOrAdd(ctx, c.product)
	}
	return nil
}

// ToggleCart removes the product from the cart if it is there and adds it
// otherwise, seeded with the local quantity.
func (c *Controller) ToggleCart(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	in, quantity := c.inCart, c.quantity
	c.mu.Unlock()

	if in {
		c.cart.Remove(ctx, c.product.ID)
	} else {
		c.cart.Add(ctx, c.product, quantity)
	}
	return nil
}

// ChangeQuantity moves the local quantity by one and forwards the new value
// to the cart. Decrease is ignored at one. The cart ignores the update when
// the product is not in it, so the local value then only pre-seeds a later
// ToggleCart.
func (c *Controller) ChangeQuantity(ctx context.Context, dir Direction) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.quantity
	var next int
	switch dir {
	case Increase:
		next = prev + 1
	case Decrease:
		if prev <= 1 {
			c.mu.Unlock()
			return nil
		}
		next = prev - 1
	default:
		c.mu.Unlock()
		return errors.Wrapf(ErrInvalidDirection, "%q", dir)
	}
	c.quantity = next
	c.mu.Unlock()

	c.cart.SetQuantity(ctx, c.product.ID, next)
	return nil
}

// Variants returns the selectable options, loaded names followed by
// DefaultVariant. ok is false until the model has loaded.
func (c *Controller) Variants() (options []string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.variantsReady {
		return nil, false
	}
	return c.variantOptions(), true
}

func (c *Controller) variantOptions() []string {
	out := make([]string, 0, len(c.variants)+1)
	out = append(out, c.variants...)
	return append(out, DefaultVariant)
}

// SelectVariant renders the named variant. DefaultVariant clears the
// override while still counting as a selection.
func (c *Controller) SelectVariant(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.variantsReady {
		return ErrVariantsUnavailable
	}
	switch {
	case name == DefaultVariant:
		c.surface.SetVariant("")
	case slices.Contains(c.variants, name):
		c.surface.SetVariant(name)
	default:
		return errors.Wrapf(ErrUnknownVariant, "%q", name)
	}
	c.selected = name
	c.hasSelection = true
	return nil
}

// ToggleHelp shows or hides the help overlay.
func (c *Controller) ToggleHelp() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.helpVisible = !c.helpVisible
	return nil
}

// ToggleAnnotations shows or hides the hotspot layer.
func (c *Controller) ToggleAnnotations() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.annotationsVisible = !c.annotationsVisible
	return nil
}

// SelectAnnotation points the camera at the hotspot with the given index.
//
// The camera target is taken from the annotation's Position and the orbit
// from its Target. The two names look swapped relative to the rest of the
// model; that is the storefront's current behaviour and is kept until the
// intended camera semantics are confirmed.
func (c *Controller) SelectAnnotation(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.annotationsVisible {
		return ErrAnnotationsHidden
	}
	if index < 0 || index >= len(c.product.Annotations) {
		return errors.Wrapf(ErrUnknownAnnotation, "index %d", index)
	}
	a := c.product.Annotations[index]
	c.surface.SetCameraTarget(a.Position)
	c.surface.SetOrbit(a.Target)
	return nil
}

// ToggleFullscreen enters fullscreen unless the page already is fullscreen,
// in which case it exits. The decision uses the surface's actual mode.
func (c *Controller) ToggleFullscreen() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if c.surface.IsFullscreen() {
		// The page may have left fullscreen on its own since the check.
		if err := c.surface.ExitFullscreen(); err != nil && !errors.Is(err, ErrNotFullscreen) {
			return errors.Wrap(err, "exit fullscreen")
		}
		return nil
	}
	if err := c.surface.RequestFullscreen(); err != nil {
		return errors.Wrap(err, "request fullscreen")
	}
	return nil
}
