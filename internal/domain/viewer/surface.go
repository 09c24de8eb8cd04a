package viewer

import (
	"context"

	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/wishlist"
)

// LoadResult is the outcome of loading a model asset. Variants lists the
// variant names declared by the asset, in asset order.
type LoadResult struct {
	Variants []string
	Err      error
}

// Surface is the rendering collaborator behind one viewer.
type Surface interface {
	// Load starts loading the model and returns a channel that yields exactly
	// one result and is then closed. The channel may never yield.
	Load(model product.ModelRef) <-chan LoadResult
	// SetVariant switches the rendered variant. An empty name clears the
	// override and renders the model's own materials.
	SetVariant(name string)
	SetCameraTarget(v product.Vector3)
	SetOrbit(d product.Descriptor)
	RequestFullscreen() error
	ExitFullscreen() error
	// IsFullscreen reports the actual presentation mode, which may change
	// outside the viewer (for example a platform exit key).
	IsFullscreen() bool
	// Release detaches the surface from the page on unmount. A surface that
	// owns fullscreen gives it up.
	Release()
}

// Wishlist is the part of the wishlist store a viewer depends on.
type Wishlist interface {
	ToggleOrAdd(ctx context.Context, p product.Product)
	Remove(ctx context.Context, id string)
	Contains(id string) bool
	Subscribe(fn func(wishlist.Change)) (unsubscribe func())
}

// Cart is the part of the cart store a viewer depends on.
type Cart interface {
	Add(ctx context.Context, p product.Product, quantity int)
	Remove(ctx context.Context, id string)
	SetQuantity(ctx context.Context, id string, quantity int)
	Contains(id string) bool
	QuantityOf(id string) (int, bool)
	Subscribe(fn func(cart.Change)) (unsubscribe func())
}
