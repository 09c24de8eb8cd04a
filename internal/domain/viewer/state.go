package viewer

import (
	"slices"

	"github.com/xenking/kart-showroom/internal/domain/product"
)

// State is an immutable snapshot of everything a viewer renders.
type State struct {
	Product product.Product

	ARSupported bool
	// ShowQRCode is set on devices without AR; QRValue is the page to open
	// on a phone instead.
	ShowQRCode bool
	QRValue    string
	// ViewportHeight is the model surface height hint; AR devices get a
	// taller surface to fit the AR button.
	ViewportHeight string

	InWishlist    bool
	WishlistLabel string
	InCart        bool
	CartLabel     string
	Quantity      int
	PriceLabel    string

	VariantsAvailable bool
	VariantOptions    []string
	SelectedVariant   string
	HasSelection      bool

	HelpVisible bool
	// HelpCloseFullscreen selects the close affordance variant used while the
	// page is fullscreen. It follows the actual presentation mode.
	HelpCloseFullscreen bool
	AnnotationsVisible  bool
	// Annotations holds the hotspots to render, empty while hidden.
	Annotations []product.Annotation
	Fullscreen  bool
}

// View returns the current snapshot.
func (c *Controller) View() State {
	fullscreen := c.surface.IsFullscreen()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Product:            c.product,
		ARSupported:        c.arSupported,
		ShowQRCode:         !c.arSupported,
		ViewportHeight:     "75%",
		InWishlist:         c.inWishlist,
		WishlistLabel:      "+",
		InCart:             c.inCart,
		CartLabel:          "Add to Cart",
		Quantity:           c.quantity,
		PriceLabel:         PriceLabel,
		VariantsAvailable:  c.variantsReady,
		SelectedVariant:    c.selected,
		HasSelection:       c.hasSelection,
		HelpVisible:        c.helpVisible,
		AnnotationsVisible: c.annotationsVisible,
		Fullscreen:         fullscreen,
	}
	if c.arSupported {
		st.ViewportHeight = "85%"
	} else {
		st.QRValue = c.pageURL
	}
	if c.inWishlist {
		st.WishlistLabel = "-"
	}
	if c.inCart {
		st.CartLabel = "Remove from Cart"
	}
	if c.variantsReady {
		st.VariantOptions = c.variantOptions()
	}
	if c.helpVisible {
		st.HelpCloseFullscreen = fullscreen
	}
	if c.annotationsVisible {
		st.Annotations = slices.Clone(c.product.Annotations)
	}
	return st
}
