package handler

import (
	"github.com/go-faster/jx"

	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
)

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("rating", func(e *jx.Encoder) { e.Int(p.Rating) })
		e.Field("price", func(e *jx.Encoder) { e.Str(p.Price.StringFixed(2)) })
		if p.Thumbnail != "" {
			e.Field("thumbnail", func(e *jx.Encoder) { e.Str(p.Thumbnail) })
		}
		e.Field("model", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("src", func(e *jx.Encoder) { e.Str(p.Model.Src) })
				if p.Model.IOSSrc != "" {
					e.Field("iosSrc", func(e *jx.Encoder) { e.Str(p.Model.IOSSrc) })
				}
			})
		})
		e.Field("annotations", func(e *jx.Encoder) { encodeAnnotations(e, p.Annotations) })
	})
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeAnnotations(e *jx.Encoder, anns []product.Annotation) {
	e.Arr(func(e *jx.Encoder) {
		for i, a := range anns {
			e.Obj(func(e *jx.Encoder) {
				e.Field("index", func(e *jx.Encoder) { e.Int(i) })
				e.Field("title", func(e *jx.Encoder) { e.Str(a.Title) })
				e.Field("slot", func(e *jx.Encoder) { e.Str(a.Slot) })
				e.Field("position", func(e *jx.Encoder) { e.Str(a.Position.String()) })
				e.Field("normal", func(e *jx.Encoder) { e.Str(a.Normal.String()) })
				e.Field("orbit", func(e *jx.Encoder) { e.Str(string(a.Orbit)) })
				e.Field("target", func(e *jx.Encoder) { e.Str(string(a.Target)) })
			})
		}
	})
}

func encodeCart(e *jx.Encoder, entries []cart.Entry, subtotal string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("entries", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, en := range entries {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product", func(e *jx.Encoder) { encodeProduct(e, en.Product) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(en.Quantity) })
						e.Field("priceLabel", func(e *jx.Encoder) { e.Str(viewer.PriceLabel) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(subtotal) })
	})
}

func encodeState(e *jx.Encoder, st viewer.State) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product", func(e *jx.Encoder) { encodeProduct(e, st.Product) })
		e.Field("arSupported", func(e *jx.Encoder) { e.Bool(st.ARSupported) })
		e.Field("showQRCode", func(e *jx.Encoder) { e.Bool(st.ShowQRCode) })
		if st.ShowQRCode {
			e.Field("qrValue", func(e *jx.Encoder) { e.Str(st.QRValue) })
		}
		e.Field("viewportHeight", func(e *jx.Encoder) { e.Str(st.ViewportHeight) })
		e.Field("inWishlist", func(e *jx.Encoder) { e.Bool(st.InWishlist) })
		e.Field("wishlistLabel", func(e *jx.Encoder) { e.Str(st.WishlistLabel) })
		e.Field("inCart", func(e *jx.Encoder) { e.Bool(st.InCart) })
		e.Field("cartLabel", func(e *jx.Encoder) { e.Str(st.CartLabel) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(st.Quantity) })
		e.Field("priceLabel", func(e *jx.Encoder) { e.Str(st.PriceLabel) })
		e.Field("variantsAvailable", func(e *jx.Encoder) { e.Bool(st.VariantsAvailable) })
		if st.VariantsAvailable {
			e.Field("variantOptions", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, name := range st.VariantOptions {
						e.Str(name)
					}
				})
			})
		}
		e.Field("selectedVariant", func(e *jx.Encoder) {
			if !st.HasSelection {
				e.Null()
				return
			}
			e.Str(st.SelectedVariant)
		})
		e.Field("helpVisible", func(e *jx.Encoder) { e.Bool(st.HelpVisible) })
		e.Field("helpCloseFullscreen", func(e *jx.Encoder) { e.Bool(st.HelpCloseFullscreen) })
		e.Field("annotationsVisible", func(e *jx.Encoder) { e.Bool(st.AnnotationsVisible) })
		e.Field("annotations", func(e *jx.Encoder) { encodeAnnotations(e, st.Annotations) })
		e.Field("fullscreen", func(e *jx.Encoder) { e.Bool(st.Fullscreen) })
	})
}

func encodeStates(e *jx.Encoder, states []viewer.State) {
	e.Arr(func(e *jx.Encoder) {
		for _, st := range states {
			encodeState(e, st)
		}
	})
}
