package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-showroom/internal/domain/cart"
)

const maxBodySize = 4 << 10

// itemRequest is the body of wishlist and cart mutations.
type itemRequest struct {
	ProductID   string
	Quantity    int
	HasQuantity bool
}

func decodeItem(r *http.Request) (itemRequest, error) {
	var req itemRequest
	d := jx.Decode(io.LimitReader(r.Body, maxBodySize), 512)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "productId":
			v, err := d.Str()
			req.ProductID = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = v
			req.HasQuantity = true
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, badRequest(errors.Wrap(err, "decode body"))
	}
	return req, nil
}

func decodeQuantity(r *http.Request) (int, error) {
	req, err := decodeItem(r)
	if err != nil {
		return 0, err
	}
	if !req.HasQuantity {
		return 0, badRequest(errors.New("quantity is required"))
	}
	return req.Quantity, nil
}

// ListProducts returns the catalog in order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	encode(w, func(e *jx.Encoder) { encodeProducts(e, h.view.Products()) })
}

// ListWishlist returns the wishlist in insertion order.
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	encode(w, func(e *jx.Encoder) { encodeProducts(e, h.wishlist.Items()) })
}

// AddToWishlist adds a product; adding one already present changes nothing.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.view.Product(req.ProductID)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.wishlist.ToggleOrAdd(r.Context(), p)
	h.ListWishlist(w, r)
}

// RemoveFromWishlist removes a product if present.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.wishlist.Remove(r.Context(), chi.URLParam(r, "id"))
	h.ListWishlist(w, r)
}

// GetCart returns the cart entries and the placeholder subtotal.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	encode(w, func(e *jx.Encoder) {
		encodeCart(e, h.cart.Entries(), h.cart.Subtotal().StringFixed(2))
	})
}

// AddToCart adds a product with the requested quantity, or the default when
// none is given. A product already in the cart keeps its entry.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.view.Product(req.ProductID)
	if err != nil {
		fail(w, r, err)
		return
	}
	qty := cart.DefaultQuantity
	if req.HasQuantity {
		qty = req.Quantity
	}
	h.cart.Add(r.Context(), p, qty)
	h.GetCart(w, r)
}

// RemoveFromCart removes a product if present.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Remove(r.Context(), chi.URLParam(r, "id"))
	h.GetCart(w, r)
}

// SetCartQuantity replaces the quantity of a cart entry. Quantities below one
// are ignored and the cart is returned unchanged.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	qty, err := decodeQuantity(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.cart.SetQuantity(r.Context(), chi.URLParam(r, "id"), qty)
	h.GetCart(w, r)
}
