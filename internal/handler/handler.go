// Package handler exposes the showroom over HTTP: a JSON API for the stores
// and viewers, and the page routes that mount and unmount the catalog view.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/showroom"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
)

// Wishlist is the wishlist store as seen by the API.
type Wishlist interface {
	ToggleOrAdd(ctx context.Context, p product.Product)
	Remove(ctx context.Context, id string)
	Items() []product.Product
}

// Cart is the cart store as seen by the API.
type Cart interface {
	Add(ctx context.Context, p product.Product, quantity int)
	Remove(ctx context.Context, id string)
	SetQuantity(ctx context.Context, id string, quantity int)
	Entries() []cart.Entry
	Subtotal() decimal.Decimal
}

// Display leaves page-wide fullscreen without going through a viewer.
type Display interface {
	Exit() bool
}

// Handler serves the API and page routes for one showroom.
type Handler struct {
	view     *showroom.View
	wishlist Wishlist
	cart     Cart
	display  Display
}

// New constructs a Handler.
func New(view *showroom.View, wl Wishlist, c Cart, display Display) *Handler {
	return &Handler{
		view:     view,
		wishlist: wl,
		cart:     c,
		display:  display,
	}
}

// Router returns the routing tree for the API and the pages.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "route not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		r.Get("/products", h.ListProducts)

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.ListWishlist)
			r.Post("/", h.AddToWishlist)
			r.Delete("/{id}", h.RemoveFromWishlist)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/", h.AddToCart)
			r.Delete("/{id}", h.RemoveFromCart)
			r.Put("/{id}/quantity", h.SetCartQuantity)
		})
		r.Route("/viewers", func(r chi.Router) {
			r.Get("/", h.ListViewers)
			r.Get("/{id}", h.GetViewer)
			r.Post("/{id}/wishlist", h.ToggleWishlist)
			r.Post("/{id}/cart", h.ToggleCart)
			r.Post("/{id}/quantity/{direction}", h.ChangeQuantity)
			r.Post("/{id}/variant", h.SelectVariant)
			r.Post("/{id}/help", h.ToggleHelp)
			r.Post("/{id}/annotations", h.ToggleAnnotations)
			r.Post("/{id}/annotations/{index}", h.SelectAnnotation)
			r.Post("/{id}/fullscreen", h.ToggleFullscreen)
		})
		r.Post("/display/exit-fullscreen", h.ExitFullscreen)
	})

	r.Get("/", h.CatalogPage)
	for _, p := range staticPages {
		r.Get(p.Path, h.page(p.Name))
	}
	r.NotFound(h.NotFoundPage)
	return r
}

// BadRequestError reports a request body or parameter that could not be
// decoded.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Err.Error()
}

func (e *BadRequestError) Unwrap() error { return e.Err }

func badRequest(err error) error {
	return &BadRequestError{Err: err}
}

// statusOf maps domain errors to HTTP statuses.
func statusOf(err error) int {
	var br *BadRequestError
	switch {
	case errors.As(err, &br), errors.Is(err, viewer.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, showroom.ErrNotMounted),
		errors.Is(err, viewer.ErrClosed),
		errors.Is(err, viewer.ErrVariantsUnavailable),
		errors.Is(err, viewer.ErrUnknownVariant),
		errors.Is(err, viewer.ErrAnnotationsHidden),
		errors.Is(err, viewer.ErrUnknownAnnotation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error response. Unexpected errors are logged and
// their message hidden.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = http.StatusText(code)
	}
	writeError(w, code, msg)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, code, &e)
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

func encode(w http.ResponseWriter, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	writeJSON(w, http.StatusOK, &e)
}
