package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-showroom/internal/domain/viewer"
)

// ListViewers renders every mounted viewer in catalog order.
func (h *Handler) ListViewers(w http.ResponseWriter, r *http.Request) {
	m, err := h.view.Current()
	if err != nil {
		fail(w, r, err)
		return
	}
	encode(w, func(e *jx.Encoder) { encodeStates(e, m.Snapshot()) })
}

// GetViewer renders one mounted viewer.
func (h *Handler) GetViewer(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(*viewer.Controller) error { return nil })
}

// ToggleWishlist adds or removes the viewer's product from the wishlist.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(c *viewer.Controller) error {
		return c.ToggleWishlist(r.Context())
	})
}

// ToggleCart adds or removes the viewer's product from the cart.
func (h *Handler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(c *viewer.Controller) error {
		return c.ToggleCart(r.Context())
	})
}

// ChangeQuantity steps the viewer's quantity up or down by one.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	dir := viewer.Direction(chi.URLParam(r, "direction"))
	h.withViewer(w, r, func(c *viewer.Controller) error {
		return c.ChangeQuantity(r.Context(), dir)
	})
}

// SelectVariant switches the rendered variant.
func (h *Handler) SelectVariant(w http.ResponseWriter, r *http.Request) {
	var name string
	d := jx.Decode(io.LimitReader(r.Body, maxBodySize), 512)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "name" {
			return d.Skip()
		}
		v, err := d.Str()
		name = v
		return err
	}); err != nil {
		fail(w, r, badRequest(errors.Wrap(err, "decode body")))
		return
	}
	h.withViewer(w, r, func(c *viewer.Controller) error {
		return c.SelectVariant(name)
	})
}

// ToggleHelp shows or hides the help overlay.
func (h *Handler) ToggleHelp(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, (*viewer.Controller).ToggleHelp)
}

// ToggleAnnotations shows or hides the hotspot layer.
func (h *Handler) ToggleAnnotations(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, (*viewer.Controller).ToggleAnnotations)
}

// SelectAnnotation moves the camera to a hotspot.
func (h *Handler) SelectAnnotation(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		fail(w, r, badRequest(errors.Wrap(err, "parse annotation index")))
		return
	}
	h.withViewer(w, r, func(c *viewer.Controller) error {
		return c.SelectAnnotation(index)
	})
}

// ToggleFullscreen enters or leaves fullscreen for the viewer.
func (h *Handler) ToggleFullscreen(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, (*viewer.Controller).ToggleFullscreen)
}

// ExitFullscreen leaves fullscreen the way the platform exit key does.
func (h *Handler) ExitFullscreen(w http.ResponseWriter, r *http.Request) {
	was := h.display.Exit()
	encode(w, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("exited", func(e *jx.Encoder) { e.Bool(was) })
		})
	})
}

// withViewer resolves the mounted controller named by the {id} parameter,
// applies op and renders the resulting state.
func (h *Handler) withViewer(w http.ResponseWriter, r *http.Request, op func(c *viewer.Controller) error) {
	c, err := h.view.Controller(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := op(c); err != nil {
		fail(w, r, err)
		return
	}
	encode(w, func(e *jx.Encoder) { encodeState(e, c.View()) })
}
