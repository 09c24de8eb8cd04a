package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Page names handed to the client router.
const (
	PageCatalog  = "catalog"
	PageNotFound = "not-found"
)

var staticPages = []struct {
	Path string
	Name string
}{
	{"/sign-in", "sign-in"},
	{"/sign-up", "sign-up"},
	{"/wishlist", "wishlist"},
	{"/cart", "cart"},
	{"/about", "about"},
	{"/contact", "contact"},
}

// CatalogPage mounts the catalog view for the requesting device and renders
// every viewer.
func (h *Handler) CatalogPage(w http.ResponseWriter, r *http.Request) {
	m := h.view.Mount(r.UserAgent(), pageURL(r))
	zctx.From(r.Context()).Debug("Catalog page", zap.Stringer("mount_id", m.ID))

	states := m.Snapshot()
	encode(w, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("page", func(e *jx.Encoder) { e.Str(PageCatalog) })
			e.Field("mountId", func(e *jx.Encoder) { e.Str(m.ID.String()) })
			e.Field("viewers", func(e *jx.Encoder) { encodeStates(e, states) })
		})
	})
}

func (h *Handler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.view.Unmount()
		writePage(w, http.StatusOK, name)
	}
}

// NotFoundPage answers unknown routes with the not-found page.
func (h *Handler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	h.view.Unmount()
	writePage(w, http.StatusNotFound, PageNotFound)
}

func writePage(w http.ResponseWriter, code int, name string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("page", func(e *jx.Encoder) { e.Str(name) })
	})
	writeJSON(w, code, &e)
}

// pageURL reconstructs the absolute URL the client requested, used as the QR
// hint value.
func pageURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd == "http" || fwd == "https" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
