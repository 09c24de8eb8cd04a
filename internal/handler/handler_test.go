package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/showroom"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
	"github.com/xenking/kart-showroom/internal/domain/wishlist"
	"github.com/xenking/kart-showroom/internal/surface"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/128.0"
	phoneUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
)

type staticVariants map[string][]string

func (s staticVariants) Variants(_ context.Context, ref string) ([]string, error) {
	return s[ref], nil
}

type env struct {
	srv      *httptest.Server
	view     *showroom.View
	wishlist *wishlist.Store
	cart     *cart.Store
	display  *surface.Display
}

func newEnv(t *testing.T) *env {
	t.Helper()

	products := []product.Product{
		{
			ID:     "chair",
			Name:   "Chair",
			Rating: 4,
			Price:  decimal.RequireFromString("4999.50"),
			Model:  product.ModelRef{Src: "chair.glb", IOSSrc: "chair.usdz"},
			Annotations: []product.Annotation{{
				Title:    "Seat",
				Slot:     "hotspot-1",
				Position: product.Vector3{Y: 0.45},
				Normal:   product.Vector3{Y: 1},
				Orbit:    "45deg 60deg 1.5m",
				Target:   "0m 0.4m 0m",
			}},
		},
		{ID: "lamp", Name: "Lamp", Model: product.ModelRef{Src: "lamp.glb"}},
	}
	idx, err := product.NewIndex(products)
	require.NoError(t, err)

	e := &env{
		wishlist: wishlist.New(),
		cart:     cart.New(),
		display:  surface.NewDisplay(),
	}
	source := staticVariants{"chair.glb": {"Oak", "Walnut"}}
	e.view, err = showroom.New(context.Background(), idx, e.wishlist, e.cart,
		func(p product.Product) viewer.Surface { return surface.NewModel(p.ID, e.display, source) },
		nil,
	)
	require.NoError(t, err)

	e.srv = httptest.NewServer(New(e.view, e.wishlist, e.cart, e.display).Router())
	t.Cleanup(func() {
		e.srv.Close()
		e.view.Unmount()
	})
	return e
}

func (e *env) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	code, raw := e.doRaw(t, method, path, body)
	var out map[string]any
	if raw != "" && raw[0] == '{' {
		require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	}
	return code, out
}

func (e *env) doRaw(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("User-Agent", desktopUA)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	return resp.StatusCode, string(data)
}

func (e *env) mount(t *testing.T, ua string) map[string]any {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", ua)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *env) waitLoaded(t *testing.T, id string) {
	t.Helper()
	c, err := e.view.Controller(id)
	require.NoError(t, err)
	select {
	case <-c.Loaded():
	case <-time.After(5 * time.Second):
		t.Fatalf("viewer %s did not load", id)
	}
}

func TestProducts(t *testing.T) {
	e := newEnv(t)

	code, raw := e.doRaw(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "chair", list[0]["id"])
	assert.Equal(t, "4999.50", list[0]["price"])
	assert.Equal(t, map[string]any{"src": "chair.glb", "iosSrc": "chair.usdz"}, list[0]["model"])
	anns := list[0]["annotations"].([]any)
	require.Len(t, anns, 1)
	assert.Equal(t, "0m 0.45m 0m", anns[0].(map[string]any)["position"])
}

func TestWishlist(t *testing.T) {
	e := newEnv(t)

	code, _ := e.doRaw(t, http.MethodPost, "/api/wishlist", `{"productId":"chair"}`)
	require.Equal(t, http.StatusOK, code)
	code, raw := e.doRaw(t, http.MethodPost, "/api/wishlist", `{"productId":"chair"}`)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	assert.Len(t, list, 1, "adding twice keeps one entry")

	code, body := e.do(t, http.MethodPost, "/api/wishlist", `{"productId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 404, body["code"])

	code, _ = e.do(t, http.MethodPost, "/api/wishlist", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, raw = e.doRaw(t, http.MethodDelete, "/api/wishlist/chair", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, raw)
	assert.False(t, e.wishlist.Contains("chair"))
}

func TestCart(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/cart", `{"productId":"chair","quantity":3}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3000.00", body["subtotal"])

	code, body = e.do(t, http.MethodPost, "/api/cart", `{"productId":"lamp"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "4000.00", body["subtotal"])
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 1, entries[1].(map[string]any)["quantity"])
	assert.Equal(t, "Rs. 1000", entries[1].(map[string]any)["priceLabel"])

	code, body = e.do(t, http.MethodPut, "/api/cart/chair/quantity", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, code, "rejected quantities are silent")
	assert.Equal(t, "4000.00", body["subtotal"])

	code, body = e.do(t, http.MethodPut, "/api/cart/chair/quantity", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "6000.00", body["subtotal"])

	code, _ = e.do(t, http.MethodPut, "/api/cart/chair/quantity", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(t, http.MethodDelete, "/api/cart/chair", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000.00", body["subtotal"])
}

func TestViewers_NotMounted(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/viewers", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, showroom.ErrNotMounted.Error(), body["message"])
}

func TestCatalogPage(t *testing.T) {
	e := newEnv(t)

	page := e.mount(t, desktopUA)
	assert.Equal(t, PageCatalog, page["page"])
	assert.NotEmpty(t, page["mountId"])
	viewers := page["viewers"].([]any)
	require.Len(t, viewers, 2)

	chair := viewers[0].(map[string]any)
	assert.Equal(t, false, chair["arSupported"])
	assert.Equal(t, true, chair["showQRCode"])
	assert.Equal(t, e.srv.URL+"/", chair["qrValue"])
	assert.Equal(t, "75%", chair["viewportHeight"])
	assert.Nil(t, chair["selectedVariant"])

	page = e.mount(t, phoneUA)
	chair = page["viewers"].([]any)[0].(map[string]any)
	assert.Equal(t, true, chair["arSupported"])
	assert.Equal(t, "85%", chair["viewportHeight"])
	assert.NotContains(t, chair, "qrValue")
}

func TestViewerFlow(t *testing.T) {
	e := newEnv(t)
	e.mount(t, desktopUA)

	code, st := e.do(t, http.MethodPost, "/api/viewers/chair/cart", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, st["inCart"])
	assert.Equal(t, "Remove from Cart", st["cartLabel"])

	code, st = e.do(t, http.MethodPost, "/api/viewers/chair/quantity/increase", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, st["quantity"])
	q, ok := e.cart.QuantityOf("chair")
	require.True(t, ok)
	assert.Equal(t, 2, q)

	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/quantity/sideways", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, st = e.do(t, http.MethodPost, "/api/viewers/chair/wishlist", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "-", st["wishlistLabel"])

	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/annotations/0", "")
	assert.Equal(t, http.StatusConflict, code, "annotations hidden")

	code, st = e.do(t, http.MethodPost, "/api/viewers/chair/annotations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, st["annotations"], 1)

	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/annotations/0", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/annotations/7", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/annotations/x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/viewers/nope/help", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestViewerVariants(t *testing.T) {
	e := newEnv(t)
	e.mount(t, desktopUA)
	e.waitLoaded(t, "chair")
	e.waitLoaded(t, "lamp")

	code, st := e.do(t, http.MethodGet, "/api/viewers/chair", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"Oak", "Walnut", viewer.DefaultVariant}, st["variantOptions"])

	code, st = e.do(t, http.MethodPost, "/api/viewers/chair/variant", `{"name":"Walnut"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Walnut", st["selectedVariant"])

	code, _ = e.do(t, http.MethodPost, "/api/viewers/chair/variant", `{"name":"Teak"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, st = e.do(t, http.MethodGet, "/api/viewers/lamp", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{viewer.DefaultVariant}, st["variantOptions"])
}

func TestFullscreen(t *testing.T) {
	e := newEnv(t)
	e.mount(t, desktopUA)

	code, _ := e.do(t, http.MethodPost, "/api/viewers/chair/help", "")
	require.Equal(t, http.StatusOK, code)

	code, st := e.do(t, http.MethodPost, "/api/viewers/chair/fullscreen", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, st["fullscreen"])
	assert.Equal(t, true, st["helpCloseFullscreen"])

	code, body := e.do(t, http.MethodPost, "/api/display/exit-fullscreen", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["exited"])

	code, st = e.do(t, http.MethodGet, "/api/viewers/chair", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, st["fullscreen"])
	assert.Equal(t, false, st["helpCloseFullscreen"])
}

func TestFullscreen_ReleasedOnUnmount(t *testing.T) {
	e := newEnv(t)
	e.mount(t, desktopUA)

	code, st := e.do(t, http.MethodPost, "/api/viewers/chair/fullscreen", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, st["fullscreen"])

	// Navigating away tears the viewers down and leaves fullscreen.
	code, _ = e.do(t, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, code)
	_, owned := e.display.Owner()
	assert.False(t, owned)
	assert.False(t, e.display.Fullscreen())

	e.mount(t, desktopUA)
	code, st = e.do(t, http.MethodGet, "/api/viewers/lamp", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, st["fullscreen"])

	code, st = e.do(t, http.MethodPost, "/api/viewers/lamp/help", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, st["helpCloseFullscreen"])

	// The first toggle on a fresh viewer enters fullscreen.
	code, st = e.do(t, http.MethodPost, "/api/viewers/lamp/fullscreen", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, st["fullscreen"])
	owner, _ := e.display.Owner()
	assert.Equal(t, "lamp", owner)
}

func TestPages(t *testing.T) {
	e := newEnv(t)
	e.mount(t, desktopUA)

	for _, p := range staticPages {
		code, body := e.do(t, http.MethodGet, p.Path, "")
		assert.Equal(t, http.StatusOK, code, p.Path)
		assert.Equal(t, p.Name, body["page"])
	}

	_, err := e.view.Current()
	require.ErrorIs(t, err, showroom.ErrNotMounted, "other pages unmount the catalog")

	code, body := e.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, PageNotFound, body["page"])

	code, body = e.do(t, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 404, body["code"])
}
