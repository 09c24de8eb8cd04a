// Package surface provides the server-side model surface behind each viewer:
// the rendered variant, the camera and the page-wide fullscreen state.
package surface

import (
	"context"
	"sync"

	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
)

// ErrNotFullscreen is returned by ExitFullscreen when nothing is fullscreen.
var ErrNotFullscreen = viewer.ErrNotFullscreen

// VariantSource resolves the variant names of a model asset.
type VariantSource interface {
	Variants(ctx context.Context, ref string) ([]string, error)
}

// Display is the page: at most one element is presented fullscreen at a time.
type Display struct {
	mu    sync.Mutex
	owner *Model
}

// NewDisplay returns a Display in normal presentation mode.
func NewDisplay() *Display {
	return &Display{}
}

// Fullscreen reports whether any element is fullscreen.
func (d *Display) Fullscreen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner != nil
}

// Exit leaves fullscreen the way a platform exit key does, without going
// through any viewer. It reports whether anything was fullscreen.
func (d *Display) Exit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	was := d.owner != nil
	d.owner = nil
	return was
}

// release clears fullscreen if m owns it.
func (d *Display) release(m *Model) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner == m {
		d.owner = nil
	}
}

// Owner returns the id of the fullscreen model, if any.
func (d *Display) Owner() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner == nil {
		return "", false
	}
	return d.owner.id, true
}

// State is an inspectable snapshot of a Model.
type State struct {
	Variant      string
	CameraTarget product.Vector3
	Orbit        product.Descriptor
	CameraSet    bool
	Fullscreen   bool
}

var _ viewer.Surface = (*Model)(nil)

// Model is the surface of one product viewer.
type Model struct {
	id      string
	display *Display
	source  VariantSource

	mu        sync.Mutex
	variant   string
	target    product.Vector3
	orbit     product.Descriptor
	cameraSet bool
}

// NewModel creates the surface for the product with the given id on display.
func NewModel(id string, display *Display, source VariantSource) *Model {
	return &Model{id: id, display: display, source: source}
}

// Load resolves the generic model's variants in the background. The load is
// not cancellable; the result is delivered once and the channel closed.
func (m *Model) Load(model product.ModelRef) <-chan viewer.LoadResult {
	out := make(chan viewer.LoadResult, 1)
	go func() {
		defer close(out)
		names, err := m.source.Variants(context.Background(), model.Src)
		out <- viewer.LoadResult{Variants: names, Err: err}
	}()
	return out
}

// SetVariant implements viewer.Surface.
func (m *Model) SetVariant(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variant = name
}

// SetCameraTarget implements viewer.Surface.
func (m *Model) SetCameraTarget(v product.Vector3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = v
	m.cameraSet = true
}

// SetOrbit implements viewer.Surface.
func (m *Model) SetOrbit(d product.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orbit = d
	m.cameraSet = true
}

// RequestFullscreen makes this model the fullscreen element, replacing any
// other.
func (m *Model) RequestFullscreen() error {
	m.display.mu.Lock()
	defer m.display.mu.Unlock()
	m.display.owner = m
	return nil
}

// ExitFullscreen leaves fullscreen for the whole page.
func (m *Model) ExitFullscreen() error {
	if !m.display.Exit() {
		return ErrNotFullscreen
	}
	return nil
}

// IsFullscreen reports whether the page is in fullscreen mode.
func (m *Model) IsFullscreen() bool {
	return m.display.Fullscreen()
}

// Release implements viewer.Surface. The page leaves fullscreen when this
// model was the fullscreen element; fullscreen owned by another model is
// kept.
func (m *Model) Release() {
	m.display.release(m)
}

// State returns a snapshot of the surface.
func (m *Model) State() State {
	owner, ok := m.display.Owner()

	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Variant:      m.variant,
		CameraTarget: m.target,
		Orbit:        m.orbit,
		CameraSet:    m.cameraSet,
		Fullscreen:   ok && owner == m.id,
	}
}
