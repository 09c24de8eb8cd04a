package product

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is an immutable catalog record shown in one viewer.
type Product struct {
	ID          string
	Name        string
	Model       ModelRef
	Rating      int
	Price       decimal.Decimal
	Thumbnail   string
	Annotations []Annotation
}

// ModelRef holds the asset references for the two render paths.
type ModelRef struct {
	// Src is the generic glTF/GLB asset.
	Src string
	// IOSSrc is the AR-platform-specific asset (USDZ for Quick Look).
	IOSSrc string
}

// Annotation is a hotspot anchored on the rendered model.
type Annotation struct {
	Title    string
	Slot     string
	Position Vector3
	Normal   Vector3
	Orbit    Descriptor
	Target   Descriptor
}

// Descriptor is a camera descriptor in model-viewer notation, e.g.
// "45deg 60deg 2m" for an orbit or "0m 0.5m 0m" for a target.
type Descriptor string

// Vector3 is a point or direction in model space, in metres.
type Vector3 struct {
	X, Y, Z float64
}

// String renders v in model-viewer notation ("0.1m 0.2m 0.3m").
func (v Vector3) String() string {
	var b strings.Builder
	for i, c := range [3]float64{v.X, v.Y, v.Z} {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(c, 'f', -1, 64))
		b.WriteByte('m')
	}
	return b.String()
}

// ParseVector3 parses model-viewer notation. The "m" unit suffix is optional.
func ParseVector3(s string) (Vector3, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Vector3{}, errors.Errorf("vector %q: want 3 components, got %d", s, len(fields))
	}
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSuffix(f, "m"), 64)
		if err != nil {
			return Vector3{}, errors.Wrapf(err, "vector %q component %d", s, i)
		}
		c[i] = v
	}
	return Vector3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// Catalog supplies the ordered, immutable product list. It is read once at
// startup.
type Catalog interface {
	List(ctx context.Context) ([]Product, error)
}

// Index is an in-memory lookup over a loaded product list that preserves
// catalog order.
type Index struct {
	products []Product
	byID     map[string]int
}

// NewIndex builds an Index and rejects duplicate or empty ids.
func NewIndex(products []Product) (*Index, error) {
	idx := &Index{
		products: products,
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, errors.Errorf("product at position %d has empty id", i)
		}
		if _, dup := idx.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		idx.byID[p.ID] = i
	}
	return idx, nil
}

// List returns the products in catalog order. It satisfies Catalog.
func (idx *Index) List(context.Context) ([]Product, error) {
	return idx.All(), nil
}

// All returns the products in catalog order.
func (idx *Index) All() []Product {
	out := make([]Product, len(idx.products))
	copy(out, idx.products)
	return out
}

// Get returns the product with the given id or ErrNotFound.
func (idx *Index) Get(id string) (Product, error) {
	i, ok := idx.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return idx.products[i], nil
}

// Len returns the number of products.
func (idx *Index) Len() int {
	return len(idx.products)
}
