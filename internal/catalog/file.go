// Package catalog reads the product catalog from YAML or JSON documents,
// optionally gzip-compressed.
package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/kart-showroom/internal/domain/product"
)

// Document is the on-disk catalog layout. JSON documents use the same keys.
type Document struct {
	Products []ProductDoc `yaml:"products" json:"products"`
}

// ProductDoc is one catalog entry as written in a catalog file.
type ProductDoc struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Rating    int    `yaml:"rating" json:"rating"`
	Price     string `yaml:"price" json:"price"`
	Thumbnail string `yaml:"thumbnail" json:"thumbnail"`
	Model     struct {
		Src    string `yaml:"src" json:"src"`
		IOSSrc string `yaml:"iosSrc" json:"iosSrc"`
	} `yaml:"model" json:"model"`
	Annotations []AnnotationDoc `yaml:"annotations" json:"annotations"`
}

// AnnotationDoc is a hotspot as written in a catalog file. Vectors use
// model-viewer notation ("0m 1m 0m").
type AnnotationDoc struct {
	Title    string `yaml:"title" json:"title"`
	Slot     string `yaml:"slot" json:"slot"`
	Position string `yaml:"position" json:"position"`
	Normal   string `yaml:"normal" json:"normal"`
	Orbit    string `yaml:"orbit" json:"orbit"`
	Target   string `yaml:"target" json:"target"`
}

// File is a product.Catalog read from a single document.
type File struct {
	products *product.Index
}

var _ product.Catalog = (*File)(nil)

// Open reads a catalog file. Names ending in ".gz" are decompressed.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", name)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	cat, err := Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", name)
	}
	return cat, nil
}

// Parse reads a catalog from an in-memory document.
func Parse(data []byte) (*File, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes a YAML or JSON catalog document from r.
func Read(r io.Reader) (*File, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty catalog document")
		}
		return nil, errors.Wrap(err, "decode catalog")
	}
	products, err := doc.Records()
	if err != nil {
		return nil, err
	}
	idx, err := product.NewIndex(products)
	if err != nil {
		return nil, err
	}
	return &File{products: idx}, nil
}

// List implements product.Catalog.
func (f *File) List(context.Context) ([]product.Product, error) {
	return f.products.All(), nil
}

// Records converts the document into domain records, preserving order.
func (d Document) Records() ([]product.Product, error) {
	out := make([]product.Product, 0, len(d.Products))
	for i, p := range d.Products {
		rec, err := p.Product()
		if err != nil {
			return nil, errors.Wrapf(err, "product %d (%q)", i, p.ID)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Product converts one entry into a domain record.
func (p ProductDoc) Product() (product.Product, error) {
	if p.Model.Src == "" {
		return product.Product{}, errors.New("model src is required")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return product.Product{}, errors.Errorf("rating %d out of range 0..5", p.Rating)
	}
	price := decimal.Zero
	if p.Price != "" {
		v, err := decimal.NewFromString(p.Price)
		if err != nil {
			return product.Product{}, errors.Wrap(err, "parse price")
		}
		price = v
	}

	rec := product.Product{
		ID:        p.ID,
		Name:      p.Name,
		Rating:    p.Rating,
		Price:     price,
		Thumbnail: p.Thumbnail,
		Model: product.ModelRef{
			Src:    p.Model.Src,
			IOSSrc: p.Model.IOSSrc,
		},
	}
	for j, a := range p.Annotations {
		ann, err := a.Annotation()
		if err != nil {
			return product.Product{}, errors.Wrapf(err, "annotation %d", j)
		}
		rec.Annotations = append(rec.Annotations, ann)
	}
	return rec, nil
}

// Annotation converts one hotspot into a domain record.
func (a AnnotationDoc) Annotation() (product.Annotation, error) {
	pos, err := product.ParseVector3(a.Position)
	if err != nil {
		return product.Annotation{}, errors.Wrap(err, "position")
	}
	normal, err := product.ParseVector3(a.Normal)
	if err != nil {
		return product.Annotation{}, errors.Wrap(err, "normal")
	}
	return product.Annotation{
		Title:    a.Title,
		Slot:     a.Slot,
		Position: pos,
		Normal:   normal,
		Orbit:    product.Descriptor(a.Orbit),
		Target:   product.Descriptor(a.Target),
	}, nil
}
