package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-showroom/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, model_src, ios_src, rating, price, thumbnail
		FROM products ORDER BY position, id`

	listAnnotationsSQL = `SELECT product_id, title, slot, position, normal, orbit, target
		FROM product_annotations ORDER BY product_id, idx`

	upsertProductSQL = `INSERT INTO products (id, position, name, model_src, ios_src, rating, price, thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			name = EXCLUDED.name,
			model_src = EXCLUDED.model_src,
			ios_src = EXCLUDED.ios_src,
			rating = EXCLUDED.rating,
			price = EXCLUDED.price,
			thumbnail = EXCLUDED.thumbnail`

	deleteAnnotationsSQL = `DELETE FROM product_annotations WHERE product_id = $1`

	insertAnnotationSQL = `INSERT INTO product_annotations (product_id, idx, title, slot, position, normal, orbit, target)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listIDsSQL = `SELECT id FROM products`

	nextPositionSQL = `SELECT COALESCE(MAX(position) + 1, 0) FROM products`

	existsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ product.Catalog = (*CatalogRepository)(nil)

// CatalogRepository implements product.Catalog backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns every product with its annotations in catalog position order.
func (r *CatalogRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}

	rows, err = r.pool.Query(ctx, listAnnotationsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list annotations")
	}
	anns, err := pgx.CollectRows(rows, scanAnnotation)
	if err != nil {
		return nil, errors.Wrap(err, "scan annotations")
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	for _, a := range anns {
		i, ok := byID[a.productID]
		if !ok {
			continue
		}
		products[i].Annotations = append(products[i].Annotations, a.Annotation)
	}
	return products, nil
}

// Upsert writes p at the given catalog position and replaces its annotations.
func (r *CatalogRepository) Upsert(ctx context.Context, position int, p product.Product) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL,
			p.ID, position, p.Name, p.Model.Src, p.Model.IOSSrc, p.Rating, p.Price, p.Thumbnail,
		); err != nil {
			return errors.Wrap(err, "upsert product")
		}
		if _, err := tx.Exec(ctx, deleteAnnotationsSQL, p.ID); err != nil {
			return errors.Wrap(err, "delete annotations")
		}

		batch := &pgx.Batch{}
		for i, a := range p.Annotations {
			batch.Queue(insertAnnotationSQL,
				p.ID, i, a.Title, a.Slot, a.Position.String(), a.Normal.String(), string(a.Orbit), string(a.Target),
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert annotations")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "upsert %q", p.ID)
	}
	return nil
}

// IDs returns the ids of every stored product, in no particular order.
func (r *CatalogRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listIDsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan ids")
	}
	return ids, nil
}

// NextPosition returns the position after the last stored product.
func (r *CatalogRepository) NextPosition(ctx context.Context) (int, error) {
	var next int
	if err := r.pool.QueryRow(ctx, nextPositionSQL).Scan(&next); err != nil {
		return 0, errors.Wrap(err, "next position")
	}
	return next, nil
}

// Exists reports whether a product with the given id is stored.
func (r *CatalogRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, existsSQL, id).Scan(&ok); err != nil {
		return false, errors.Wrapf(err, "check %q", id)
	}
	return ok, nil
}

// Ping checks database connectivity.
func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		rating int16
		price  decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.Model.Src, &p.Model.IOSSrc, &rating, &price, &p.Thumbnail)
	p.Rating = int(rating)
	p.Price = price
	return p, err
}

type annotationRow struct {
	productID string
	product.Annotation
}

func scanAnnotation(row pgx.CollectableRow) (annotationRow, error) {
	var (
		a                annotationRow
		position, normal string
		orbit, target    string
	)
	if err := row.Scan(&a.productID, &a.Title, &a.Slot, &position, &normal, &orbit, &target); err != nil {
		return a, err
	}
	var err error
	if a.Position, err = product.ParseVector3(position); err != nil {
		return a, errors.Wrapf(err, "annotation of %q", a.productID)
	}
	if a.Normal, err = product.ParseVector3(normal); err != nil {
		return a, errors.Wrapf(err, "annotation of %q", a.productID)
	}
	a.Orbit = product.Descriptor(orbit)
	a.Target = product.Descriptor(target)
	return a, nil
}
