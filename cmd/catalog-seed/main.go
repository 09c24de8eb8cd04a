// Command catalog-seed writes a catalog file into PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-showroom/db"
	"github.com/xenking/kart-showroom/internal/catalog"
	"github.com/xenking/kart-showroom/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog file to seed (.yaml, .json, optionally .gz); the embedded catalog when empty")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	var (
		cat *catalog.File
		err error
	)
	if catalogFile == "" {
		slog.Info("reading embedded catalog")
		cat, err = catalog.Parse(db.Catalog)
	} else {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		cat, err = catalog.Open(catalogFile)
	}
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	products, err := cat.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCatalogRepository(pool)
	slog.Info("upserting products", slog.Int("count", len(products)))

	for i, p := range products {
		if err := repo.Upsert(ctx, i, p); err != nil {
			return errors.Wrap(err, "seed products")
		}
		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("annotations", len(p.Annotations)),
		)
	}
	return nil
}
