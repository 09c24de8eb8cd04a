// Command catalog-ingest appends products from gzipped NDJSON dumps to the
// PostgreSQL catalog.
//
// Dumps are decoded concurrently but applied in file order. The first
// occurrence of a product id wins; later duplicates, within the dumps or of
// products already stored, are skipped. A bloom filter of known ids keeps
// the exact database check off the path of ids that are certainly new.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-showroom/internal/catalog"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/storage/postgres"
)

const (
	bloomMinCapacity = 100_000
	bloomFPR         = 0.001
	maxLineSize      = 1 << 20
	streamBuffer     = 256
	progressEvery    = 10_000
)

// stats counts what happened to the records of one run.
type stats struct {
	inserted       int
	duplicates     int
	falsePositives int
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog dumps")
	flag.StringVar(&pattern, "pattern", "*.ndjson.gz", "glob of dump files within data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "match dump files")
	}
	if len(files) == 0 {
		slog.Info("no dump files found", slog.String("dir", dataDir), slog.String("pattern", pattern))
		return nil
	}
	slices.Sort(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	repo := postgres.NewCatalogRepository(pool)

	ids, err := repo.IDs(ctx)
	if err != nil {
		return errors.Wrap(err, "load stored ids")
	}
	filter := bloom.NewWithEstimates(uint(max(2*len(ids), bloomMinCapacity)), bloomFPR)
	for _, id := range ids {
		filter.AddString(id)
	}
	next, err := repo.NextPosition(ctx)
	if err != nil {
		return errors.Wrap(err, "load next position")
	}
	slog.Info("ingesting dumps",
		slog.Int("files", len(files)),
		slog.Int("stored", len(ids)),
		slog.Int("next_position", next),
	)

	g, ctx := errgroup.WithContext(ctx)
	streams := make([]chan product.Product, len(files))
	for i, f := range files {
		streams[i] = make(chan product.Product, streamBuffer)
		g.Go(decodeFile(ctx, f, streams[i]))
	}

	var st stats
	g.Go(func() error {
		for i, records := range streams {
			for p := range records {
				if filter.TestString(p.ID) {
					exists, err := repo.Exists(ctx, p.ID)
					if err != nil {
						return err
					}
					if exists {
						st.duplicates++
						continue
					}
					st.falsePositives++
				}
				if err := repo.Upsert(ctx, next, p); err != nil {
					return errors.Wrapf(err, "file %s", files[i])
				}
				filter.AddString(p.ID)
				next++
				st.inserted++
				if st.inserted%progressEvery == 0 {
					slog.Info("ingest progress", slog.Int("inserted", st.inserted))
				}
			}
			slog.Info("file applied", slog.String("file", files[i]))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("inserted", st.inserted),
		slog.Int("duplicates", st.duplicates),
		slog.Int("bloom_false_positives", st.falsePositives),
	)
	return nil
}

// decodeFile streams the products of one gzipped NDJSON dump into out and
// closes it.
func decodeFile(ctx context.Context, path string, out chan<- product.Product) func() error {
	return func() error {
		defer close(out)

		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open file")
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			var doc catalog.ProductDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return errors.Wrapf(err, "%s:%d", path, line)
			}
			p, err := doc.Product()
			if err != nil {
				return errors.Wrapf(err, "%s:%d", path, line)
			}
			if p.ID == "" {
				return errors.Errorf("%s:%d: empty product id", path, line)
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}
		slog.Info("file decoded", slog.String("file", path), slog.Int("lines", line))
		return nil
	}
}
