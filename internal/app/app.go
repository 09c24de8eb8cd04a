// Package app wires the showroom server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-showroom/db"
	"github.com/xenking/kart-showroom/internal/asset"
	"github.com/xenking/kart-showroom/internal/catalog"
	"github.com/xenking/kart-showroom/internal/domain/cart"
	"github.com/xenking/kart-showroom/internal/domain/instrument"
	"github.com/xenking/kart-showroom/internal/domain/product"
	"github.com/xenking/kart-showroom/internal/domain/showroom"
	"github.com/xenking/kart-showroom/internal/domain/viewer"
	"github.com/xenking/kart-showroom/internal/domain/wishlist"
	"github.com/xenking/kart-showroom/internal/handler"
	"github.com/xenking/kart-showroom/internal/storage/postgres"
	"github.com/xenking/kart-showroom/internal/surface"
	"github.com/xenking/kart-showroom/pkg/health"
	"github.com/xenking/kart-showroom/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	cat, pool, err := openCatalog(ctx, lg, cfg)
	if err != nil {
		return errors.Wrap(err, "open catalog")
	}
	if pool != nil {
		defer pool.Close()
	}

	// Shopper state.
	wishlistMetrics, err := instrument.NewMutations(m.MeterProvider(), "wishlist")
	if err != nil {
		return errors.Wrap(err, "wishlist metrics")
	}
	cartMetrics, err := instrument.NewMutations(m.MeterProvider(), "cart")
	if err != nil {
		return errors.Wrap(err, "cart metrics")
	}
	wl := wishlist.New(wishlist.WithMetrics(wishlistMetrics))
	crt := cart.New(cart.WithMetrics(cartMetrics))

	// Rendering surfaces.
	loader, err := asset.NewLoader(asset.Config{
		BaseURL:        cfg.Assets.BaseURL,
		Dir:            cfg.Assets.Dir,
		Timeout:        cfg.Assets.FetchTimeout,
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create asset loader")
	}
	display := surface.NewDisplay()

	view, err := showroom.New(ctx, cat, wl, crt,
		func(p product.Product) viewer.Surface {
			return surface.NewModel(p.ID, display, loader)
		},
		lg.Named("showroom"),
	)
	if err != nil {
		return errors.Wrap(err, "create catalog view")
	}
	defer view.Unmount()
	lg.Info("Catalog loaded", zap.Int("products", len(view.Products())))

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Check{
		Name:    "catalog",
		Kind:    health.Readiness,
		Timeout: time.Second,
		Func:    health.NonEmptyCheck("catalog", func() int { return len(view.Products()) }),
	})
	if pool != nil {
		healthSvc.Add(health.Check{
			Name:    "postgres",
			Kind:    health.Readiness,
			Timeout: 5 * time.Second,
			Func:    pool.Ping,
		})
	}
	healthSvc.Add(health.Check{
		Name:    "goroutines",
		Kind:    health.Liveness,
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})

	// Routes: health endpoints + API + pages on one router.
	router := handler.New(view, wl, crt, display).Router()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			limiter.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("showroom-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, 10*time.Second)
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		healthSvc.SetReady(true)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// openCatalog selects the catalog provider: PostgreSQL when a database URL
// is configured, else the catalog file, else the embedded catalog. The pool
// is nil unless PostgreSQL is used.
func openCatalog(ctx context.Context, lg *zap.Logger, cfg *Config) (product.Catalog, *pgxpool.Pool, error) {
	switch {
	case cfg.DatabaseURL != "":
		lg.Info("Using PostgreSQL catalog")
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewCatalogRepository(pool), pool, nil
	case cfg.CatalogFile != "":
		lg.Info("Using catalog file", zap.String("file", cfg.CatalogFile))
		f, err := catalog.Open(cfg.CatalogFile)
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	default:
		lg.Info("Using embedded catalog")
		f, err := catalog.Parse(db.Catalog)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse embedded catalog")
		}
		return f, nil, nil
	}
}
