// Package asset loads 3D model assets and reports the material variants they
// declare.
package asset

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyReference is returned for a product without a model source.
var ErrEmptyReference = errors.New("empty model reference")

// StatusError reports a non-2xx response from the asset host.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "fetch " + e.URL + ": " + http.StatusText(e.StatusCode)
}

// Config configures a Loader.
type Config struct {
	// BaseURL resolves relative references over HTTP(S). When empty,
	// relative references are read from Dir.
	BaseURL string
	// Dir is the local asset root used when BaseURL is empty.
	Dir string
	// Timeout bounds a single fetch. Zero means no timeout.
	Timeout time.Duration
	// Client overrides the HTTP client.
	Client         *http.Client
	TracerProvider trace.TracerProvider
}

// Loader reads model assets and caches the variant names of every asset it
// loaded successfully. Concurrent loads of one reference share a fetch.
type Loader struct {
	base   *url.URL
	dir    string
	client *http.Client
	tracer trace.Tracer

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string][]string
}

// NewLoader validates cfg and returns a Loader.
func NewLoader(cfg Config) (*Loader, error) {
	l := &Loader{
		dir:    cfg.Dir,
		client: cfg.Client,
		cache:  make(map[string][]string),
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse asset base url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, errors.Errorf("asset base url %q: scheme must be http or https", cfg.BaseURL)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		l.base = u
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: cfg.Timeout}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	l.tracer = tp.Tracer("github.com/xenking/kart-showroom/internal/asset")
	return l, nil
}

// Variants returns the variant names declared by the asset at ref.
func (l *Loader) Variants(ctx context.Context, ref string) ([]string, error) {
	if ref == "" {
		return nil, ErrEmptyReference
	}

	ctx, span := l.tracer.Start(ctx, "asset.Variants",
		trace.WithAttributes(attribute.String("asset.ref", ref)),
	)
	defer span.End()

	l.mu.RLock()
	cached, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		span.SetAttributes(attribute.Bool("asset.cached", true))
		return slices.Clone(cached), nil
	}

	v, err, shared := l.group.Do(ref, func() (any, error) {
		names, err := l.load(ctx, ref)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[ref] = names
		l.mu.Unlock()
		return names, nil
	})
	span.SetAttributes(attribute.Bool("asset.shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	names := v.([]string)
	span.SetAttributes(attribute.Int("asset.variants", len(names)))
	return slices.Clone(names), nil
}

func (l *Loader) load(ctx context.Context, ref string) ([]string, error) {
	rc, err := l.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	doc, err := readDocument(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", ref)
	}
	names, err := parseVariants(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", ref)
	}
	return names, nil
}

func (l *Loader) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "parse reference %q", ref)
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		return l.get(ctx, u)
	case u.Scheme != "":
		return nil, errors.Errorf("reference %q: unsupported scheme %q", ref, u.Scheme)
	case l.base != nil:
		return l.get(ctx, l.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/")}))
	default:
		// Clean against a rooted path so references cannot escape Dir.
		name := filepath.Join(l.dir, filepath.FromSlash(path.Clean("/"+u.Path)))
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", ref)
		}
		return f, nil
	}
}

func (l *Loader) get(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", u)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
