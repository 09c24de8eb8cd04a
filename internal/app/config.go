package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOWROOM_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// CatalogFile is a YAML or JSON catalog, optionally gzipped. When both
	// CatalogFile and DatabaseURL are empty the embedded catalog is served.
	CatalogFile string `usage:"Catalog file (.yaml, .json, optionally .gz)" flag:"catalog-file"`
	DatabaseURL string `usage:"PostgreSQL connection URL; when set the catalog is read from the database" flag:"database-url"`
	Assets      AssetConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// AssetConfig controls where model assets are loaded from.
type AssetConfig struct {
	BaseURL      string        `usage:"Base URL model references resolve against" flag:"asset-base-url"`
	Dir          string        `default:"assets" usage:"Local asset directory used when no base URL is set" flag:"asset-dir"`
	FetchTimeout time.Duration `default:"30s" usage:"Timeout of a single asset fetch, 0 for none" flag:"asset-fetch-timeout"`
}

// RateLimitConfig bounds how many API and page requests one client IP may
// send. Viewer pages poll per product, so the default is generous.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Requests one client IP may send per window"`
	Window time.Duration `default:"1m"  usage:"Length of the sliding rate limit window"`
}

// CORSConfig lets a storefront served from another origin call the API.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Storefront origins allowed to call the API"`
	AllowCredentials bool     `default:"false" usage:"Let browsers send cookies with cross-origin storefront requests" flag:"cors-credentials"`
}

// GracefulConfig times the drain on shutdown: /readyz fails first, then the
// server stops accepting requests.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"How long /readyz reports not ready before the server stops" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Longest wait for in-flight requests on shutdown" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOWROOM",
		Files:     []string{"config.yaml", "/etc/showroom/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables (DATABASE_URL, PORT)
// onto the SHOWROOM_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.CatalogFile != "" && c.DatabaseURL != "" {
		return errors.New("catalog file and database URL are mutually exclusive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.Assets.FetchTimeout < 0 {
		return errors.New("asset fetch timeout must not be negative")
	}
	return nil
}
