package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "SHOWROOM",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Empty(t, cfg.CatalogFile)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "assets", cfg.Assets.Dir)
	assert.Equal(t, 30*time.Second, cfg.Assets.FetchTimeout)
	assert.Equal(t, 300, cfg.RateLimit.Max)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/showroom")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "postgres://localhost/showroom", cfg.DatabaseURL)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "9090")
	t.Setenv("SHOWROOM_ADDR", "127.0.0.1:7000")
	t.Setenv("SHOWROOM_CATALOG_FILE", "catalog.yaml.gz")

	cfg, err := loadConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "PORT only replaces the default address")
	assert.Equal(t, "catalog.yaml.gz", cfg.CatalogFile)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/showroom")
	t.Setenv("SHOWROOM_CATALOG_FILE", "catalog.yaml")

	_, err := loadConfig(testConfig())
	require.Error(t, err)
}
