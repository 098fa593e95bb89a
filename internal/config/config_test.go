package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/treefix50/reelrange/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := config.FromEnv()
	require.Equal(t, config.Default().Addr, cfg.Addr)
	require.Equal(t, "video/mp4", cfg.DefaultContentType)
	require.False(t, cfg.UnsatisfiedContentRange)
	require.False(t, cfg.S3.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REELRANGE_ADDR", ":9999")
	t.Setenv("REELRANGE_ROOT", "/srv/videos")
	t.Setenv("REELRANGE_SCAN_INTERVAL", "1m")
	t.Setenv("REELRANGE_MAX_BYTES_PER_SECOND", "1048576")
	t.Setenv("REELRANGE_UNSATISFIED_CONTENT_RANGE", "yes")
	t.Setenv("REELRANGE_CORS_ORIGINS", "http://a.example, ,http://b.example")

	cfg := config.FromEnv()
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "/srv/videos", cfg.Root)
	require.Equal(t, time.Minute, cfg.ScanInterval)
	require.Equal(t, int64(1048576), cfg.MaxBytesPerSecond)
	require.True(t, cfg.UnsatisfiedContentRange)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("REELRANGE_SCAN_INTERVAL", "soon")
	t.Setenv("REELRANGE_MAX_BYTES_PER_SECOND", "lots")
	cfg := config.FromEnv()
	require.Equal(t, config.Default().ScanInterval, cfg.ScanInterval)
	require.Zero(t, cfg.MaxBytesPerSecond)
}

func TestValidate(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		cfg := config.Default()
		cfg.Root = ""
		require.ErrorContains(t, cfg.Validate(), "storage root is required")
	})
	t.Run("s3 without bucket", func(t *testing.T) {
		cfg := config.Default()
		cfg.S3.Endpoint = "localhost:9000"
		require.ErrorContains(t, cfg.Validate(), "s3 bucket is required")
	})
	t.Run("negative rate", func(t *testing.T) {
		cfg := config.Default()
		cfg.MaxBytesPerSecond = -1
		require.ErrorContains(t, cfg.Validate(), "max bytes per second")
	})
	t.Run("s3 does not need a root", func(t *testing.T) {
		cfg := config.Default()
		cfg.Root = ""
		cfg.S3 = config.S3Config{Endpoint: "localhost:9000", Bucket: "videos"}
		require.NoError(t, cfg.Validate())
	})
}

func TestFromEnvCatalogAndTypes(t *testing.T) {
	t.Setenv("REELRANGE_DB", "/var/lib/reelrange/catalog.db")
	t.Setenv("REELRANGE_DB_READONLY", "true")
	t.Setenv("REELRANGE_DB_SYNCHRONOUS", "full")
	t.Setenv("REELRANGE_DB_CACHE_SIZE", "-2000")
	t.Setenv("REELRANGE_CONTENT_TYPES", "ogv=video/ogg, .flv = video/x-flv,broken")
	t.Setenv("REELRANGE_S3_REGION", "eu-west-1")

	cfg := config.FromEnv()
	require.True(t, cfg.DBReadOnly)
	require.Equal(t, "FULL", cfg.DBSynchronous)
	require.Equal(t, -2000, cfg.DBCacheSize)
	require.Equal(t, map[string]string{"ogv": "video/ogg", ".flv": "video/x-flv"}, cfg.ContentTypes)
	require.Equal(t, "eu-west-1", cfg.S3.Region)
	require.NoError(t, cfg.Validate())
}

func TestParseContentTypes(t *testing.T) {
	require.Nil(t, config.ParseContentTypes(""))
	require.Equal(t, map[string]string{"mkv": "video/webm"}, config.ParseContentTypes("mkv=video/webm"))
}

func TestValidateCatalog(t *testing.T) {
	t.Run("read-only without a file", func(t *testing.T) {
		cfg := config.Default()
		cfg.DBReadOnly = true
		require.ErrorContains(t, cfg.Validate(), "read-only catalog needs a database file")
		cfg.DBPath = ":memory:"
		require.ErrorContains(t, cfg.Validate(), "read-only catalog needs a database file")
	})
	t.Run("unknown synchronous mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.DBSynchronous = "SOMETIMES"
		require.ErrorContains(t, cfg.Validate(), "synchronous mode")
	})
	t.Run("empty content type", func(t *testing.T) {
		cfg := config.Default()
		cfg.ContentTypes = map[string]string{"ogv": ""}
		require.ErrorContains(t, cfg.Validate(), "bad content type mapping")
	})
}
