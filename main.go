package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/treefix50/reelrange/internal/config"
	"github.com/treefix50/reelrange/internal/log"
	"github.com/treefix50/reelrange/internal/media"
	"github.com/treefix50/reelrange/internal/server"
	"github.com/treefix50/reelrange/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "reelrange",
	Short:         "Serve on-disk videos over HTTP with byte-range support",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.String("root", d.Root, "media root directory")
	pf.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	pf.String("db", d.DBPath, "SQLite catalog path; empty keeps the catalog in memory only")
	pf.Bool("db-readonly", d.DBReadOnly, "open the catalog read-only; scans refresh memory only")
	pf.String("db-synchronous", d.DBSynchronous, "SQLite synchronous mode (OFF, NORMAL, FULL, EXTRA)")
	pf.Int("db-cache-size", d.DBCacheSize, "SQLite cache_size pragma; 0 keeps the driver default")
	pf.String("content-type", d.DefaultContentType, "Content-Type for unknown extensions")
	pf.StringToString("content-types", nil, "extra extension to Content-Type mappings, e.g. ogv=video/ogg")
	pf.String("s3-endpoint", "", "S3 endpoint; serves from a bucket instead of --root")
	pf.String("s3-bucket", "", "S3 bucket")
	pf.String("s3-access-key", "", "S3 access key ID")
	pf.String("s3-secret-key", "", "S3 secret key")
	pf.String("s3-region", "", "S3 region; looked up from the bucket when empty")
	pf.Bool("s3-tls", true, "use TLS for S3")
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.FromEnv()
	flags := cmd.Flags()
	var err error
	setString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetDuration(name)
		}
	}
	setString("addr", &cfg.Addr)
	setString("root", &cfg.Root)
	setString("log-level", &cfg.LogLevel)
	setString("db", &cfg.DBPath)
	setString("content-type", &cfg.DefaultContentType)
	setString("s3-endpoint", &cfg.S3.Endpoint)
	setString("s3-bucket", &cfg.S3.Bucket)
	setString("s3-access-key", &cfg.S3.AccessKey)
	setString("s3-secret-key", &cfg.S3.SecretKey)
	setString("s3-region", &cfg.S3.Region)
	setString("db-synchronous", &cfg.DBSynchronous)
	setDuration("scan-interval", &cfg.ScanInterval)
	setDuration("scan-cooldown", &cfg.ScanCooldown)
	if err == nil && flags.Changed("s3-tls") {
		cfg.S3.UseSSL, err = flags.GetBool("s3-tls")
	}
	if err == nil && flags.Changed("db-readonly") {
		cfg.DBReadOnly, err = flags.GetBool("db-readonly")
	}
	if err == nil && flags.Changed("db-cache-size") {
		cfg.DBCacheSize, err = flags.GetInt("db-cache-size")
	}
	if err == nil && flags.Changed("content-types") {
		cfg.ContentTypes, err = flags.GetStringToString("content-types")
	}
	if err == nil && flags.Changed("max-bytes-per-second") {
		cfg.MaxBytesPerSecond, err = flags.GetInt64("max-bytes-per-second")
	}
	if err == nil && flags.Changed("unsatisfied-content-range") {
		cfg.UnsatisfiedContentRange, err = flags.GetBool("unsatisfied-content-range")
	}
	if err == nil && flags.Changed("cors-origin") {
		cfg.CORSOrigins, err = flags.GetStringSlice("cors-origin")
	}
	if err != nil {
		return config.Config{}, err
	}
	cfg.DBSynchronous = strings.ToUpper(cfg.DBSynchronous)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := log.Setup(os.Stderr, cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openMediaStore(cfg config.Config) (media.Store, error) {
	var store media.Store
	if cfg.S3.Enabled() {
		mc, err := media.DialS3(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Region, cfg.S3.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("create S3 client: %w", err)
		}
		store = media.NewS3Store(mc, cfg.S3.Bucket)
	} else {
		dir, err := media.NewDirStore(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("open media root: %w", err)
		}
		store = dir
	}
	return media.Throttle(store, cfg.MaxBytesPerSecond), nil
}

// openCatalog returns nil when no database path is configured.
func openCatalog(cfg config.Config) (*storage.Store, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	catalog, err := storage.Open(cfg.DBPath, storage.Options{
		BusyTimeout: 5 * time.Second,
		Synchronous: cfg.DBSynchronous,
		CacheSize:   cfg.DBCacheSize,
		ReadOnly:    cfg.DBReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", cfg.DBPath, err)
	}
	return catalog, nil
}

// catalogStore keeps a nil *storage.Store from becoming a non-nil interface.
func catalogStore(s *storage.Store) server.CatalogStore {
	if s == nil {
		return nil
	}
	return s
}
