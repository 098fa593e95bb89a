package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "REELRANGE_"

// Config holds everything needed to run the server. Fields are populated
// from the environment first and then overridden by command-line flags.
type Config struct {
	Addr     string
	Root     string
	LogLevel string

	// DBPath enables the SQLite catalog when non-empty.
	DBPath string
	// DBReadOnly serves a catalog maintained elsewhere; scans update only
	// the in-memory library.
	DBReadOnly    bool
	DBSynchronous string
	DBCacheSize   int
	ScanInterval  time.Duration
	ScanCooldown  time.Duration

	DefaultContentType string
	// ContentTypes maps extensions to MIME types on top of the built-in
	// video table.
	ContentTypes map[string]string
	// MaxBytesPerSecond throttles each stream; 0 disables throttling.
	MaxBytesPerSecond int64
	// UnsatisfiedContentRange adds "Content-Range: bytes */<size>" to 416 responses.
	UnsatisfiedContentRange bool

	CORSOrigins []string

	S3 S3Config

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// S3Config selects the S3-compatible backend when Endpoint is set.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

func Default() Config {
	return Config{
		Addr:               ":8080",
		Root:               "./uploads",
		LogLevel:           "info",
		ScanInterval:       10 * time.Minute,
		ScanCooldown:       30 * time.Second,
		DefaultContentType: "video/mp4",
		ReadHeaderTimeout:  10 * time.Second,
		ShutdownTimeout:    3 * time.Second,
	}
}

// FromEnv returns Default() overlaid with any REELRANGE_* variables.
func FromEnv() Config {
	d := Default()
	return Config{
		Addr:                    getEnv("ADDR", d.Addr),
		Root:                    getEnv("ROOT", d.Root),
		LogLevel:                getEnv("LOG_LEVEL", d.LogLevel),
		DBPath:                  getEnv("DB", d.DBPath),
		DBReadOnly:              getEnvBool("DB_READONLY", d.DBReadOnly),
		DBSynchronous:           strings.ToUpper(getEnv("DB_SYNCHRONOUS", d.DBSynchronous)),
		DBCacheSize:             int(getEnvInt64("DB_CACHE_SIZE", int64(d.DBCacheSize))),
		ScanInterval:            getEnvDuration("SCAN_INTERVAL", d.ScanInterval),
		ScanCooldown:            getEnvDuration("SCAN_COOLDOWN", d.ScanCooldown),
		DefaultContentType:      getEnv("CONTENT_TYPE", d.DefaultContentType),
		ContentTypes:            ParseContentTypes(os.Getenv(envPrefix + "CONTENT_TYPES")),
		MaxBytesPerSecond:       getEnvInt64("MAX_BYTES_PER_SECOND", d.MaxBytesPerSecond),
		UnsatisfiedContentRange: getEnvBool("UNSATISFIED_CONTENT_RANGE", d.UnsatisfiedContentRange),
		CORSOrigins:             splitCSV(os.Getenv(envPrefix + "CORS_ORIGINS")),
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Region:    getEnv("S3_REGION", ""),
			UseSSL:    getEnvBool("S3_USE_SSL", true),
		},
		ReadHeaderTimeout: getEnvDuration("READ_HEADER_TIMEOUT", d.ReadHeaderTimeout),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", d.ShutdownTimeout),
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("config: listen address is required"))
	}
	if !c.S3.Enabled() && strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("config: storage root is required"))
	}
	if c.S3.Enabled() && c.S3.Bucket == "" {
		errs = append(errs, errors.New("config: s3 bucket is required with an s3 endpoint"))
	}
	if strings.TrimSpace(c.DefaultContentType) == "" {
		errs = append(errs, errors.New("config: default content type is required"))
	}
	if c.MaxBytesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("config: max bytes per second must be >= 0, got %d", c.MaxBytesPerSecond))
	}
	if c.DBReadOnly && (c.DBPath == "" || c.DBPath == ":memory:") {
		errs = append(errs, errors.New("config: a read-only catalog needs a database file"))
	}
	switch c.DBSynchronous {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		errs = append(errs, fmt.Errorf("config: unknown sqlite synchronous mode %q", c.DBSynchronous))
	}
	for ext, ct := range c.ContentTypes {
		if strings.TrimSpace(ext) == "" || strings.TrimSpace(ct) == "" {
			errs = append(errs, fmt.Errorf("config: bad content type mapping %q=%q", ext, ct))
		}
	}
	if c.ScanInterval < 0 {
		errs = append(errs, fmt.Errorf("config: scan interval must be >= 0, got %s", c.ScanInterval))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(envPrefix + key)))
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// ParseContentTypes reads "ext=mime,ext=mime". Pairs without "=" are
// skipped.
func ParseContentTypes(raw string) map[string]string {
	pairs := splitCSV(raw)
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		ext, ct, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(ext)] = strings.TrimSpace(ct)
	}
	return out
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
