package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/treefix50/reelrange/internal/config"
	"github.com/treefix50/reelrange/internal/log"
	"github.com/treefix50/reelrange/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		d := config.Default()
		f := cmd.Flags()
		f.StringP("addr", "a", d.Addr, "listen address")
		f.Duration("scan-interval", d.ScanInterval, "interval between library scans; 0 scans once at startup")
		f.Duration("scan-cooldown", d.ScanCooldown, "minimum time between manual scans")
		f.Int64("max-bytes-per-second", d.MaxBytesPerSecond, "per-stream throughput limit; 0 disables")
		f.Bool("unsatisfied-content-range", d.UnsatisfiedContentRange, `send "Content-Range: bytes */size" with 416 responses`)
		f.StringSlice("cors-origin", nil, `allowed CORS origins; "*" allows any`)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openMediaStore(cfg)
	if err != nil {
		return err
	}
	catalog, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Close()
	}

	srv, err := server.New(server.Options{
		Addr:                    cfg.Addr,
		Store:                   store,
		Catalog:                 catalogStore(catalog),
		ContentTypes:            server.NewContentTypes(cfg.DefaultContentType, cfg.ContentTypes),
		UnsatisfiedContentRange: cfg.UnsatisfiedContentRange,
		ScanInterval:            cfg.ScanInterval,
		ScanCooldown:            cfg.ScanCooldown,
		CORSOrigins:             cfg.CORSOrigins,
		ReadHeaderTimeout:       cfg.ReadHeaderTimeout,
		ShutdownTimeout:         cfg.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Infow(ctx, "starting reelrange", "addr", cfg.Addr, "store", store, "catalog", cfg.DBPath, "catalog_readonly", cfg.DBReadOnly)
	return srv.Run(ctx)
}
