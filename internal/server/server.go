package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/treefix50/reelrange/internal/log"
	"github.com/treefix50/reelrange/internal/media"
	"golang.org/x/sync/errgroup"
)

const (
	errNotFound         = "not found"
	errMethodNotAllowed = "method not allowed"
	errInternal         = "internal error"

	manualScanKey = "library"
)

type Options struct {
	Addr    string
	Store   media.Store
	Catalog CatalogStore

	ContentTypes            *ContentTypes
	UnsatisfiedContentRange bool

	ScanInterval time.Duration
	ScanCooldown time.Duration
	CORSOrigins  []string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type Server struct {
	lib         *Library
	responder   *Responder
	scanLimiter *RateLimiter
	http        *http.Server

	scanInterval    time.Duration
	shutdownTimeout time.Duration
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: media store is required")
	}
	lib, err := NewLibrary(opts.Store, opts.ContentTypes, opts.Catalog)
	if err != nil {
		return nil, err
	}
	s := &Server{
		lib:             lib,
		responder:       NewResponder(opts.Store, opts.ContentTypes, WithUnsatisfiedContentRange(opts.UnsatisfiedContentRange)),
		scanLimiter:     NewRateLimiter(opts.ScanCooldown),
		scanInterval:    opts.ScanInterval,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 3 * time.Second
	}
	readHeaderTimeout := opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           withRequestID(logMiddleware(withCORS(opts.CORSOrigins)(s.Routes()))),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Routes returns the bare API router without middleware.
func (s *Server) Routes() http.Handler {
	// Routes stay on the root router: a PathPrefix subrouter turns method
	// mismatches into 404s.
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/videos", s.handleVideos).Methods(http.MethodGet)
	r.HandleFunc("/api/videos/stream/{filename}", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/api/videos/{id}", s.handleVideo).Methods(http.MethodGet)
	r.HandleFunc("/api/library/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/api/library/scans", s.handleScanRuns).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFound, http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errMethodNotAllowed, http.StatusMethodNotAllowed)
	})
	return r
}

// Handler returns the routes wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Library() *Library { return s.lib }

// Run serves until ctx is cancelled, then shuts down gracefully. The first
// scan runs in the background so a slow store does not delay listening.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof(ctx, "listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		log.Infof(shutdownCtx, "shutting down")
		return s.http.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.runScanTicker(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Server) runScanTicker(ctx context.Context) {
	if _, err := s.lib.Scan(ctx); err != nil {
		log.Warnf(ctx, "initial scan failed: %v", err)
	}
	if s.scanInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.lib.Scan(ctx); err != nil {
				log.Warnf(ctx, "periodic scan failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "running"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.responder.Serve(w, r, mux.Vars(r)["filename"])
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.lib.All())
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lib.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if ok, wait := s.scanLimiter.Allow(manualScanKey); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		writeError(w, manualScanError(wait), http.StatusTooManyRequests)
		return
	}
	n, err := s.lib.Scan(r.Context())
	if err != nil {
		log.Errorf(r.Context(), "manual scan failed: %v", err)
		writeError(w, errInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "videos": n})
}

func (s *Server) handleScanRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = v
	}
	runs, err := s.lib.ScanRuns(limit)
	if err != nil {
		log.Errorf(r.Context(), "list scan runs: %v", err)
		writeError(w, errInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
