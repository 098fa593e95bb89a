package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/treefix50/reelrange/internal/log"
)

// withRequestID tags the request context so every log line written while
// serving it carries the same request_id.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := log.AddTags(r.Context(), "request_id", id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusResponseWriter(w)
		// deferred so aborted streams are logged as well
		defer func() {
			log.Infow(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.Status(),
				"bytes", sw.BytesWritten(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(sw, r)
	})
}
