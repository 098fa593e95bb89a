package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/treefix50/reelrange/internal/log"
	"github.com/treefix50/reelrange/internal/media"
)

const (
	msgVideoNotFound     = "Video not found."
	msgRangeNotSatisfied = "Requested range not satisfiable"
	msgInternal          = "internal error"
)

// Responder streams one stored video per request, whole or as a single
// byte range. It keeps no per-request state and is safe for concurrent use.
type Responder struct {
	store                   media.Store
	types                   *ContentTypes
	unsatisfiedContentRange bool
}

type ResponderOption func(*Responder)

// WithUnsatisfiedContentRange makes 416 responses carry
// "Content-Range: bytes */<size>".
func WithUnsatisfiedContentRange(enabled bool) ResponderOption {
	return func(r *Responder) { r.unsatisfiedContentRange = enabled }
}

func NewResponder(store media.Store, types *ContentTypes, opts ...ResponderOption) *Responder {
	if types == nil {
		types = NewContentTypes("", nil)
	}
	r := &Responder{store: store, types: types}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve answers r with the video stored under name:
//
//	200  no Range header, whole body (empty for an empty video)
//	206  satisfiable single range
//	404  name unknown or rejected
//	416  malformed range, or start at/after the end of the video
//	500  storage failure before the status line was sent
//
// A storage failure after the status line aborts the connection.
func (rs *Responder) Serve(w http.ResponseWriter, r *http.Request, name string) {
	ctx := log.AddTags(r.Context(), "video", name)

	info, err := rs.store.Stat(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrRejected):
			log.Warnw(ctx, "rejected video name", "err", err)
			writeText(w, http.StatusNotFound, msgVideoNotFound)
		case errors.Is(err, media.ErrNotFound):
			writeText(w, http.StatusNotFound, msgVideoNotFound)
		default:
			log.Errorw(ctx, "video stat failed", "err", err)
			writeText(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}
	size := info.Size
	contentType := rs.types.Lookup(name)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		if size == 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		rs.stream(w, r.WithContext(ctx), name, ByteRange{Start: 0, End: size - 1}, http.StatusOK)
		return
	}

	br, err := ParseRange(rangeHeader, size)
	if err != nil {
		log.Infow(ctx, "range not satisfiable", "range", rangeHeader, "size", size, "err", err)
		if rs.unsatisfiedContentRange {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		}
		writeText(w, http.StatusRequestedRangeNotSatisfiable, msgRangeNotSatisfied+"\n"+err.Error())
		return
	}

	w.Header().Set("Content-Range", br.ContentRange(size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	rs.stream(w, r.WithContext(ctx), name, br, http.StatusPartialContent)
}

// stream opens br before committing to status so that an open failure can
// still become a 500. Headers other than the status line are already set.
func (rs *Responder) stream(w http.ResponseWriter, r *http.Request, name string, br ByteRange, status int) {
	ctx := r.Context()
	body, err := rs.store.Open(ctx, name, br.Start, br.End)
	if err != nil {
		// the video vanished or became unreadable after Stat
		log.Errorw(ctx, "video open failed", "start", br.Start, "end", br.End, "err", err)
		clearEntityHeaders(w.Header())
		writeText(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer body.Close()

	w.WriteHeader(status)
	n, err := io.Copy(w, body)
	if err == nil && n == br.Length() {
		return
	}
	if ctx.Err() != nil {
		log.Infow(ctx, "client went away mid-stream", "sent", n, "want", br.Length())
		return
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	log.Errorw(ctx, "stream aborted", "sent", n, "want", br.Length(), "err", err)
	panic(http.ErrAbortHandler)
}

func clearEntityHeaders(h http.Header) {
	for _, k := range []string{"Content-Range", "Accept-Ranges", "Content-Length", "Content-Type"} {
		h.Del(k)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", normalizeTextContentType("text/plain"))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
