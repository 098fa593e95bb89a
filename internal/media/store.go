package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

/*
media is the byte storage layer behind the stream endpoint. A Store answers
two questions per request, whether a named video exists and how large it is,
and hands out independent readers over inclusive byte intervals. Names are
flat: a name is a single path segment under the store's root.
*/

var (
	// ErrNotFound is returned when no video exists under a name.
	ErrNotFound = errors.New("media: not found")
	// ErrRejected is returned for names that could escape the storage root.
	ErrRejected = errors.New("media: rejected name")
)

// Info describes a stored video.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Store is implemented by every storage backend.
type Store interface {
	// Stat reports ErrNotFound when name does not exist.
	Stat(ctx context.Context, name string) (Info, error)
	// Open returns a fresh reader over bytes [start, end] of name. The
	// reader stops early if ctx is cancelled.
	Open(ctx context.Context, name string, start, end int64) (io.ReadCloser, error)
	List(ctx context.Context) ([]Info, error)
}

// ValidateName rejects names that are not a single plain path segment.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrRejected, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrRejected, name)
	}
	return nil
}

func checkInterval(start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("media: invalid interval [%d, %d]", start, end)
	}
	return nil
}

// contextReader fails reads once its context is done so an abandoned
// stream stops pulling from storage.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (rc *readCloser) Close() error {
	return rc.closer.Close()
}
