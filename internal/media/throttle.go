package media

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// Throttle limits every stream opened from store to bytesPerSecond. Each
// stream gets its own limiter. A non-positive rate returns store unchanged.
func Throttle(store Store, bytesPerSecond int64) Store {
	if bytesPerSecond <= 0 {
		return store
	}
	return &throttledStore{Store: store, bytesPerSecond: bytesPerSecond}
}

type throttledStore struct {
	Store
	bytesPerSecond int64
}

func (t *throttledStore) String() string {
	return fmt.Sprintf("%v (%d B/s)", t.Store, t.bytesPerSecond)
}

func (t *throttledStore) Open(ctx context.Context, name string, start, end int64) (io.ReadCloser, error) {
	rc, err := t.Store.Open(ctx, name, start, end)
	if err != nil {
		return nil, err
	}
	burst := int(min(t.bytesPerSecond, 1<<20))
	limiter := rate.NewLimiter(rate.Limit(t.bytesPerSecond), burst)
	return &readCloser{
		Reader: &rateLimitedReader{ctx: ctx, r: rc, limiter: limiter},
		closer: rc,
	}, nil
}

type rateLimitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
