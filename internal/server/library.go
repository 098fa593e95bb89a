package server

import (
	"context"
	"encoding/hex"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/treefix50/reelrange/internal/log"
	"github.com/treefix50/reelrange/internal/media"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

type Video struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
}

// Library is the catalog of videos found in the media store. It is kept in
// memory and mirrored to a CatalogStore when one is configured.
type Library struct {
	media   media.Store
	types   *ContentTypes
	catalog CatalogStore

	mu       sync.RWMutex
	videos   map[string]Video
	lastScan time.Time

	scans singleflight.Group
}

func catalogReadOnly(catalog CatalogStore) bool {
	if catalog == nil {
		return false
	}
	return catalog.ReadOnly()
}

func NewLibrary(store media.Store, types *ContentTypes, catalog CatalogStore) (*Library, error) {
	if types == nil {
		types = NewContentTypes("", nil)
	}
	videos := map[string]Video{}
	if catalog != nil {
		stored, err := catalog.ListVideos()
		if err != nil {
			return nil, err
		}
		for _, v := range stored {
			videos[v.ID] = v
		}
	}
	return &Library{
		media:   store,
		types:   types,
		catalog: catalog,
		videos:  videos,
	}, nil
}

// Scan refreshes the catalog from the media store. Concurrent callers share
// a single scan and its result.
func (l *Library) Scan(ctx context.Context) (int, error) {
	v, err, _ := l.scans.Do("scan", func() (any, error) {
		return l.scan(context.WithoutCancel(ctx))
	})
	n, _ := v.(int)
	return n, err
}

func (l *Library) scan(ctx context.Context) (int, error) {
	var scanErrs []error
	var runID string
	writable := l.catalog != nil && !catalogReadOnly(l.catalog)
	if writable {
		run, err := l.catalog.StartScanRun(time.Now())
		if err != nil {
			scanErrs = append(scanErrs, err)
		} else {
			runID = run.ID
		}
	}

	infos, err := l.media.List(ctx)
	if err != nil {
		scanErrs = append(scanErrs, err)
	}

	found := make(map[string]Video, len(infos))
	for _, info := range infos {
		if media.ValidateName(info.Name) != nil || !l.types.Known(info.Name) {
			continue
		}
		v := Video{
			ID:          stableID(info.Name),
			Filename:    info.Name,
			Title:       strings.TrimSuffix(info.Name, filepath.Ext(info.Name)),
			ContentType: l.types.Lookup(info.Name),
			Size:        info.Size,
			Modified:    info.ModTime,
		}
		found[v.ID] = v
	}

	// a failed listing must not wipe the catalog
	if err == nil {
		l.mu.Lock()
		previous := l.videos
		lastScan := l.lastScan
		l.videos = found
		l.lastScan = time.Now()
		l.mu.Unlock()

		if writable {
			if ids := removedIDs(previous, found); len(ids) > 0 {
				if err := l.catalog.DeleteVideos(ids); err != nil {
					scanErrs = append(scanErrs, err)
				}
			}
			if changed := diffVideos(found, previous, lastScan); len(changed) > 0 {
				if err := l.catalog.SaveVideos(changed); err != nil {
					scanErrs = append(scanErrs, err)
				}
			}
		}
	}

	scanErr := errors.Join(scanErrs...)
	if runID != "" {
		finishedAt := time.Now()
		if scanErr != nil {
			if err := l.catalog.FailScanRun(runID, finishedAt, scanErr.Error()); err != nil {
				scanErr = errors.Join(scanErr, err)
			}
		} else if err := l.catalog.FinishScanRun(runID, finishedAt, len(found)); err != nil {
			scanErr = err
		}
	}
	if scanErr != nil {
		return 0, scanErr
	}
	log.Infow(ctx, "library scan finished", "videos", len(found))
	return len(found), nil
}

func (l *Library) All() []Video {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Video, 0, len(l.videos))
	for _, v := range l.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Filename < out[j].Filename
	})
	return out
}

func (l *Library) Get(id string) (Video, bool) {
	l.mu.RLock()
	v, ok := l.videos[id]
	l.mu.RUnlock()
	if ok {
		return v, true
	}
	if l.catalog != nil {
		v, ok, err := l.catalog.GetVideo(id)
		if err == nil && ok {
			return v, true
		}
	}
	return Video{}, false
}

// ScanRuns returns the most recent scans, newest first. Without a catalog
// there is no history.
func (l *Library) ScanRuns(limit int) ([]ScanRun, error) {
	if l.catalog == nil {
		return []ScanRun{}, nil
	}
	return l.catalog.ListScanRuns(limit)
}

func diffVideos(found, previous map[string]Video, lastScan time.Time) []Video {
	out := make([]Video, 0, len(found))
	for id, v := range found {
		if lastScan.IsZero() {
			out = append(out, v)
			continue
		}
		prev, ok := previous[id]
		if !ok || !videoEqual(v, prev) {
			out = append(out, v)
		}
	}
	return out
}

func removedIDs(previous, found map[string]Video) []string {
	if len(previous) == 0 {
		return nil
	}
	out := make([]string, 0, len(previous))
	for id := range previous {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func videoEqual(a, b Video) bool {
	return a.ID == b.ID &&
		a.Filename == b.Filename &&
		a.Title == b.Title &&
		a.ContentType == b.ContentType &&
		a.Size == b.Size &&
		a.Modified.Equal(b.Modified)
}

func stableID(name string) string {
	h := blake2b.Sum256([]byte(name))
	return hex.EncodeToString(h[:8])
}
