package server_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/treefix50/reelrange/internal/media"
	"github.com/treefix50/reelrange/internal/server"
	"github.com/treefix50/reelrange/internal/storage"
)

func openCatalog(t *testing.T) *storage.Store {
	t.Helper()
	catalog, err := storage.Open(":memory:", storage.Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })
	return catalog
}

func TestLibraryScanWithoutCatalog(t *testing.T) {
	store := newDirStore(t, map[string][]byte{
		"b-movie.mkv": sequence(20),
		"a-movie.mp4": sequence(10),
		"notes.txt":   []byte("not a video"),
	})
	lib, err := server.NewLibrary(store, nil, nil)
	require.NoError(t, err)
	require.Empty(t, lib.All())

	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	all := lib.All()
	require.Len(t, all, 2)
	require.Equal(t, "a-movie", all[0].Title)
	require.Equal(t, "a-movie.mp4", all[0].Filename)
	require.Equal(t, "video/mp4", all[0].ContentType)
	require.Equal(t, int64(10), all[0].Size)
	require.Equal(t, "video/x-matroska", all[1].ContentType)

	got, ok := lib.Get(all[1].ID)
	require.True(t, ok)
	require.Equal(t, all[1], got)

	_, ok = lib.Get("does-not-exist")
	require.False(t, ok)

	runs, err := lib.ScanRuns(10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestLibraryIDsAreStable(t *testing.T) {
	store := newDirStore(t, map[string][]byte{"clip.mp4": sequence(5)})
	first, err := server.NewLibrary(store, nil, nil)
	require.NoError(t, err)
	second, err := server.NewLibrary(store, nil, nil)
	require.NoError(t, err)

	_, err = first.Scan(context.Background())
	require.NoError(t, err)
	_, err = second.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.All()[0].ID, second.All()[0].ID)
	require.Len(t, first.All()[0].ID, 16)
}

func TestLibraryMirrorsCatalog(t *testing.T) {
	store := newDirStore(t, map[string][]byte{
		"one.mp4": sequence(1),
		"two.mp4": sequence(2),
	})
	catalog := openCatalog(t)
	lib, err := server.NewLibrary(store, nil, catalog)
	require.NoError(t, err)

	_, err = lib.Scan(context.Background())
	require.NoError(t, err)
	stored, err := catalog.ListVideos()
	require.NoError(t, err)
	require.Len(t, stored, 2)

	require.NoError(t, os.Remove(filepath.Join(store.Root(), "one.mp4")))
	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stored, err = catalog.ListVideos()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "two.mp4", stored[0].Filename)

	runs, err := lib.ScanRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Equal(t, server.ScanStatusFinished, run.Status)
	}
	require.Equal(t, 1, runs[0].VideoCount)

	// a fresh library starts from the catalog before its first scan
	reloaded, err := server.NewLibrary(store, nil, catalog)
	require.NoError(t, err)
	require.Len(t, reloaded.All(), 1)
}

func TestLibraryReadOnlyCatalog(t *testing.T) {
	store := newDirStore(t, map[string][]byte{"one.mp4": sequence(1)})
	path := filepath.Join(t.TempDir(), "catalog.db")

	writer, err := storage.Open(path, storage.Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	defer writer.Close()
	seeded, err := server.NewLibrary(store, nil, writer)
	require.NoError(t, err)
	_, err = seeded.Scan(context.Background())
	require.NoError(t, err)

	readOnly, err := storage.Open(path, storage.Options{BusyTimeout: time.Second, ReadOnly: true})
	require.NoError(t, err)
	defer readOnly.Close()

	lib, err := server.NewLibrary(store, nil, readOnly)
	require.NoError(t, err)
	all := lib.All()
	require.Len(t, all, 1)
	require.Equal(t, "one.mp4", all[0].Filename)

	// scans refresh memory but never write to a read-only catalog
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "two.mp4"), sequence(2), 0o644))
	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, lib.All(), 2)

	stored, err := readOnly.ListVideos()
	require.NoError(t, err)
	require.Len(t, stored, 1)

	runs, err := lib.ScanRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestLibraryFailedListingKeepsCatalog(t *testing.T) {
	store := newDirStore(t, map[string][]byte{"clip.mp4": sequence(3)})
	catalog := openCatalog(t)
	lib, err := server.NewLibrary(store, nil, catalog)
	require.NoError(t, err)
	_, err = lib.Scan(context.Background())
	require.NoError(t, err)

	broken, err := server.NewLibrary(failingLister{store}, nil, catalog)
	require.NoError(t, err)
	_, err = broken.Scan(context.Background())
	require.ErrorContains(t, err, "listing unavailable")
	require.Len(t, broken.All(), 1)

	stored, err := catalog.ListVideos()
	require.NoError(t, err)
	require.Len(t, stored, 1)

	runs, err := broken.ScanRuns(1)
	require.NoError(t, err)
	require.Equal(t, server.ScanStatusFailed, runs[0].Status)
	require.Contains(t, runs[0].Error, "listing unavailable")
}

func TestLibraryConcurrentScans(t *testing.T) {
	store := newDirStore(t, map[string][]byte{"clip.mp4": sequence(3)})
	lib, err := server.NewLibrary(store, nil, openCatalog(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.Scan(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, lib.All(), 1)
}

type failingLister struct {
	media.Store
}

func (failingLister) List(context.Context) ([]media.Info, error) {
	return nil, errors.New("listing unavailable")
}
