package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore serves videos from a single directory on local disk.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed and pins it as an absolute, symlink
// free path.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &DirStore{root: resolved}, nil
}

func (d *DirStore) Root() string { return d.root }

func (d *DirStore) String() string {
	return fmt.Sprintf("dir(%s)", d.root)
}

// resolve maps name to a path that is guaranteed to live under root.
func (d *DirStore) resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(d.root, name)
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	rel, err := filepath.Rel(d.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside root", ErrRejected, name)
	}
	return resolved, nil
}

func (d *DirStore) Stat(ctx context.Context, name string) (Info, error) {
	path, err := d.resolve(name)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Info{}, fmt.Errorf("media: stat %s: %w", name, err)
	}
	if !st.Mode().IsRegular() {
		return Info{}, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, name)
	}
	return Info{Name: name, Size: st.Size(), ModTime: st.ModTime()}, nil
}

func (d *DirStore) Open(ctx context.Context, name string, start, end int64) (io.ReadCloser, error) {
	if err := checkInterval(start, end); err != nil {
		return nil, err
	}
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("media: open %s: %w", name, err)
	}
	section := io.NewSectionReader(f, start, end-start+1)
	return &readCloser{
		Reader: &contextReader{ctx: ctx, r: section},
		closer: f,
	}, nil
}

// List returns the regular files directly under root, sorted by name.
func (d *DirStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("media: list %s: %w", d.root, err)
	}
	out := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, Info{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
