package media

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
S3Store serves videos from one bucket of an S3-compatible object store. Only
top-level keys are visible, matching the flat naming of DirStore.
*/

const s3ErrNoSuchKey = "NoSuchKey"

type S3Store struct {
	mc     *minio.Client
	bucket string
}

// DialS3 builds a MinIO client. No request is made until first use. An
// empty region is looked up from the bucket on first access.
func DialS3(endpoint, accessKey, secretKey, region string, useSSL bool) (*minio.Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("media: create s3 client: %w", err)
	}
	return mc, nil
}

func NewS3Store(mc *minio.Client, bucket string) *S3Store {
	return &S3Store{mc: mc, bucket: bucket}
}

func (s *S3Store) String() string {
	return fmt.Sprintf("s3(%s)", s.bucket)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == s3ErrNoSuchKey
}

func (s *S3Store) Stat(ctx context.Context, name string) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	obj, err := s.mc.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Info{}, fmt.Errorf("media: stat object %s: %w", name, err)
	}
	return Info{Name: name, Size: obj.Size, ModTime: obj.LastModified}, nil
}

func (s *S3Store) Open(ctx context.Context, name string, start, end int64) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := checkInterval(start, end); err != nil {
		return nil, err
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("media: set range: %w", err)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, name, opts)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("media: get object %s: %w", name, err)
	}
	// GetObject is lazy; Stat sends the ranged request so a missing object
	// fails here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("media: get object %s: %w", name, err)
	}
	return &readCloser{
		Reader: &contextReader{ctx: ctx, r: obj},
		closer: obj,
	}, nil
}

func (s *S3Store) List(ctx context.Context) ([]Info, error) {
	var out []Info
	for obj := range s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("media: list bucket %s: %w", s.bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, Info{Name: obj.Key, Size: obj.Size, ModTime: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
