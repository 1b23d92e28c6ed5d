package zarr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by a Source when a key does not exist.
var ErrNotFound = errors.New("zarr: key not found")

// Source is a read-only key/value view of a Zarr hierarchy.
type Source interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// BucketSource serves keys from a gocloud blob bucket.
type BucketSource struct {
	bucket *blob.Bucket
}

// NewBucketSource wraps an already opened bucket. Closing the source closes
// the bucket.
func NewBucketSource(bucket *blob.Bucket) *BucketSource {
	return &BucketSource{bucket: bucket}
}

// OpenBucket opens a bucket by URL, e.g. "file:///data/x.zarr" or "mem://".
func OpenBucket(ctx context.Context, url string) (*BucketSource, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &BucketSource{bucket: bucket}, nil
}

// Get reads the whole object stored under key.
func (s *BucketSource) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Bucket returns the underlying bucket.
func (s *BucketSource) Bucket() *blob.Bucket {
	return s.bucket
}

// Close closes the bucket.
func (s *BucketSource) Close() error {
	return s.bucket.Close()
}

type prefixed struct {
	src    Source
	prefix string
}

// Prefixed scopes src to the sub-hierarchy at path, so that ".zarray" on
// the result reads path+"/.zarray" on src.
func Prefixed(src Source, path string) Source {
	path = strings.Trim(path, "/")
	if path == "" {
		return src
	}
	return &prefixed{src: src, prefix: path + "/"}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.src.Get(ctx, p.prefix+key)
}

func (p *prefixed) Close() error {
	if c, ok := p.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
