package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	"github.com/TuSKan/tcfzarr/zarr"
)

// Compression names accepted by WithCompression.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

type exportConfig struct {
	compression string
	prefix      string
	workers     int
	groups      []string
}

// ExportOption configures Export.
type ExportOption func(*exportConfig)

// WithCompression compresses chunks with the named codec ("none" or
// "zstd"). The array metadata declares the codec.
func WithCompression(name string) ExportOption {
	return func(c *exportConfig) {
		c.compression = name
	}
}

// WithPrefix writes every key under prefix.
func WithPrefix(prefix string) ExportOption {
	return func(c *exportConfig) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// WithWorkers bounds the number of keys written concurrently.
func WithWorkers(n int) ExportOption {
	return func(c *exportConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithGroups restricts the export to the named groups. A parent name
// such as "FL3D" selects every group below it. Root metadata is always
// written.
func WithGroups(groups ...string) ExportOption {
	return func(c *exportConfig) {
		c.groups = append(c.groups, groups...)
	}
}

// ExportReport lists what Export wrote. Digests are of the bytes as
// stored, so two exports with the same options can be compared.
type ExportReport struct {
	Keys    int
	Bytes   int64
	Digests map[string]digest.Digest
}

// Digest summarizes the whole export: the digest of the sorted
// "key digest" lines.
func (r *ExportReport) Digest() digest.Digest {
	keys := make([]string, 0, len(r.Digests))
	for k := range r.Digests {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", k, r.Digests[k])
	}
	return digest.FromString(b.String())
}

// Export copies every key of s into bucket, producing an ordinary Zarr v2
// hierarchy readable without the source container.
func Export(ctx context.Context, s *Store, bucket *blob.Bucket, opts ...ExportOption) (*ExportReport, error) {
	cfg := &exportConfig{compression: CompressionNone, workers: 4}
	for _, opt := range opts {
		opt(cfg)
	}

	var enc *zstd.Encoder
	switch cfg.compression {
	case CompressionNone, "":
	case CompressionZstd:
		var err error
		if enc, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1)); err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
	default:
		return nil, fmt.Errorf("unsupported compression %q", cfg.compression)
	}

	keys, err := exportKeys(s, cfg.groups)
	if err != nil {
		return nil, err
	}
	report := &ExportReport{Digests: make(map[string]digest.Digest, len(keys))}
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers)
	for _, key := range keys {
		eg.Go(func() error {
			data, err := s.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			if enc != nil {
				if data, err = compressed(enc, key, data); err != nil {
					return err
				}
			}
			dst := key
			if cfg.prefix != "" {
				dst = cfg.prefix + "/" + key
			}
			if err := bucket.WriteAll(ctx, dst, data, nil); err != nil {
				return fmt.Errorf("failed to write %s: %w", dst, err)
			}

			mu.Lock()
			report.Keys++
			report.Bytes += int64(len(data))
			report.Digests[key] = digest.FromBytes(data)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("store: exported", "file", s.path, "keys", report.Keys, "bytes", report.Bytes,
		"compression", cfg.compression, "digest", report.Digest())
	return report, nil
}

func exportKeys(s *Store, groups []string) ([]string, error) {
	if len(groups) == 0 {
		return s.List(), nil
	}
	selected := map[string]bool{}
	for _, name := range groups {
		name = strings.Trim(name, "/")
		matched := false
		for _, g := range s.Groups() {
			if g == name || strings.HasPrefix(g, name+"/") {
				selected[g] = true
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: no group %q", ErrKeyNotFound, name)
		}
	}

	var keys []string
	for k := range s.Keys() {
		pk, err := parseKey(k)
		if err != nil {
			continue
		}
		if pk.group == "" || selected[pk.group] {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// compressed encodes chunk payloads and rewrites array metadata to
// declare the codec. Other documents pass through.
func compressed(enc *zstd.Encoder, key string, data []byte) ([]byte, error) {
	pk, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	switch pk.kind {
	case kindChunk:
		return enc.EncodeAll(data, nil), nil
	case kindArray:
		var meta zarr.Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		meta.Compressor = &zarr.CompressorConfig{ID: CompressionZstd}
		out, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return out, nil
	}
	return data, nil
}
