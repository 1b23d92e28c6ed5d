// Package store serves the series of a TCF container as a read-only
// Zarr v2 hierarchy with OME-NGFF v0.4 metadata.
//
// The refractive-index series is exposed as group "RI3D" and each
// fluorescence channel n as "FL3D/CH<n>". Every group holds one TZYX
// float32 array at level "0". Chunks are synthesized on request by
// decoding the frames they span; nothing is written anywhere.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/TuSKan/tcfzarr/tcf"
	"github.com/TuSKan/tcfzarr/zarr"
)

// DefaultChunkSize is the configured (T, Z, Y, X) chunk size.
var DefaultChunkSize = [4]int{1, 64, 256, 256}

// Group names.
const (
	GroupRI = "RI3D"
	GroupFL = "FL3D"
)

type config struct {
	chunk   [4]int
	logger  *slog.Logger
	decOpts []tcf.Option
}

// Option configures a Store.
type Option func(*config)

// WithChunkSize sets the configured chunk size. Declared chunks are
// clipped to the array shape.
func WithChunkSize(chunk [4]int) Option {
	return func(c *config) {
		c.chunk = chunk
	}
}

// WithLogger sets the logger of the store and its decoders.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDecoderOptions passes options to every decoder the store opens.
func WithDecoderOptions(opts ...tcf.Option) Option {
	return func(c *config) {
		c.decOpts = append(c.decOpts, opts...)
	}
}

// WithOpener is shorthand for WithDecoderOptions(tcf.WithOpener(open)).
func WithOpener(open tcf.Opener) Option {
	return WithDecoderOptions(tcf.WithOpener(open))
}

// Store is a read-only Zarr key space over one TCF container. It is safe
// for concurrent use.
type Store struct {
	path   string
	chunk  [4]int
	logger *slog.Logger

	mu       sync.RWMutex
	closed   bool
	groups   []string
	decoders map[string]*tcf.Decoder

	// metadata documents, written at most once per key
	meta  sync.Map
	fetch singleflight.Group
}

// New opens the container at path and prepares its groups.
func New(path string, opts ...Option) (*Store, error) {
	cfg := &config{chunk: DefaultChunkSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	for i, c := range cfg.chunk {
		if c <= 0 {
			return nil, fmt.Errorf("chunk size must be positive, got %d on axis %d", c, i)
		}
	}
	decOpts := append([]tcf.Option{tcf.WithLogger(cfg.logger)}, cfg.decOpts...)

	s := &Store{
		path:     path,
		chunk:    cfg.chunk,
		logger:   cfg.logger,
		decoders: map[string]*tcf.Decoder{},
	}

	ri, err := tcf.Open(path, tcf.Series3D, decOpts...)
	switch {
	case err == nil:
		s.add(GroupRI, ri)
	case errors.Is(err, tcf.ErrUnsupportedSeries):
		s.logger.Debug("store: no refractive-index series", "file", path)
	default:
		return nil, err
	}

	channels, err := tcf.FluorescenceChannels(path, decOpts...)
	if err != nil {
		return nil, err
	}
	for ch := range channels {
		fl, err := tcf.OpenFluorescence(path, ch, decOpts...)
		if err != nil {
			return nil, err
		}
		s.add(fmt.Sprintf("%s/CH%d", GroupFL, ch), fl)
	}

	if len(s.groups) == 0 {
		return nil, fmt.Errorf("%w: no 3D or fluorescence series in %s", tcf.ErrUnsupportedSeries, path)
	}
	s.logger.Info("store: opened", "file", path, "groups", s.groups)
	return s, nil
}

func (s *Store) add(group string, dec *tcf.Decoder) {
	s.groups = append(s.groups, group)
	s.decoders[group] = dec
}

// Path returns the container file path.
func (s *Store) Path() string { return s.path }

// Groups returns the exposed group names.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups)
}

// Decoder returns the decoder behind group.
func (s *Store) Decoder(group string) (*tcf.Decoder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dec, ok := s.decoders[group]
	return dec, ok
}

func (s *Store) SupportsWrites() bool  { return false }
func (s *Store) SupportsDeletes() bool { return false }
func (s *Store) SupportsListing() bool { return true }

// Set always fails: the store is read-only.
func (s *Store) Set(context.Context, string, []byte) error {
	return ErrPermissionDenied
}

// Delete always fails: the store is read-only.
func (s *Store) Delete(context.Context, string) error {
	return ErrPermissionDenied
}

// Close drops the decoders and cached metadata. Later calls return
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.groups = nil
	clear(s.decoders)
	s.meta.Clear()
	return nil
}

// layout is the array geometry of one group.
type layout struct {
	shape  []int
	chunks []int
}

func (s *Store) layoutOf(dec *tcf.Decoder) layout {
	shape := append([]int{dec.Len()}, dec.Shape()...)
	chunks := make([]int, len(shape))
	for i := range shape {
		chunks[i] = max(min(s.chunk[i], shape[i]), 1)
	}
	return layout{shape: shape, chunks: chunks}
}

// resolved is a key checked against the key space.
type resolved struct {
	key    parsedKey
	dec    *tcf.Decoder
	layout layout
	start  []int
	size   []int
}

// resolve decides whether key is served. Get, Exists and the listings
// all go through it. Callers hold s.mu.
func (s *Store) resolve(key string) (*resolved, error) {
	if s.closed {
		return nil, ErrClosed
	}
	pk, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	r := &resolved{key: pk}
	if pk.kind == kindRootGroup || pk.kind == kindRootAttrs {
		return r, nil
	}

	dec, ok := s.decoders[pk.group]
	if !ok {
		return nil, fmt.Errorf("%w: no group %q", ErrKeyNotFound, pk.group)
	}
	r.dec = dec
	r.layout = s.layoutOf(dec)
	if pk.kind == kindGroup || pk.kind == kindGroupAttrs {
		return r, nil
	}

	if pk.level != level {
		return nil, fmt.Errorf("%w: %s has only level %q, not %q", ErrKeyNotFound, pk.group, level, pk.level)
	}
	if pk.kind == kindArray {
		return r, nil
	}

	start, size, ok := zarr.ChunkExtent(r.layout.shape, r.layout.chunks, pk.coords)
	if !ok {
		return nil, fmt.Errorf("%w: chunk %v outside grid %v", ErrKeyNotFound, pk.coords,
			zarr.GridShape(r.layout.shape, r.layout.chunks))
	}
	r.start, r.size = start, size
	return r, nil
}

// Get returns the document or chunk stored under key. Metadata documents
// are cached and the same slice is returned on every call; callers must
// not modify it.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if r.key.metadata() {
		return s.metadata(key, r)
	}
	return s.synthesize(r)
}

// Exists reports whether Get would serve key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.resolve(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrMalformedKey):
		return false, nil
	}
	return false, err
}

func (s *Store) metadata(key string, r *resolved) ([]byte, error) {
	if v, ok := s.meta.Load(key); ok {
		return v.([]byte), nil
	}
	v, err, _ := s.fetch.Do(key, func() (any, error) {
		if v, ok := s.meta.Load(key); ok {
			return v, nil
		}
		doc, err := s.render(r)
		if err != nil {
			return nil, err
		}
		actual, _ := s.meta.LoadOrStore(key, doc)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// synthesize builds a chunk by decoding each timepoint it spans once and
// copying the spatial box out of it.
func (s *Store) synthesize(r *resolved) ([]byte, error) {
	start, size := r.start, r.size
	frameShape := r.layout.shape[1:]
	out := make([]float32, zarr.NumElements(size))
	outStrides := zarr.Strides(size)
	frameOffset := make([]int, len(frameShape))

	for t := range size[0] {
		vol, err := r.dec.Frame(start[0] + t)
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %d of %s: %w", start[0]+t, r.key.group, err)
		}
		if !slices.Equal(vol.Shape, frameShape) {
			return nil, fmt.Errorf("frame %d of %s has shape %v, series declares %v", start[0]+t, r.key.group, vol.Shape, frameShape)
		}
		dst := out[t*outStrides[0]:]
		zarr.CopyND(dst, outStrides[1:], frameOffset, vol.Data, vol.Strides(), start[1:], size[1:])
	}

	buf := make([]byte, 0, len(out)*4)
	for _, v := range out {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf, nil
}
