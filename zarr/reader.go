package zarr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Reader reads one Zarr V2 array from a Source.
type Reader struct {
	src      Source
	meta     *Metadata
	itemSize int
}

// NewReader loads .zarray from src and prepares to read chunks.
func NewReader(ctx context.Context, src Source) (*Reader, error) {
	raw, err := src.Get(ctx, ".zarray")
	if err != nil {
		return nil, fmt.Errorf("failed to open .zarray: %w", err)
	}

	meta, err := LoadMetadata(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	_, itemSize, err := ParseDType(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("invalid dtype: %w", err)
	}
	return &Reader{
		src:      src,
		meta:     meta,
		itemSize: itemSize,
	}, nil
}

// ReadFull reads the entire Zarr array into a flat byte slice.
func (r *Reader) ReadFull(ctx context.Context) ([]byte, error) {
	if len(r.meta.Shape) == 0 {
		return r.ReadChunk(ctx, []int{})
	}
	start := make([]int, len(r.meta.Shape))
	return r.ReadRegion(ctx, start, r.meta.Shape)
}

// ReadChunk reads a single chunk given its coordinates. The result always
// holds the full (unclipped) chunk; a missing chunk reads as zeros.
func (r *Reader) ReadChunk(ctx context.Context, coords []int) ([]byte, error) {
	key := ChunkKey(coords, ".")
	expected := NumElements(r.meta.Chunks) * r.itemSize

	chunkData, err := r.src.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return make([]byte, expected), nil
		}
		return nil, fmt.Errorf("failed to read chunk %s: %w", key, err)
	}

	if r.meta.Compressor != nil {
		chunkData, err = decompress(r.meta.Compressor.ID, chunkData)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress chunk %s: %w", key, err)
		}
	}

	if len(chunkData) < expected {
		// Edge chunks may be stored clipped. Re-pad to the declared chunk
		// shape so callers can index with the regular chunk strides.
		return r.padChunk(coords, chunkData, expected)
	}
	return chunkData, nil
}

func (r *Reader) padChunk(coords []int, chunkData []byte, expected int) ([]byte, error) {
	_, size, ok := ChunkExtent(r.meta.Shape, r.meta.Chunks, coords)
	if !ok || NumElements(size)*r.itemSize != len(chunkData) {
		return nil, fmt.Errorf("chunk %v has %d bytes, expected %d", coords, len(chunkData), expected)
	}
	out := make([]byte, expected)
	zero := make([]int, len(size)+1)
	CopyND(out, byteStrides(r.meta.Chunks, r.itemSize), zero,
		chunkData, byteStrides(size, r.itemSize), zero,
		append(append([]int{}, size...), r.itemSize))
	return out, nil
}

func decompress(id string, data []byte) ([]byte, error) {
	switch id {
	case "zlib", "gzip":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to init zlib reader: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "zstd":
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer decoder.Close()
		return decoder.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unsupported compressor: %s", id)
	}
}

// ReadRegion reads an N-dimensional region of the Zarr array.
func (r *Reader) ReadRegion(ctx context.Context, start, shape []int) ([]byte, error) {
	if len(start) != len(r.meta.Shape) || len(shape) != len(r.meta.Shape) {
		return nil, fmt.Errorf("start and shape must match array dimensionality")
	}

	// Validate bounds
	for i := range r.meta.Shape {
		if start[i] < 0 || shape[i] <= 0 || start[i]+shape[i] > r.meta.Shape[i] {
			return nil, fmt.Errorf("region out of bounds at dimension %d", i)
		}
	}

	if len(r.meta.Shape) == 0 {
		return r.ReadChunk(ctx, []int{})
	}

	out := make([]byte, NumElements(shape)*r.itemSize)

	minChunk := make([]int, len(start))
	maxChunk := make([]int, len(start))
	for i := range start {
		minChunk[i] = start[i] / r.meta.Chunks[i]
		maxChunk[i] = (start[i] + shape[i] - 1) / r.meta.Chunks[i]
	}

	dstStrides := byteStrides(shape, r.itemSize)
	chunkStrides := byteStrides(r.meta.Chunks, r.itemSize)
	rank := len(r.meta.Shape)

	var iterateChunks func(dim int, currentChunkCoords []int) error
	iterateChunks = func(dim int, currentChunkCoords []int) error {
		if dim == len(minChunk) {
			chunkData, err := r.ReadChunk(ctx, currentChunkCoords)
			if err != nil {
				return err
			}

			// trailing axis walks the bytes of one item
			copyShape := make([]int, rank+1)
			srcOffset := make([]int, rank+1)
			dstOffset := make([]int, rank+1)
			copyShape[rank] = r.itemSize

			for i := range r.meta.Shape {
				chunkStartGlobal := currentChunkCoords[i] * r.meta.Chunks[i]
				chunkEndGlobal := min(chunkStartGlobal+r.meta.Chunks[i], r.meta.Shape[i])

				intersectStart := max(chunkStartGlobal, start[i])
				intersectEnd := min(chunkEndGlobal, start[i]+shape[i])
				if intersectStart >= intersectEnd {
					return nil
				}

				copyShape[i] = intersectEnd - intersectStart
				srcOffset[i] = intersectStart - chunkStartGlobal
				dstOffset[i] = intersectStart - start[i]
			}

			CopyND(out, dstStrides, dstOffset, chunkData, chunkStrides, srcOffset, copyShape)
			return nil
		}

		for i := minChunk[dim]; i <= maxChunk[dim]; i++ {
			currentChunkCoords[dim] = i
			if err := iterateChunks(dim+1, currentChunkCoords); err != nil {
				return err
			}
		}
		return nil
	}

	coords := make([]int, len(minChunk))
	if err := iterateChunks(0, coords); err != nil {
		return nil, err
	}

	return out, nil
}

// Metadata returns the parsed .zarray document.
func (r *Reader) Metadata() *Metadata {
	return r.meta
}

// Close closes the source if it holds resources.
func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
