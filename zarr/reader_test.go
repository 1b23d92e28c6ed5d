package zarr_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	_ "gocloud.dev/blob/fileblob"

	"github.com/TuSKan/tcfzarr/zarr"
)

func float32Bytes(data []float32) []byte {
	buf := make([]byte, 0, len(data)*4)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func decodeFloat32(t *testing.T, raw []byte) []float32 {
	t.Helper()
	require.Zero(t, len(raw)%4)
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestReader_ReadFull(t *testing.T) {
	tempDir := t.TempDir()

	mockJSON := `{
		"zarr_format": 2,
		"shape": [4, 4],
		"chunks": [2, 2],
		"dtype": "<f4",
		"compressor": null,
		"fill_value": 0.0,
		"order": "C"
	}`
	writeFile(t, tempDir, ".zarray", []byte(mockJSON))

	// Create 0.0 and 1.1 chunks
	writeFile(t, tempDir, "0.0", float32Bytes([]float32{1.0, 2.0, 3.0, 4.0}))
	writeFile(t, tempDir, "1.1", float32Bytes([]float32{5.0, 6.0, 7.0, 8.0}))

	ctx := context.Background()
	src, err := zarr.OpenBucket(ctx, "file://"+filepath.ToSlash(tempDir))
	require.NoError(t, err)

	reader, err := zarr.NewReader(ctx, src)
	require.NoError(t, err)
	defer reader.Close()

	dataBytes, err := reader.ReadFull(ctx)
	require.NoError(t, err)
	require.Len(t, dataBytes, 64)

	// Chunk 0.1 and 1.0 are missing and read as zeros.
	expected := []float32{
		1.0, 2.0, 0.0, 0.0,
		3.0, 4.0, 0.0, 0.0,
		0.0, 0.0, 5.0, 6.0,
		0.0, 0.0, 7.0, 8.0,
	}
	require.Equal(t, expected, decodeFloat32(t, dataBytes))
}

func TestReader_ReadRegion(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	src := zarr.NewBucketSource(bucket)
	defer src.Close()

	meta := zarr.Metadata{ZarrFormat: 2, Shape: []int{4, 4}, Chunks: []int{3, 3}, DType: "<f4", Order: "C"}
	metaBytes, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, bucket.WriteAll(ctx, ".zarray", metaBytes, nil))

	// 4x4 matrix holding 0..15, split into 3x3 chunks. Edge chunks are
	// stored clipped.
	require.NoError(t, bucket.WriteAll(ctx, "0.0", float32Bytes([]float32{0, 1, 2, 4, 5, 6, 8, 9, 10}), nil))
	require.NoError(t, bucket.WriteAll(ctx, "0.1", float32Bytes([]float32{3, 7, 11}), nil))
	require.NoError(t, bucket.WriteAll(ctx, "1.0", float32Bytes([]float32{12, 13, 14}), nil))
	require.NoError(t, bucket.WriteAll(ctx, "1.1", float32Bytes([]float32{15}), nil))

	reader, err := zarr.NewReader(ctx, src)
	require.NoError(t, err)

	full, err := reader.ReadFull(ctx)
	require.NoError(t, err)
	got := decodeFloat32(t, full)
	for i := range got {
		require.Equal(t, float32(i), got[i])
	}

	// Subregion [1:3, 1:3] crosses all four chunks.
	data, err := reader.ReadRegion(ctx, []int{1, 1}, []int{2, 2})
	require.NoError(t, err)
	require.Equal(t, []float32{5, 6, 9, 10}, decodeFloat32(t, data))

	_, err = reader.ReadRegion(ctx, []int{3, 3}, []int{2, 2})
	require.ErrorContains(t, err, "out of bounds")
	_, err = reader.ReadRegion(ctx, []int{0}, []int{1})
	require.Error(t, err)
}

func TestReader_Zstd(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	src := zarr.NewBucketSource(bucket)
	defer src.Close()

	meta := zarr.Metadata{
		ZarrFormat: 2,
		Shape:      []int{2, 2},
		Chunks:     []int{2, 2},
		DType:      "<f4",
		Compressor: &zarr.CompressorConfig{ID: "zstd"},
	}
	metaBytes, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, bucket.WriteAll(ctx, ".zarray", metaBytes, nil))

	encoder, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := encoder.EncodeAll(float32Bytes([]float32{1, 2, 3, 4}), nil)
	require.NoError(t, encoder.Close())
	require.NoError(t, bucket.WriteAll(ctx, "0.0", compressed, nil))

	reader, err := zarr.NewReader(ctx, src)
	require.NoError(t, err)
	chunk, err := reader.ReadChunk(ctx, []int{0, 0})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4}, decodeFloat32(t, chunk))
}

func TestReader_MissingMetadata(t *testing.T) {
	src := zarr.NewBucketSource(memblob.OpenBucket(nil))
	defer src.Close()

	_, err := zarr.NewReader(context.Background(), src)
	require.ErrorIs(t, err, zarr.ErrNotFound)
}

func TestPrefixed(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	src := zarr.NewBucketSource(bucket)
	defer src.Close()

	require.NoError(t, bucket.WriteAll(ctx, "RI3D/0/.zarray", []byte("{}"), nil))

	got, err := zarr.Prefixed(src, "/RI3D/0/").Get(ctx, ".zarray")
	require.NoError(t, err)
	require.Equal(t, []byte("{}"), got)

	require.Same(t, zarr.Source(src), zarr.Prefixed(src, ""))
}
