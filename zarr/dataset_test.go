package zarr_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/TuSKan/tcfzarr/zarr"
)

func writeChunks(t *testing.T, bucket *blob.Bucket, meta zarr.Metadata, chunks map[string][]float32) {
	t.Helper()
	ctx := context.Background()

	metaBytes, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, bucket.WriteAll(ctx, ".zarray", metaBytes, nil))

	var encoder *zstd.Encoder
	if meta.Compressor != nil {
		encoder, err = zstd.NewWriter(nil)
		require.NoError(t, err)
		defer encoder.Close()
	}
	for key, data := range chunks {
		raw := float32Bytes(data)
		if encoder != nil {
			raw = encoder.EncodeAll(raw, nil)
		}
		require.NoError(t, bucket.WriteAll(ctx, key, raw, nil))
	}
}

func rowsChunks() map[string][]float32 {
	// Chunk 0.0 covers rows 0-4, chunk 1.0 covers rows 5-9
	return map[string][]float32{
		"0.0": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		"1.0": {10, 11, 12, 13, 14, 15, 16, 17, 18, 19},
	}
}

func TestDataset_NextBatch(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	writeChunks(t, bucket, zarr.Metadata{
		ZarrFormat: 2,
		Shape:      []int{10, 2},
		Chunks:     []int{5, 2},
		DType:      "<f4",
	}, rowsChunks())

	ctx := context.Background()
	ds, err := zarr.NewDataset(ctx, zarr.NewBucketSource(bucket))
	require.NoError(t, err)

	// Rows 0, 1, 2
	batch1, err := ds.NextBatch(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, batch1.Shape().Dimensions)
	require.Equal(t, [][]float32{{0, 1}, {2, 3}, {4, 5}}, batch1.Value().([][]float32))

	// Rows 3, 4, 5 cross the chunk boundary
	batch2, err := ds.NextBatch(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{6, 7}, {8, 9}, {10, 11}}, batch2.Value().([][]float32))

	// Remaining rows
	batch3, err := ds.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []int{4, 2}, batch3.Shape().Dimensions)
	require.Equal(t, [][]float32{{12, 13}, {14, 15}, {16, 17}, {18, 19}}, batch3.Value().([][]float32))

	_, err = ds.NextBatch(ctx, 1)
	require.ErrorIs(t, err, io.EOF)
}

func TestDataset_NextBatch_Zstd(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	writeChunks(t, bucket, zarr.Metadata{
		ZarrFormat: 2,
		Shape:      []int{10, 2},
		Chunks:     []int{5, 2},
		DType:      "<f4",
		Compressor: &zarr.CompressorConfig{ID: "zstd"},
	}, rowsChunks())

	ctx := context.Background()
	ds, err := zarr.NewDataset(ctx, zarr.NewBucketSource(bucket))
	require.NoError(t, err)

	batch, err := ds.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []int{10, 2}, batch.Shape().Dimensions)

	expected := make([][]float32, 10)
	for i := 0; i < 10; i++ {
		expected[i] = []float32{float32(i * 2), float32(i*2 + 1)}
	}
	require.Equal(t, expected, batch.Value().([][]float32))
}
