package store_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/TuSKan/tcfzarr/store"
	"github.com/TuSKan/tcfzarr/zarr"
)

// framesOf decodes every frame of group and concatenates them.
func framesOf(t *testing.T, s *store.Store, group string) []float32 {
	t.Helper()
	dec, ok := s.Decoder(group)
	require.True(t, ok)
	var all []float32
	for i := range dec.Len() {
		vol, err := dec.Frame(i)
		require.NoError(t, err)
		all = append(all, vol.Data...)
	}
	return all
}

func TestStore_ReadThroughZarrReader(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, riContainer(3, []int{3, 5, 4}), store.WithChunkSize([4]int{2, 2, 3, 3}))

	reader, err := zarr.NewReader(ctx, zarr.Prefixed(s, "RI3D/0"))
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 5, 4}, reader.Metadata().Shape)

	raw, err := reader.ReadFull(ctx)
	require.NoError(t, err)
	require.Equal(t, framesOf(t, s, store.GroupRI), decodeFloat32(t, raw))

	region, err := reader.ReadRegion(ctx, []int{1, 1, 2, 1}, []int{2, 2, 3, 2})
	require.NoError(t, err)
	dec, _ := s.Decoder(store.GroupRI)
	var want []float32
	for f := 1; f < 3; f++ {
		vol, err := dec.Frame(f)
		require.NoError(t, err)
		sub, err := vol.Region([]int{1, 2, 1}, []int{2, 3, 2})
		require.NoError(t, err)
		want = append(want, sub.Data...)
	}
	require.Equal(t, want, decodeFloat32(t, region))
}

func TestStore_DatasetBatches(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, riContainer(5, []int{1, 2, 2}))

	ds, err := zarr.NewDataset(ctx, zarr.Prefixed(s, "RI3D/0"))
	require.NoError(t, err)

	var shapes [][]int
	for {
		batch, err := ds.NextBatch(ctx, 2)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		shapes = append(shapes, batch.Shape().Dimensions)
	}
	require.Equal(t, [][]int{{2, 1, 2, 2}, {2, 1, 2, 2}, {1, 1, 2, 2}}, shapes)
}

func TestExport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := withFluorescence(riContainer(3, []int{3, 5, 4}), 1, 2, []int{1, 3, 3})
	s := newStore(t, c, store.WithChunkSize([4]int{1, 2, 3, 3}))

	for _, compression := range []string{store.CompressionNone, store.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			bucket := memblob.OpenBucket(nil)
			defer bucket.Close()

			report, err := store.Export(ctx, s, bucket, store.WithCompression(compression), store.WithPrefix("out.zarr"))
			require.NoError(t, err)
			require.Equal(t, s.Len(), report.Keys)
			require.Len(t, report.Digests, s.Len())

			src := zarr.NewBucketSource(bucket)
			zattrs, err := zarr.Prefixed(src, "out.zarr").Get(ctx, "RI3D/.zattrs")
			require.NoError(t, err)
			want, err := s.Get(ctx, "RI3D/.zattrs")
			require.NoError(t, err)
			require.Equal(t, want, zattrs)

			for _, group := range s.Groups() {
				reader, err := zarr.NewReader(ctx, zarr.Prefixed(src, "out.zarr/"+group+"/0"))
				require.NoError(t, err)
				if compression == store.CompressionZstd {
					require.NotNil(t, reader.Metadata().Compressor)
					require.Equal(t, "zstd", reader.Metadata().Compressor.ID)
				} else {
					require.Nil(t, reader.Metadata().Compressor)
				}
				raw, err := reader.ReadFull(ctx)
				require.NoError(t, err)
				require.Equal(t, framesOf(t, s, group), decodeFloat32(t, raw), group)
			}

			again := memblob.OpenBucket(nil)
			defer again.Close()
			second, err := store.Export(ctx, s, again, store.WithCompression(compression), store.WithWorkers(1))
			require.NoError(t, err)
			require.Equal(t, report.Digests, second.Digests)
			require.Equal(t, report.Digest(), second.Digest())
		})
	}
}

func TestExport_Groups(t *testing.T) {
	ctx := context.Background()
	c := withFluorescence(riContainer(1, []int{1, 2, 2}), 2, 1, []int{1, 2, 2})
	s := newStore(t, c)

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	report, err := store.Export(ctx, s, bucket, store.WithGroups("FL3D/CH1"))
	require.NoError(t, err)

	require.Contains(t, report.Digests, ".zgroup")
	require.Contains(t, report.Digests, "FL3D/CH1/0/.zarray")
	require.NotContains(t, report.Digests, "RI3D/.zgroup")
	require.NotContains(t, report.Digests, "FL3D/CH0/0/0.0.0.0")

	ok, err := bucket.Exists(ctx, "RI3D/0/.zarray")
	require.NoError(t, err)
	require.False(t, ok)

	raw, err := bucket.ReadAll(ctx, "FL3D/CH1/0/.zarray")
	require.NoError(t, err)
	var meta zarr.Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	require.Equal(t, []int{1, 1, 2, 2}, meta.Shape)
}

func TestExport_ParentGroup(t *testing.T) {
	ctx := context.Background()
	c := withFluorescence(riContainer(1, []int{1, 2, 2}), 2, 1, []int{1, 2, 2})
	s := newStore(t, c)

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	report, err := store.Export(ctx, s, bucket, store.WithGroups("FL3D"))
	require.NoError(t, err)

	require.Contains(t, report.Digests, "FL3D/CH0/0/.zarray")
	require.Contains(t, report.Digests, "FL3D/CH1/0/0.0.0.0")
	require.NotContains(t, report.Digests, "RI3D/0/.zarray")
	require.Equal(t, 2+2*(3+1), report.Keys)
}

func TestExport_UnknownGroup(t *testing.T) {
	s := newStore(t, riContainer(1, []int{1, 2, 2}))
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	for _, name := range []string{"FL3D", "RI", "RI3D/0"} {
		_, err := store.Export(context.Background(), s, bucket, store.WithGroups(name))
		require.ErrorIs(t, err, store.ErrKeyNotFound, name)
	}
	ok, err := bucket.Exists(context.Background(), ".zgroup")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExport_UnknownCompression(t *testing.T) {
	s := newStore(t, riContainer(1, []int{1, 1, 1}))
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	_, err := store.Export(context.Background(), s, bucket, store.WithCompression("lz4"))
	require.Error(t, err)
}
