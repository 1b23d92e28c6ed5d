package zarr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Dataset reads a Zarr array in batches along its first axis, e.g. one
// batch of timepoints at a time from a TZYX image.
type Dataset struct {
	reader       *Reader
	CurrentIndex int
}

// NewDataset opens the array served by src.
func NewDataset(ctx context.Context, src Source) (*Dataset, error) {
	reader, err := NewReader(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(reader.meta.Shape) == 0 {
		return nil, fmt.Errorf("cannot batch a 0D array")
	}
	return &Dataset{reader: reader}, nil
}

// Metadata returns the array metadata.
func (d *Dataset) Metadata() *Metadata {
	return d.reader.meta
}

// NextBatch reads the next batch of size batchSize.
// Returns io.EOF if there is no more data.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	meta := d.reader.meta
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if d.CurrentIndex >= meta.Shape[0] {
		return nil, io.EOF
	}

	start := d.CurrentIndex
	end := min(start+batchSize, meta.Shape[0])

	// Batch shape: [end-start, Shape[1], Shape[2]...]
	batchShape := make([]int, len(meta.Shape))
	batchShape[0] = end - start
	copy(batchShape[1:], meta.Shape[1:])

	regionStart := make([]int, len(meta.Shape))
	regionStart[0] = start
	raw, err := d.reader.ReadRegion(ctx, regionStart, batchShape)
	if err != nil {
		return nil, err
	}

	n := NumElements(batchShape)
	var t *tensors.Tensor
	switch meta.DType {
	case "<f4":
		data := make([]float32, n)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "<f8":
		data := make([]float64, n)
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "<i4":
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	case "<i8":
		data := make([]int64, n)
		for i := range data {
			data[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		t = tensors.FromFlatDataAndDimensions(data, batchShape...)
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", meta.DType)
	}

	d.CurrentIndex = end
	return t, nil
}
