package tcf

import (
	"fmt"
	"slices"
)

// ScalarType values of tiled frames.
const scalarNarrow = 1

type tile struct {
	name   string
	offset []int
	last   []int
	data   *Array
}

// reconstruct rebuilds frame index from the tiles stored under its group.
// Tiles are summed into the canvas, so overlapping seams add up.
func (d *Decoder) reconstruct(index int) (*Volume, error) {
	frame := FramePath(d.frames, index)
	d.warnOnce.Do(func() {
		d.logger.Warn("tcf: frame stored as tiles, reconstructing",
			"file", d.acc.Path(), "series", d.series, "frame", index, "error", ErrDeprecatedFormat)
	})

	var vol *Volume
	err := d.acc.withHandle(func(h Handle) error {
		scalarType, err := attrWithFallback(h, frame, d.group, "ScalarType", int64(0))
		if err != nil {
			return err
		}
		narrow, err := attrInt(scalarType)
		if err != nil {
			return fmt.Errorf("%s@ScalarType: %w", frame, err)
		}
		riMinAttr, err := attrWithFallback(h, frame, d.group, "RIMin", float64(0))
		if err != nil {
			return err
		}
		riMin, err := attrFloat(riMinAttr)
		if err != nil {
			return fmt.Errorf("%s@RIMin: %w", frame, err)
		}

		tiles, err := d.readTiles(h, frame)
		if err != nil {
			return err
		}
		if narrow == scalarNarrow {
			canvas := make([]uint8, d.meta.FrameSize())
			if err := accumulateTiles(canvas, d.meta.Shape, tiles); err != nil {
				return err
			}
			vol = calibrate(canvas, d.meta.Shape, func(v uint8) float32 {
				return float32(v)/narrowFactor + float32(riMin)
			})
			return nil
		}
		canvas := make([]uint16, d.meta.FrameSize())
		if err := accumulateTiles(canvas, d.meta.Shape, tiles); err != nil {
			return err
		}
		vol = calibrate(canvas, d.meta.Shape, func(v uint16) float32 {
			return float32(v) / scaleFactor
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct frame %d from tiles: %w", index, err)
	}
	return vol, nil
}

func attrWithFallback(h Handle, primary, secondary, name string, def any) (any, error) {
	for _, p := range []string{primary, secondary} {
		v, ok, err := h.Attr(p, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return def, nil
}

// readTiles loads the valid tiles of a frame group in name order.
func (d *Decoder) readTiles(h Handle, frame string) ([]tile, error) {
	names, err := h.Members(frame)
	if err != nil {
		return nil, err
	}
	names = slices.Clone(names)
	slices.Sort(names)

	if v, ok, err := h.Attr(frame, "NumberOfTiles"); err == nil && ok {
		if n, err := attrInt(v); err == nil && n != len(names) {
			d.logger.Warn("tcf: tile count mismatch", "frame", frame, "declared", n, "found", len(names))
		}
	}

	dims := d.meta.Dims
	tiles := make([]tile, 0, len(names))
	for _, name := range names {
		path := frame + "/" + name
		step, err := requireInt(h, path, "SamplingStep")
		if err != nil {
			return nil, err
		}
		if step != 1 {
			d.logger.Debug("tcf: skipping subsampled tile", "tile", path, "sampling_step", step)
			continue
		}
		t := tile{name: path, offset: make([]int, dims), last: make([]int, dims)}
		for i, axis := range axes[3-dims:] {
			if t.offset[i], err = requireInt(h, path, "DataIndexOffsetPoint"+axis); err != nil {
				return nil, err
			}
			if t.last[i], err = requireInt(h, path, "DataIndexLastPoint"+axis); err != nil {
				return nil, err
			}
		}
		if t.data, err = h.Dataset(path); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

func accumulateTiles[T uint8 | uint16](canvas []T, shape []int, tiles []tile) error {
	for _, t := range tiles {
		if err := accumulate(canvas, shape, t); err != nil {
			return err
		}
	}
	return nil
}

// accumulate adds the source region [0, last-offset+1) of t into the
// canvas box [offset, last]. Sums wrap at the width of T.
func accumulate[T uint8 | uint16](canvas []T, shape []int, t tile) error {
	rank := len(shape)
	if len(t.data.Shape) != rank {
		return fmt.Errorf("tile %s has rank %d, want %d", t.name, len(t.data.Shape), rank)
	}
	size := make([]int, rank)
	for i := range rank {
		size[i] = t.last[i] - t.offset[i] + 1
		if t.offset[i] < 0 || size[i] <= 0 || t.last[i] >= shape[i] {
			return fmt.Errorf("tile %s box [%d, %d] outside axis %d of size %d", t.name, t.offset[i], t.last[i], i, shape[i])
		}
		if size[i] > t.data.Shape[i] {
			return fmt.Errorf("tile %s holds %d samples on axis %d, box needs %d", t.name, t.data.Shape[i], i, size[i])
		}
	}

	dstStrides := rowMajorStrides(shape)
	srcStrides := rowMajorStrides(t.data.Shape)
	idx := make([]int, rank)
	for {
		dst, src := 0, 0
		for i, c := range idx {
			dst += (t.offset[i] + c) * dstStrides[i]
			src += c * srcStrides[i]
		}
		canvas[dst] += T(int64(t.data.Values[src]))

		d := rank - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < size[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			return nil
		}
	}
}

func calibrate[T uint8 | uint16](canvas []T, shape []int, conv func(T) float32) *Volume {
	vol := newVolume(shape)
	for i, v := range canvas {
		vol.Data[i] = conv(v)
	}
	return vol
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}
