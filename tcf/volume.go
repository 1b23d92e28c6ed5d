package tcf

import "fmt"

// Volume is one decoded frame, stored row-major.
type Volume struct {
	Shape []int
	Data  []float32
}

func newVolume(shape []int) *Volume {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Volume{Shape: append([]int(nil), shape...), Data: make([]float32, n)}
}

// Len returns the number of samples.
func (v *Volume) Len() int {
	return len(v.Data)
}

// Strides returns the element stride of each axis.
func (v *Volume) Strides() []int {
	return rowMajorStrides(v.Shape)
}

// At returns the sample at the given coordinates. It panics when the
// coordinates do not match the volume's rank or bounds.
func (v *Volume) At(coords ...int) float32 {
	if len(coords) != len(v.Shape) {
		panic(fmt.Sprintf("tcf: %d coordinates for a %d-D volume", len(coords), len(v.Shape)))
	}
	off := 0
	for i, s := range v.Strides() {
		if coords[i] < 0 || coords[i] >= v.Shape[i] {
			panic(fmt.Sprintf("tcf: coordinate %d out of range on axis %d", coords[i], i))
		}
		off += coords[i] * s
	}
	return v.Data[off]
}

// Region copies the box starting at start with the given size into a new
// volume.
func (v *Volume) Region(start, size []int) (*Volume, error) {
	if len(start) != len(v.Shape) || len(size) != len(v.Shape) {
		return nil, fmt.Errorf("region rank %d/%d does not match volume rank %d", len(start), len(size), len(v.Shape))
	}
	for i := range v.Shape {
		if start[i] < 0 || size[i] < 0 || start[i]+size[i] > v.Shape[i] {
			return nil, fmt.Errorf("region [%d,+%d) out of bounds on axis %d (size %d)", start[i], size[i], i, v.Shape[i])
		}
	}
	out := newVolume(size)
	if out.Len() == 0 {
		return out, nil
	}
	v.CopyRegion(out.Data, start, size)
	return out, nil
}

// CopyRegion writes the box [start, start+size) into dst in row-major
// order. Bounds are the caller's responsibility.
func (v *Volume) CopyRegion(dst []float32, start, size []int) {
	src := v.Strides()
	rank := len(v.Shape)
	if rank == 0 {
		copy(dst, v.Data)
		return
	}
	row := size[rank-1]
	idx := make([]int, rank-1)
	pos := 0
	for {
		off := start[rank-1]
		for i, c := range idx {
			off += (start[i] + c) * src[i]
		}
		copy(dst[pos:pos+row], v.Data[off:off+row])
		pos += row

		d := rank - 2
		for d >= 0 {
			idx[d]++
			if idx[d] < size[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			return
		}
	}
}
