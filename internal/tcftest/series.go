package tcftest

import (
	"fmt"
)

// Series describes the attributes of one image series. Shape and
// Resolution are in Z, Y, X order.
type Series struct {
	FrameCount    int
	Shape         []int
	Resolution    []float64
	TimeInterval  float64
	FormatVersion string
	Channels      int
}

var axes = []string{"Z", "Y", "X"}

// AddSeries creates Data/<name> with the attributes of s, each stored as
// a 1-element array the way TCF writers do.
func (c *Container) AddSeries(name string, s Series) *Container {
	attrs := map[string]any{
		"DataCount":    []int64{int64(s.FrameCount)},
		"TimeInterval": []float64{s.TimeInterval},
	}
	for i, axis := range axes[3-len(s.Shape):] {
		attrs["Size"+axis] = []int64{int64(s.Shape[i])}
		attrs["Resolution"+axis] = []float64{s.Resolution[i]}
	}
	if s.FormatVersion != "" {
		attrs["FormatVersion"] = []string{s.FormatVersion}
	}
	if s.Channels > 0 {
		attrs["Channels"] = []int64{int64(s.Channels)}
	}
	return c.Group("/Data/"+name, attrs)
}

// AddFrame stores an integer frame dataset under group.
func (c *Container) AddFrame(group string, index int, shape []int, values []float64) *Container {
	return c.Dataset(fmt.Sprintf("%s/%06d", group, index), shape, values, nil)
}

// Tile describes one tile record of a tiled frame.
type Tile struct {
	SamplingStep int
	Offset       []int // Z, Y, X
	Last         []int // Z, Y, X, inclusive
	Shape        []int
	Values       []float64
}

// AddTile stores tile under the frame group at frame.
func (c *Container) AddTile(frame, name string, t Tile) *Container {
	attrs := map[string]any{"SamplingStep": []int64{int64(t.SamplingStep)}}
	for i, axis := range axes[3-len(t.Offset):] {
		attrs["DataIndexOffsetPoint"+axis] = []int64{int64(t.Offset[i])}
		attrs["DataIndexLastPoint"+axis] = []int64{int64(t.Last[i])}
	}
	c.Group(frame, nil)
	return c.Dataset(frame+"/"+name, t.Shape, t.Values, attrs)
}

// Ramp returns n values start, start+step, start+2*step, ...
func Ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
