package tcf

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// SeriesMetadata describes one image series. Shape and Resolution are in
// Z, Y, X order (Y, X for 2D series); Resolution is in micrometres per
// pixel and TimeInterval in seconds.
type SeriesMetadata struct {
	FormatVersion string
	FrameCount    int
	Shape         []int
	Resolution    []float64
	TimeInterval  float64
	Dims          int
}

// VoxelVolume returns the physical volume of one voxel (µm^Dims).
func (m *SeriesMetadata) VoxelVolume() float64 {
	v := 1.0
	for _, r := range m.Resolution {
		v *= r
	}
	return v
}

// FrameSize returns the number of samples in one frame.
func (m *SeriesMetadata) FrameSize() int {
	n := 1
	for _, s := range m.Shape {
		n *= s
	}
	return n
}

func (m *SeriesMetadata) clone() *SeriesMetadata {
	c := *m
	c.Shape = slices.Clone(m.Shape)
	c.Resolution = slices.Clone(m.Resolution)
	return &c
}

// compareVersion orders dotted numeric versions component by component.
// Missing components count as zero. Each component is read from its first
// run of digits, so "v1.4" and "1.4b" compare like "1.4".
func compareVersion(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(pa), len(pb)) {
		var x, y int
		if i < len(pa) {
			x = versionPart(pa[i])
		}
		if i < len(pb) {
			y = versionPart(pb[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionPart(s string) int {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	s = s[start:]
	if end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }); end >= 0 {
		s = s[:end]
	}
	n, _ := strconv.Atoi(s)
	return n
}
