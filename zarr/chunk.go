package zarr

import (
	"fmt"
	"strconv"
	"strings"
)

// GridShape calculates the number of chunks in each dimension.
// For each dimension i, the number of chunks is ceil(shape[i] / chunks[i]).
func GridShape(shape, chunks []int) []int {
	if len(shape) == 0 || len(chunks) == 0 {
		return []int{} // 0D scalar
	}
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkExtent returns the start offset and clipped size of the chunk at
// coords. ok is false when coords fall outside the chunk grid.
func ChunkExtent(shape, chunks, coords []int) (start, size []int, ok bool) {
	if len(coords) != len(shape) || len(chunks) != len(shape) {
		return nil, nil, false
	}
	start = make([]int, len(shape))
	size = make([]int, len(shape))
	for i, c := range coords {
		if chunks[i] <= 0 || c < 0 || c >= (shape[i]+chunks[i]-1)/chunks[i] {
			return nil, nil, false
		}
		start[i] = c * chunks[i]
		size[i] = min(start[i]+chunks[i], shape[i]) - start[i]
	}
	return start, size, true
}

// ChunkKey generates the key for a chunk given its indices and a separator.
// For Zarr V2, the separator is typically ".".
// Example: indices=[1, 4], separator="." -> "1.4"
// For 0D arrays (empty indices), it returns "0" as Zarr v2 does.
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}

	if len(indices) == 1 {
		return strconv.Itoa(indices[0])
	}

	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// ParseChunkKey is the inverse of ChunkKey. Every component must be a
// non-negative decimal integer written the way ChunkKey writes it, so
// "00", "-0" and "+1" are rejected.
func ParseChunkKey(key, separator string) ([]int, error) {
	if key == "" {
		return nil, fmt.Errorf("empty chunk key")
	}
	parts := strings.Split(key, separator)
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strconv.Itoa(n) != p {
			return nil, fmt.Errorf("invalid chunk index %q in key %q", p, key)
		}
		indices[i] = n
	}
	return indices, nil
}

// Strides computes the C-order strides for a given shape.
func Strides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

// NumElements is the product of shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// CopyND copies an n-dimensional block of copyShape elements from src to
// dst. Offsets and strides are in elements.
func CopyND[T any](
	dst []T, dstStrides, dstOffset []int,
	src []T, srcStrides, srcOffset []int,
	copyShape []int,
) {
	if len(copyShape) == 0 {
		// 0D scalar array: exactly one element
		dst[0] = src[0]
		return
	}

	startSrcIdx := 0
	startDstIdx := 0
	for i := range copyShape {
		startSrcIdx += srcOffset[i] * srcStrides[i]
		startDstIdx += dstOffset[i] * dstStrides[i]
	}

	last := len(copyShape) - 1
	var iterate func(dim int, currentSrcIdx, currentDstIdx int)
	iterate = func(dim int, currentSrcIdx, currentDstIdx int) {
		if dim == last {
			n := copyShape[dim]
			// bulk copy for the innermost contiguous dimension
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				copy(dst[currentDstIdx:currentDstIdx+n], src[currentSrcIdx:currentSrcIdx+n])
				return
			}
			for i := 0; i < n; i++ {
				dst[currentDstIdx+i*dstStrides[dim]] = src[currentSrcIdx+i*srcStrides[dim]]
			}
			return
		}

		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, currentSrcIdx+i*srcStrides[dim], currentDstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, startSrcIdx, startDstIdx)
}

// byteStrides returns strides for a buffer of shape elements of itemSize
// bytes, with the item bytes as a trailing unit-stride axis.
func byteStrides(shape []int, itemSize int) []int {
	return Strides(append(append([]int{}, shape...), itemSize))
}
