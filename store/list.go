package store

import (
	"iter"
	"slices"
	"strings"

	"github.com/TuSKan/tcfzarr/zarr"
)

// Keys yields every key Get serves: root metadata, then per group its
// metadata, array metadata and chunk keys in row-major grid order.
func (s *Store) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return
		}
		groups := slices.Clone(s.groups)
		layouts := make([]layout, len(groups))
		for i, g := range groups {
			layouts[i] = s.layoutOf(s.decoders[g])
		}
		s.mu.RUnlock()

		if !yield(zgroup) || !yield(zattrs) {
			return
		}
		for i, g := range groups {
			for _, k := range []string{g + "/" + zgroup, g + "/" + zattrs, g + "/" + level + "/" + zarray} {
				if !yield(k) {
					return
				}
			}
			prefix := g + "/" + level + "/"
			for coords := range gridCoords(zarr.GridShape(layouts[i].shape, layouts[i].chunks)) {
				if !yield(prefix + zarr.ChunkKey(coords, ".")) {
					return
				}
			}
		}
	}
}

// gridCoords walks a chunk grid in row-major order. The yielded slice is
// reused between iterations.
func gridCoords(grid []int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		for _, g := range grid {
			if g == 0 {
				return
			}
		}
		coords := make([]int, len(grid))
		for {
			if !yield(coords) {
				return
			}
			d := len(grid) - 1
			for d >= 0 {
				coords[d]++
				if coords[d] < grid[d] {
					break
				}
				coords[d] = 0
				d--
			}
			if d < 0 {
				return
			}
		}
	}
}

// List returns all keys.
func (s *Store) List() []string {
	return slices.Collect(s.Keys())
}

// ListPrefix yields the keys starting with prefix.
func (s *Store) ListPrefix(prefix string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range s.Keys() {
			if strings.HasPrefix(k, prefix) && !yield(k) {
				return
			}
		}
	}
}

// ListDir returns the direct children of prefix, files and
// sub-directories alike, in first-seen order.
func (s *Store) ListDir(prefix string) []string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	seen := map[string]bool{}
	var children []string
	for k := range s.ListPrefix(prefix) {
		child, _, _ := strings.Cut(strings.TrimPrefix(k, prefix), "/")
		if child != "" && !seen[child] {
			seen[child] = true
			children = append(children, child)
		}
	}
	return children
}

// Len returns the number of keys without enumerating them.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	n := 2
	for _, g := range s.groups {
		l := s.layoutOf(s.decoders[g])
		n += 3 + zarr.NumElements(zarr.GridShape(l.shape, l.chunks))
	}
	return n
}
