package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/TuSKan/tcfzarr/zarr"
)

const (
	zgroup = ".zgroup"
	zattrs = ".zattrs"
	zarray = ".zarray"

	// level is the only resolution level served.
	level = "0"
)

type keyKind int

const (
	kindRootGroup keyKind = iota
	kindRootAttrs
	kindGroup
	kindGroupAttrs
	kindArray
	kindChunk
)

type parsedKey struct {
	kind   keyKind
	group  string
	level  string
	coords []int
}

func (k parsedKey) metadata() bool {
	return k.kind != kindChunk
}

// parseKey splits a key into its parts. It only checks the grammar;
// whether the group, level or chunk exists is decided by the resolver.
func parseKey(key string) (parsedKey, error) {
	switch key {
	case zgroup:
		return parsedKey{kind: kindRootGroup}, nil
	case zattrs:
		return parsedKey{kind: kindRootAttrs}, nil
	}

	parts := strings.Split(key, "/")
	n := len(parts)
	if n < 2 || slices.Contains(parts, "") {
		return parsedKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	last := parts[n-1]
	switch {
	case last == zarray && n >= 3:
		return parsedKey{kind: kindArray, group: strings.Join(parts[:n-2], "/"), level: parts[n-2]}, nil
	case last == zgroup:
		return parsedKey{kind: kindGroup, group: strings.Join(parts[:n-1], "/")}, nil
	case last == zattrs:
		return parsedKey{kind: kindGroupAttrs, group: strings.Join(parts[:n-1], "/")}, nil
	case n >= 3 && strings.Contains(last, ".") && !strings.HasPrefix(last, ".z"):
		coords, err := zarr.ParseChunkKey(last, ".")
		if err != nil {
			return parsedKey{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, key, err)
		}
		return parsedKey{kind: kindChunk, group: strings.Join(parts[:n-2], "/"), level: parts[n-2], coords: coords}, nil
	}
	return parsedKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
}
