package store

import (
	"errors"
	"fmt"

	"github.com/TuSKan/tcfzarr/zarr"
)

var (
	// ErrMalformedKey is returned for keys outside the store's key grammar.
	ErrMalformedKey = errors.New("store: malformed key")

	// ErrKeyNotFound is returned for well-formed keys that name nothing:
	// an unknown group, an array level other than "0", or a chunk outside
	// the grid. It matches zarr.ErrNotFound.
	ErrKeyNotFound = fmt.Errorf("store: %w", zarr.ErrNotFound)

	// ErrPermissionDenied is returned by every write or delete.
	ErrPermissionDenied = errors.New("store: read-only")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)
