// Package tcf reads time-series volumetric images from TCF containers.
//
// A TCF file is an HDF5 container with a top-level "Data" group holding one
// group per image series ("3D", "2DMIP", "BF", "3DFL"). Each series carries
// its geometry as attributes and stores one dataset per timepoint, named by
// the zero-padded frame index.
//
// The container is never held open: every accessor call opens the file,
// performs one lookup and closes it again, so independent readers can share
// a file without coordination.
package tcf

import "errors"

var (
	// ErrNotAContainer is returned when the file has no top-level Data group.
	ErrNotAContainer = errors.New("tcf: not a TCF container")

	// ErrUnsupportedSeries is returned when a series is absent from the
	// container or its name or dimensionality is not supported.
	ErrUnsupportedSeries = errors.New("tcf: unsupported series")

	// ErrIndexOutOfRange is returned for frame indices outside [-n, n).
	ErrIndexOutOfRange = errors.New("tcf: frame index out of range")

	// ErrTypeMismatch is returned when a frame index is not an integer.
	ErrTypeMismatch = errors.New("tcf: frame index must be an integer")

	// ErrMissingDataset is returned when a dataset path does not exist.
	ErrMissingDataset = errors.New("tcf: missing dataset")

	// ErrNotADataset is returned when a path names a group where a dataset
	// was expected.
	ErrNotADataset = errors.New("tcf: object is not a dataset")

	// ErrMissingAttribute is returned when a required attribute is absent.
	ErrMissingAttribute = errors.New("tcf: missing attribute")

	// ErrDeprecatedFormat marks frames recovered by tile reconstruction.
	// It is logged, never returned.
	ErrDeprecatedFormat = errors.New("tcf: deprecated tiled export")
)
