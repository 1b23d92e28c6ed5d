package tcf

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DataRoot is the top-level group every TCF container carries.
const DataRoot = "/Data"

// Series names understood by OpenSeries.
const (
	Series3D    = "3D"
	Series2DMIP = "2DMIP"
	SeriesBF    = "BF"
	Series3DFL  = "3DFL"
)

// Accessor resolves paths inside one container file. It holds no open
// handle: each call opens the file, does one lookup and closes it.
type Accessor struct {
	path string
	open Opener
}

// AccessorOption configures an Accessor.
type AccessorOption func(*Accessor)

// WithAccessorOpener replaces the HDF5 opener, e.g. with an in-memory
// container in tests.
func WithAccessorOpener(open Opener) AccessorOption {
	return func(a *Accessor) {
		if open != nil {
			a.open = open
		}
	}
}

// NewAccessor returns an Accessor for the container at path. The file is
// not touched until the first call.
func NewAccessor(path string, opts ...AccessorOption) *Accessor {
	a := &Accessor{path: path, open: OpenHDF5}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Path returns the container file path.
func (a *Accessor) Path() string {
	return a.path
}

func (a *Accessor) withHandle(fn func(h Handle) error) (err error) {
	h, err := a.open(a.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", a.path, cerr)
		}
	}()
	return fn(h)
}

// ReadAttribute returns attribute name of the object at objectPath, or def
// when the object has no such attribute.
func (a *Accessor) ReadAttribute(objectPath, name string, def any) (any, error) {
	var value any
	err := a.withHandle(func(h Handle) error {
		v, ok, err := h.Attr(objectPath, name)
		if err != nil {
			return err
		}
		if !ok {
			value = def
			return nil
		}
		value = v
		return nil
	})
	return value, err
}

// ReadDataset reads the whole dataset at objectPath.
func (a *Accessor) ReadDataset(objectPath string) (*Array, error) {
	var arr *Array
	err := a.withHandle(func(h Handle) error {
		var err error
		arr, err = h.Dataset(objectPath)
		return err
	})
	return arr, err
}

// Members lists the children of a group in ascending order.
func (a *Accessor) Members(groupPath string) ([]string, error) {
	var names []string
	err := a.withHandle(func(h Handle) error {
		m, err := h.Members(groupPath)
		if err != nil {
			return err
		}
		names = slices.Clone(m)
		return nil
	})
	slices.Sort(names)
	return names, err
}

// Exists reports whether objectPath names a group or dataset. Open
// failures report false.
func (a *Accessor) Exists(objectPath string) bool {
	found := false
	_ = a.withHandle(func(h Handle) error {
		found = h.Exists(objectPath)
		return nil
	})
	return found
}

// SeriesDims returns the spatial dimensionality of a series name.
func SeriesDims(name string) (int, error) {
	switch name {
	case Series3D, Series3DFL:
		return 3, nil
	case Series2DMIP, SeriesBF:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSeries, name)
}

// SeriesPath returns the group path of a series.
func SeriesPath(name string) string {
	return DataRoot + "/" + name
}

// OpenSeries reads the geometry attributes of series name.
func (a *Accessor) OpenSeries(name string) (*SeriesMetadata, error) {
	dims, err := SeriesDims(name)
	if err != nil {
		return nil, err
	}

	var meta *SeriesMetadata
	err = a.withHandle(func(h Handle) error {
		if !h.Exists(DataRoot) {
			return fmt.Errorf("%w: %s", ErrNotAContainer, a.path)
		}
		group := SeriesPath(name)
		if !h.Exists(group) {
			return fmt.Errorf("%w: %s has no %s", ErrUnsupportedSeries, a.path, group)
		}
		var err error
		meta, err = readSeries(h, group, dims)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// axes lists attribute suffixes in Z, Y, X order.
var axes = []string{"Z", "Y", "X"}

func readSeries(h Handle, group string, dims int) (*SeriesMetadata, error) {
	count, err := requireInt(h, group, "DataCount")
	if err != nil {
		return nil, err
	}

	meta := &SeriesMetadata{
		FrameCount: count,
		Dims:       dims,
		Shape:      make([]int, dims),
		Resolution: make([]float64, dims),
	}
	for i, axis := range axes[3-dims:] {
		if meta.Shape[i], err = requireInt(h, group, "Size"+axis); err != nil {
			return nil, err
		}
		if meta.Resolution[i], err = requireFloat(h, group, "Resolution"+axis); err != nil {
			return nil, err
		}
	}

	if v, ok, err := h.Attr(group, "FormatVersion"); err != nil {
		return nil, err
	} else if ok {
		meta.FormatVersion = attrString(v)
	}

	if count > 1 {
		if v, ok, err := h.Attr(group, "TimeInterval"); err != nil {
			return nil, err
		} else if ok {
			if meta.TimeInterval, err = attrFloat(v); err != nil {
				return nil, fmt.Errorf("%s@TimeInterval: %w", group, err)
			}
		}
	}
	return meta, nil
}

func requireInt(h Handle, path, name string) (int, error) {
	v, ok, err := h.Attr(path, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s@%s", ErrMissingAttribute, path, name)
	}
	n, err := attrInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s@%s: %w", path, name, err)
	}
	return n, nil
}

func requireFloat(h Handle, path, name string) (float64, error) {
	v, ok, err := h.Attr(path, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s@%s", ErrMissingAttribute, path, name)
	}
	f, err := attrFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s@%s: %w", path, name, err)
	}
	return f, nil
}

var errAttrType = errors.New("unexpected attribute type")

// scalar unwraps the 1-element arrays TCF writers use for scalars.
func scalar(v any) any {
	switch s := v.(type) {
	case []int64:
		if len(s) > 0 {
			return s[0]
		}
	case []uint64:
		if len(s) > 0 {
			return s[0]
		}
	case []int32:
		if len(s) > 0 {
			return s[0]
		}
	case []uint32:
		if len(s) > 0 {
			return s[0]
		}
	case []float64:
		if len(s) > 0 {
			return s[0]
		}
	case []float32:
		if len(s) > 0 {
			return s[0]
		}
	case []string:
		if len(s) > 0 {
			return s[0]
		}
	case []any:
		if len(s) > 0 {
			return s[0]
		}
	}
	return v
}

func attrInt(v any) (int, error) {
	switch n := scalar(v).(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint8:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w %T, want integer", errAttrType, v)
}

func attrFloat(v any) (float64, error) {
	switch n := scalar(v).(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w %T, want number", errAttrType, v)
}

func attrString(v any) string {
	switch s := scalar(v).(type) {
	case string:
		return strings.TrimRight(s, "\x00 ")
	case []byte:
		return strings.TrimRight(string(s), "\x00 ")
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
