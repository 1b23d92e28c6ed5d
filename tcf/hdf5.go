package tcf

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// OpenHDF5 is the production Opener.
func OpenHDF5(path string) (Handle, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAContainer, path, err)
	}
	return &hdf5Handle{f: f}, nil
}

type hdf5Handle struct {
	f *hdf5.File
}

type attrHolder interface {
	Attr(name string) *hdf5.Attribute
}

func (h *hdf5Handle) holder(path string) (attrHolder, error) {
	path = hdf5.CleanPath(path)
	if path == "/" {
		return h.f.Root(), nil
	}
	if g, err := h.f.OpenGroup(path); err == nil {
		return g, nil
	}
	ds, err := h.f.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return ds, nil
}

func (h *hdf5Handle) Attr(path, name string) (any, bool, error) {
	obj, err := h.holder(path)
	if err != nil {
		return nil, false, err
	}
	attr := obj.Attr(name)
	if attr == nil {
		return nil, false, nil
	}
	v, err := attr.Value()
	if err != nil {
		return nil, false, fmt.Errorf("reading attribute %s@%s: %w", path, name, err)
	}
	return v, true, nil
}

func (h *hdf5Handle) Dataset(path string) (*Array, error) {
	ds, err := h.f.OpenDataset(hdf5.CleanPath(path))
	if err != nil {
		switch {
		case errors.Is(err, hdf5.ErrNotDataset):
			return nil, fmt.Errorf("%w: %s", ErrNotADataset, path)
		case errors.Is(err, hdf5.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrMissingDataset, path)
		}
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}

	typ, err := ds.GoType()
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	values, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	dims := ds.Shape()
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	kind := typ.Kind()
	return &Array{
		Shape:  shape,
		Float:  kind == reflect.Float32 || kind == reflect.Float64,
		Values: values,
	}, nil
}

func (h *hdf5Handle) Members(path string) ([]string, error) {
	path = hdf5.CleanPath(path)
	g := h.f.Root()
	if path != "/" {
		var err error
		if g, err = h.f.OpenGroup(path); err != nil {
			return nil, fmt.Errorf("opening group %s: %w", path, err)
		}
	}
	return g.Members()
}

func (h *hdf5Handle) Exists(path string) bool {
	_, err := h.holder(path)
	return err == nil
}

func (h *hdf5Handle) Close() error {
	return h.f.Close()
}
