package store

import (
	"encoding/json"
	"fmt"

	"github.com/TuSKan/tcfzarr/zarr"
)

const (
	zarrFormat  = 2
	ngffVersion = "0.4"
	dtype       = "<f4"
)

var axes = []zarr.Axis{
	{Name: "t", Type: "time", Unit: "second"},
	{Name: "z", Type: "space", Unit: "micrometer"},
	{Name: "y", Type: "space", Unit: "micrometer"},
	{Name: "x", Type: "space", Unit: "micrometer"},
}

func (s *Store) render(r *resolved) ([]byte, error) {
	var doc any
	switch r.key.kind {
	case kindRootGroup, kindGroup:
		doc = zarr.GroupMetadata{ZarrFormat: zarrFormat}
	case kindRootAttrs:
		doc = struct{}{}
	case kindGroupAttrs:
		doc = groupAttributes(r)
	case kindArray:
		doc = zarr.Metadata{
			ZarrFormat: zarrFormat,
			Shape:      r.layout.shape,
			Chunks:     r.layout.chunks,
			DType:      dtype,
			FillValue:  0.0,
			Order:      "C",
		}
	default:
		return nil, fmt.Errorf("no metadata for key kind %d", r.key.kind)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return b, nil
}

// groupAttributes builds the multiscales block of a group. A series with
// no time step gets a time scale of 1.
func groupAttributes(r *resolved) zarr.GroupAttributes {
	dt := r.dec.TimeStep()
	if dt <= 0 {
		dt = 1
	}
	scale := append([]float64{dt}, r.dec.Resolution()...)
	return zarr.GroupAttributes{
		Multiscales: []zarr.Multiscales{{
			Version: ngffVersion,
			Axes:    axes,
			Datasets: []zarr.DatasetRef{{
				Path:                      level,
				CoordinateTransformations: []zarr.Transform{{Type: "scale", Scale: scale}},
			}},
			Name: r.key.group,
			Type: "none",
		}},
	}
}
