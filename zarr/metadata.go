package zarr

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// CompressorConfig is the "compressor" entry of .zarray. Readers only
// look at the codec id.
type CompressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// Metadata represents the Zarr V2 .zarray metadata.
type Metadata struct {
	ZarrFormat int               `json:"zarr_format"`
	Shape      []int             `json:"shape"`
	Chunks     []int             `json:"chunks"`
	DType      string            `json:"dtype"`
	Compressor *CompressorConfig `json:"compressor"`
	FillValue  any               `json:"fill_value"`
	Order      string            `json:"order"`
	Filters    []any             `json:"filters"`
}

// GroupMetadata is the .zgroup document.
type GroupMetadata struct {
	ZarrFormat int `json:"zarr_format"`
}

// Axis describes one dimension of an OME-NGFF image.
type Axis struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Unit string `json:"unit"`
}

// Transform is a coordinate transformation attached to a multiscale level.
type Transform struct {
	Type  string    `json:"type"`
	Scale []float64 `json:"scale"`
}

// DatasetRef points at one resolution level of a multiscale image.
type DatasetRef struct {
	Path                      string      `json:"path"`
	CoordinateTransformations []Transform `json:"coordinateTransformations"`
}

// Multiscales is one entry of the OME-NGFF v0.4 "multiscales" list.
type Multiscales struct {
	Version  string       `json:"version"`
	Axes     []Axis       `json:"axes"`
	Datasets []DatasetRef `json:"datasets"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
}

// GroupAttributes is the .zattrs document of an image group.
type GroupAttributes struct {
	Multiscales []Multiscales `json:"multiscales"`
}

// LoadMetadata reads and parses a .zarray document.
func LoadMetadata(reader io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(reader).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("unsupported zarr_format: %d, expected 2", meta.ZarrFormat)
	}
	if len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("shape rank %d does not match chunks rank %d", len(meta.Shape), len(meta.Chunks))
	}

	return &meta, nil
}

var dtypeKinds = map[byte]string{
	'b': "bool",
	'i': "int",
	'u': "uint",
	'f': "float",
	'c': "complex",
}

// ParseDType splits a little-endian or byte-order-free dtype such as
// "<f4" or "|u1" into a Go-style type name ("float32", "uint8") and its
// item size in bytes.
func ParseDType(s string) (string, int, error) {
	if len(s) < 3 || (s[0] != '<' && s[0] != '|' && s[0] != '>') {
		return "", 0, fmt.Errorf("invalid dtype: %q", s)
	}
	if s[0] == '>' {
		return "", 0, fmt.Errorf("big-endian dtype %q is not supported", s)
	}
	name, ok := dtypeKinds[s[1]]
	if !ok {
		return "", 0, fmt.Errorf("unsupported dtype kind %q in %q", s[1], s)
	}
	size, err := strconv.Atoi(s[2:])
	if err != nil || size <= 0 {
		return "", 0, fmt.Errorf("invalid item size in dtype %q", s)
	}
	if name == "bool" {
		return name, size, nil
	}
	return name + strconv.Itoa(size*8), size, nil
}
