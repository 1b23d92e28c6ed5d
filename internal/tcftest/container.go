// Package tcftest builds in-memory TCF containers for tests.
package tcftest

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/TuSKan/tcfzarr/tcf"
)

// ErrNotFound is returned for paths that name no object.
var ErrNotFound = errors.New("tcftest: object not found")

// ErrClosed is returned when a handle is used after Close.
var ErrClosed = errors.New("tcftest: handle closed")

type object struct {
	group bool
	attrs map[string]any
	array *tcf.Array
}

// Container is a mutable tree of groups and datasets. Build it first,
// then hand Opener to the code under test.
type Container struct {
	mu      sync.Mutex
	objects map[string]*object
	opened  int
	live    int
}

// New returns a container holding only the root group.
func New() *Container {
	return &Container{
		objects: map[string]*object{"/": {group: true, attrs: map[string]any{}}},
	}
}

func clean(p string) string {
	return path.Clean("/" + p)
}

func (c *Container) ensureGroup(p string) *object {
	p = clean(p)
	if obj, ok := c.objects[p]; ok {
		return obj
	}
	if p != "/" {
		c.ensureGroup(path.Dir(p))
	}
	obj := &object{group: true, attrs: map[string]any{}}
	c.objects[p] = obj
	return obj
}

// Group creates the group at p and its parents, and sets attrs on it.
func (c *Container) Group(p string, attrs map[string]any) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj := c.ensureGroup(p)
	for k, v := range attrs {
		obj.attrs[k] = v
	}
	return c
}

// Dataset stores an integer-typed dataset at p.
func (c *Container) Dataset(p string, shape []int, values []float64, attrs map[string]any) *Container {
	return c.put(p, &tcf.Array{Shape: slices.Clone(shape), Values: slices.Clone(values)}, attrs)
}

// FloatDataset stores a floating-point dataset at p.
func (c *Container) FloatDataset(p string, shape []int, values []float64, attrs map[string]any) *Container {
	return c.put(p, &tcf.Array{Shape: slices.Clone(shape), Float: true, Values: slices.Clone(values)}, attrs)
}

func (c *Container) put(p string, arr *tcf.Array, attrs map[string]any) *Container {
	n := 1
	for _, s := range arr.Shape {
		n *= s
	}
	if n != len(arr.Values) {
		panic(fmt.Sprintf("tcftest: dataset %s has %d values for shape %v", p, len(arr.Values), arr.Shape))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p = clean(p)
	c.ensureGroup(path.Dir(p))
	obj := &object{attrs: map[string]any{}, array: arr}
	for k, v := range attrs {
		obj.attrs[k] = v
	}
	c.objects[p] = obj
	return c
}

// SetAttr sets one attribute on an existing object.
func (c *Container) SetAttr(p, name string, value any) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[clean(p)]
	if !ok {
		panic("tcftest: no object at " + p)
	}
	obj.attrs[name] = value
	return c
}

// Opens returns how many handles have been opened.
func (c *Container) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// Live returns how many handles are open right now.
func (c *Container) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Opener returns a tcf.Opener serving this container for any path.
func (c *Container) Opener() tcf.Opener {
	return func(string) (tcf.Handle, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.opened++
		c.live++
		return &handle{c: c}, nil
	}
}

type handle struct {
	c      *Container
	closed bool
}

func (h *handle) lookup(p string) (*object, error) {
	if h.closed {
		return nil, ErrClosed
	}
	obj, ok := h.c.objects[clean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return obj, nil
}

func (h *handle) Attr(p, name string) (any, bool, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	obj, err := h.lookup(p)
	if err != nil {
		return nil, false, err
	}
	v, ok := obj.attrs[name]
	return v, ok, nil
}

func (h *handle) Dataset(p string) (*tcf.Array, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	obj, err := h.lookup(p)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", tcf.ErrMissingDataset, p)
	}
	if err != nil {
		return nil, err
	}
	if obj.group {
		return nil, fmt.Errorf("%w: %s", tcf.ErrNotADataset, p)
	}
	arr := *obj.array
	arr.Shape = slices.Clone(arr.Shape)
	arr.Values = slices.Clone(arr.Values)
	return &arr, nil
}

func (h *handle) Members(p string) ([]string, error) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	obj, err := h.lookup(p)
	if err != nil {
		return nil, err
	}
	if !obj.group {
		return nil, fmt.Errorf("tcftest: %s is not a group", p)
	}
	prefix := clean(p)
	if prefix != "/" {
		prefix += "/"
	}
	var names []string
	for k := range h.c.objects {
		if k == "/" || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	// map order, like an HDF5 link table that is not creation-ordered
	return names, nil
}

func (h *handle) Exists(p string) bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	_, err := h.lookup(p)
	return err == nil
}

func (h *handle) Close() error {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	h.c.live--
	return nil
}
