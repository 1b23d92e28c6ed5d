package tcf

// Handle is an open, read-only view of a container. Object paths are
// absolute, "/" being the root group.
type Handle interface {
	// Attr returns the value of attribute name on the object at path.
	// ok is false when the object exists but has no such attribute.
	Attr(path, name string) (value any, ok bool, err error)

	// Dataset reads the whole dataset at path.
	Dataset(path string) (*Array, error)

	// Members lists the children of the group at path.
	Members(path string) ([]string, error)

	// Exists reports whether a group or dataset lives at path.
	Exists(path string) bool

	Close() error
}

// Opener opens a container file for one operation.
type Opener func(path string) (Handle, error)

// Array is a dataset read into memory in row-major order.
type Array struct {
	Shape []int
	// Float is true when the stored element type is floating point.
	Float  bool
	Values []float64
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.Values)
}
