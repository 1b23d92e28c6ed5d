package tcf

import (
	"fmt"
	"strconv"
	"strings"
)

// normalizeIndex maps i in [-n, n) onto [0, n).
func normalizeIndex(i, n int) (int, error) {
	if i < -n || i >= n {
		return 0, fmt.Errorf("%w: %d not in [%d, %d)", ErrIndexOutOfRange, i, -n, n)
	}
	if i < 0 {
		i += n
	}
	return i, nil
}

// indexOf converts v to an int when it has an integer kind.
func indexOf(v any) (int, error) {
	switch i := v.(type) {
	case int:
		return i, nil
	case int8:
		return int(i), nil
	case int16:
		return int(i), nil
	case int32:
		return int(i), nil
	case int64:
		return int(i), nil
	case uint:
		return int(i), nil
	case uint8:
		return int(i), nil
	case uint16:
		return int(i), nil
	case uint32:
		return int(i), nil
	case uint64:
		return int(i), nil
	}
	return 0, fmt.Errorf("%w, not %T", ErrTypeMismatch, v)
}

// ParseIndex parses a decimal frame index such as "3" or "-1".
func ParseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrTypeMismatch, s)
	}
	return i, nil
}

// FramePath returns the dataset path of frame index under group.
func FramePath(group string, index int) string {
	return fmt.Sprintf("%s/%06d", group, index)
}
