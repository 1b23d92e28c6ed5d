package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		key  string
		want parsedKey
	}{
		{".zgroup", parsedKey{kind: kindRootGroup}},
		{".zattrs", parsedKey{kind: kindRootAttrs}},
		{"RI3D/.zgroup", parsedKey{kind: kindGroup, group: "RI3D"}},
		{"FL3D/CH1/.zattrs", parsedKey{kind: kindGroupAttrs, group: "FL3D/CH1"}},
		{"RI3D/0/.zarray", parsedKey{kind: kindArray, group: "RI3D", level: "0"}},
		{"RI3D/1/.zarray", parsedKey{kind: kindArray, group: "RI3D", level: "1"}},
		{"FL3D/CH0/0/2.0.1.3", parsedKey{kind: kindChunk, group: "FL3D/CH0", level: "0", coords: []int{2, 0, 1, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := parseKey(tt.key)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseKey_Malformed(t *testing.T) {
	for _, key := range []string{
		"",
		"foo",
		".zarray",
		"RI3D/.zarray",
		"RI3D/0/x.y.z.w",
		"RI3D/0/0.-1.0.0",
		"RI3D/0/1.5e2",
		"RI3D/0/0",
		"RI3D//0/0.0.0.0",
		"/RI3D/.zgroup",
		"RI3D/0/data",
		"RI3D/0/00.0.0.0",
		"RI3D/0/0.0.0.-0",
	} {
		_, err := parseKey(key)
		require.ErrorIs(t, err, ErrMalformedKey, "key %q", key)
	}
}

func TestGridCoords(t *testing.T) {
	var got [][]int
	for c := range gridCoords([]int{2, 1, 3}) {
		got = append(got, append([]int(nil), c...))
	}
	require.Equal(t, [][]int{
		{0, 0, 0}, {0, 0, 1}, {0, 0, 2},
		{1, 0, 0}, {1, 0, 1}, {1, 0, 2},
	}, got)

	for range gridCoords([]int{3, 0}) {
		t.Fatal("empty grid yields nothing")
	}
}
