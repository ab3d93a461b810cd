package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "Solo Leveling", CleanText("  Solo   Leveling \n"))
	require.Equal(t, "a b", CleanText("a\t\t b"))
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "Tower of God", FirstLine("Tower of God\nSIU\nUP"))
	require.Equal(t, "plain", FirstLine("plain"))
}

func TestParseGroupedInt(t *testing.T) {
	n, ok := ParseGroupedInt("1,234,567")
	require.True(t, ok)
	require.Equal(t, int64(1234567), n)

	_, ok = ParseGroupedInt("12,34")
	require.False(t, ok)
	_, ok = ParseGroupedInt("abc")
	require.False(t, ok)

	n, ok = ParseGroupedInt("999")
	require.True(t, ok)
	require.Equal(t, int64(999), n)
}

func TestCoerceInt(t *testing.T) {
	testCases := []struct {
		in       any
		expected int64
		ok       bool
	}{
		{float64(120), 120, true},
		{float64(120.0), 120, true},
		{"120", 120, true},
		{"120.0", 120, true},
		{"1,234", 1234, true},
		{"", 0, false},
		{"n/a", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tc := range testCases {
		n, ok := CoerceInt(tc.in)
		require.Equal(t, tc.ok, ok, "input %v", tc.in)
		if ok {
			require.Equal(t, tc.expected, n, "input %v", tc.in)
		}
	}
}

func TestCoerceString(t *testing.T) {
	require.Equal(t, "819217", CoerceString(float64(819217)))
	require.Equal(t, "foo", CoerceString("foo"))
	require.Equal(t, "", CoerceString([]any{}))
}
