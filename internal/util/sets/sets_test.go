package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_AddHas(t *testing.T) {
	s := New("a", "b")
	s.Add("c", "a")
	require.Len(t, s, 3)
	require.True(t, s.Has("c"))
	require.False(t, s.Has("d"))
}

func TestSet_UnionLeavesOperandsUntouched(t *testing.T) {
	left := New("cargo", "rustc")
	right := New("rustc", "wasm-tools")

	u := left.Union(right)
	require.Equal(t, []string{"cargo", "rustc", "wasm-tools"}, Sorted(u))
	require.Len(t, left, 2)
	require.Len(t, right, 2)
}

func TestSorted_Empty(t *testing.T) {
	require.Empty(t, Sorted(New[string]()))
}
