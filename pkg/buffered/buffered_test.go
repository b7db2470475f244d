package buffered

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	q := New[string](4)
	require.Equal(t, uint64(4), q.Cap())
	require.True(t, q.Empty())

	_, ok := q.Pop()
	require.False(t, ok)

	require.True(t, q.Push("a"))
	require.True(t, q.Push("b"))
	require.Equal(t, uint64(2), q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "a", v)
}

func TestFullPushFails(t *testing.T) {
	q := New[int](2)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.False(t, q.Push(3), "push into a full buffer must not block")

	q.Pop()
	require.True(t, q.Push(3))
}

func TestZeroCapacityRaised(t *testing.T) {
	q := New[int](0)
	require.Equal(t, uint64(1), q.Cap())
	require.True(t, q.Push(1))
	require.False(t, q.Push(2))
}
