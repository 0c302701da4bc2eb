package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStack_InvalidSize(test *testing.T) {
	for _, max := range []int{0, -1} {
		_, err := NewStack[string](max)
		assert.ErrorIs(test, err, ErrInvalidSize, "NewStack(%d)", max)
	}
}

func TestStack(test *testing.T) {
	s, err := NewStack[string](2)
	require.NoError(test, err)
	assert.Equal(test, 2, s.Cap())
	assert.Equal(test, []string{}, s.Tail(5))

	s.Push("1")
	assert.Equal(test, []string{"1"}, s.Tail(2))
	s.Push("2")
	s.Push("3")
	assert.Equal(test, 2, s.Len())

	cases := []struct {
		n        int
		expected []string
	}{
		{0, []string{}},
		{1, []string{"3"}},
		{2, []string{"2", "3"}},
		{-2, []string{"2", "3"}},
		{100, []string{"2", "3"}},
	}
	for _, c := range cases {
		assert.Equal(test, c.expected, s.Tail(c.n), "Tail(%d)", c.n)
	}
}

func TestStack_Wraparound(test *testing.T) {
	s, err := NewStack[int](3)
	require.NoError(test, err)
	for i := 1; i <= 10; i++ {
		s.Push(i)
	}
	assert.Equal(test, []int{8, 9, 10}, s.Tail(3))
	assert.Equal(test, []int{9, 10}, s.Tail(2))
}
