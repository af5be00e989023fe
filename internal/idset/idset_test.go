package idset_test

import (
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/rise-and-shine/statebus/internal/idset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listener struct{ name string }

type holder struct{ v any }

func TestSetAddRemove(t *testing.T) {
	var s idset.Set[any]
	a, b := &listener{"a"}, &listener{"b"}

	added, err := s.Add(a)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(a)
	require.NoError(t, err)
	assert.False(t, added, "second add is a no-op")

	_, err = s.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []any{a, b}, s.Snapshot())
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.False(t, s.Contains(a))
	assert.True(t, s.Contains(b))

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Remove(b))
}

func TestSetRejectsIncomparable(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{name: "func", v: func() {}},
		{name: "slice", v: []int{1}},
		{name: "struct with func in interface field", v: holder{v: func() {}}},
		{name: "nil", v: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var s idset.Set[any]
			_, err := s.Add(tc.v)
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, failure.CodeIncomparable))
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	var s idset.Set[*listener]
	a := &listener{"a"}
	_, _ = s.Add(a)

	snap := s.Snapshot()
	s.Remove(a)

	assert.Len(t, snap, 1)
	assert.Equal(t, 0, s.Len())
}
