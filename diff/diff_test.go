package diff_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/diff"
	"github.com/stretchr/testify/require"
)

func TestDiff_Identity(t *testing.T) {
	t.Parallel()
	lines := []string{"one", "two", "three"}
	steps := diff.Diff(lines, lines)
	for _, s := range steps {
		require.Equal(t, diff.Same, s.Kind)
	}
	require.Len(t, steps, 3)
}

func TestDiff_ApplyReconstructsB(t *testing.T) {
	t.Parallel()
	a := []string{"one", "two", "three"}
	b := []string{"one", "TWO", "three", "four"}
	steps := diff.Diff(a, b)
	require.Equal(t, b, diff.Apply(steps))
}

func TestThreeWayMerge_BothIdentical(t *testing.T) {
	t.Parallel()
	l := []string{"a", "b"}
	merged, conflict := diff.ThreeWayMerge(l, l, l)
	require.False(t, conflict)
	require.Equal(t, l, merged)
}

func TestThreeWayMerge_OnlyHeadChanged(t *testing.T) {
	t.Parallel()
	base := []string{"a", "b"}
	head := []string{"a", "B"}
	merged, conflict := diff.ThreeWayMerge(base, head, base)
	require.False(t, conflict)
	require.Equal(t, head, merged)
}

func TestThreeWayMerge_OnlyTheirsChanged(t *testing.T) {
	t.Parallel()
	base := []string{"a", "b"}
	theirs := []string{"a", "B"}
	merged, conflict := diff.ThreeWayMerge(base, base, theirs)
	require.False(t, conflict)
	require.Equal(t, theirs, merged)
}

func TestThreeWayMerge_SameAddNoConflict(t *testing.T) {
	t.Parallel()
	base := []string{"a"}
	head := []string{"a", "new"}
	theirs := []string{"a", "new"}
	merged, conflict := diff.ThreeWayMerge(base, head, theirs)
	require.False(t, conflict)
	require.Equal(t, []string{"a", "new"}, merged)
}

func TestThreeWayMerge_ConflictingEdit(t *testing.T) {
	t.Parallel()
	base := []string{"hello"}
	head := []string{"HELLO"}
	theirs := []string{"Hola"}
	merged, conflict := diff.ThreeWayMerge(base, head, theirs)
	require.True(t, conflict)
	require.Equal(t, []string{
		"<<<<<<< HEAD",
		"HELLO",
		"=======",
		"Hola",
		">>>>>>> Merge Branch",
	}, merged)
}
