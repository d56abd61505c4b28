// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	require := require.New(t)

	s := Set[int]{}
	require.Zero(s.Len())
	require.False(s.Contains(1))

	s.Add(1, 2)
	s.Add(1)
	require.Equal(2, s.Len())
	require.True(s.Contains(1))
	require.True(s.Contains(2))

	s.Remove(1, 3)
	require.Equal(1, s.Len())
	require.False(s.Contains(1))

	s.Clear()
	require.Zero(s.Len())
}

func TestSetZeroValueAdd(t *testing.T) {
	require := require.New(t)

	var s Set[string]
	s.Add("a")
	require.True(s.Contains("a"))
	require.Equal(1, s.Len())
}

func TestSetOfAndList(t *testing.T) {
	require := require.New(t)

	s := Of(3, 1, 2, 3)
	require.Equal(3, s.Len())
	require.ElementsMatch([]int{1, 2, 3}, s.List())
}
