// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sortableInt int

func (i sortableInt) Less(other sortableInt) bool {
	return i < other
}

func TestSort(t *testing.T) {
	require := require.New(t)

	s := []sortableInt{3, 1, 2}
	Sort(s)
	require.Equal([]sortableInt{1, 2, 3}, s)
	require.True(IsSortedAndUnique(s))
}

func TestIsSortedAndUnique(t *testing.T) {
	require := require.New(t)

	require.True(IsSortedAndUnique([]sortableInt{}))
	require.True(IsSortedAndUnique([]sortableInt{1}))
	require.True(IsSortedAndUnique([]sortableInt{1, 2}))
	require.False(IsSortedAndUnique([]sortableInt{2, 1}))
	require.False(IsSortedAndUnique([]sortableInt{1, 1}))
}
