// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeter(t *testing.T) {
	require := require.New(t)

	m := NewMeter(10)
	require.Equal(uint64(10), m.Remaining())
	require.Zero(m.Consumed())

	require.True(m.TryConsume(4))
	require.Equal(uint64(4), m.Consumed())
	require.Equal(uint64(6), m.Remaining())

	// Refusal leaves the meter untouched.
	require.False(m.TryConsume(7))
	require.Equal(uint64(4), m.Consumed())

	require.True(m.TryConsume(6))
	require.Zero(m.Remaining())
	require.False(m.TryConsume(1))
	require.True(m.TryConsume(0))
}

func TestMeterConsumeSaturates(t *testing.T) {
	require := require.New(t)

	m := NewMeter(5)
	m.Consume(3)
	require.Equal(uint64(3), m.Consumed())
	m.Consume(100)
	require.Equal(uint64(5), m.Consumed())
	require.Zero(m.Remaining())
}
