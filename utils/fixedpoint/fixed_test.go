// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromRational(t *testing.T) {
	require := require.New(t)

	require.Equal(One, FromRational(1, 1))
	require.Equal(Fixed(1_050_000_000), FromRational(105, 100))
	require.Equal(Fixed(1_000_000), FromRational(1, 1000))
	require.Equal(Fixed(500_000_000), FromRational(1, 2))
	require.Equal(MaxFixed, FromRational(1, 0))
}

func TestMulDiv(t *testing.T) {
	require := require.New(t)

	require.Equal(One, One.Mul(One))
	require.Equal(Fixed(1_102_500_000), FromRational(105, 100).Mul(FromRational(105, 100)))
	require.Equal(FromRational(105, 100), Fixed(1_102_500_000).Div(FromRational(105, 100)))
	require.Equal(One, FromRational(105, 100).Div(FromRational(105, 100)))

	// Truncation, never rounding.
	require.Equal(Fixed(333_333_333), One.Div(FromUint64(3)))

	require.Equal(MaxFixed, One.Div(0))
}

func TestSaturation(t *testing.T) {
	require := require.New(t)

	require.Equal(MaxFixed, MaxFixed.Mul(FromUint64(2)))
	require.Equal(MaxFixed, MaxFixed.Add(1))
	require.Equal(MaxFixed, FromUint64(1<<63))
	require.Equal(MaxFixed, MaxFixed.Div(FromRational(1, 2)))
}

func TestString(t *testing.T) {
	require := require.New(t)

	require.Equal("1.000000000", One.String())
	require.Equal("1.050000000", FromRational(105, 100).String())
	require.Equal("0.000000001", Fixed(1).String())
}
