// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint implements unsigned fixed-point arithmetic with nine
// decimal places of precision. It is used for the delivery fee factor, which
// must evolve identically on every node; floating point is not acceptable
// there.
package fixedpoint

import (
	"fmt"
	"math"
	"math/bits"
)

// Fixed is a non-negative fixed-point number scaled by 10^9.
type Fixed uint64

const (
	// One is the fixed-point representation of 1.0.
	One Fixed = 1e9

	// MaxFixed is the largest representable value. Operations that would
	// exceed it saturate rather than wrap.
	MaxFixed Fixed = math.MaxUint64

	scale uint64 = uint64(One)
)

// FromUint64 returns the fixed-point representation of the integer [v],
// saturating at MaxFixed.
func FromUint64(v uint64) Fixed {
	hi, lo := bits.Mul64(v, scale)
	if hi != 0 {
		return MaxFixed
	}
	return Fixed(lo)
}

// FromRational returns num/den as a fixed-point value, saturating at
// MaxFixed. A zero denominator saturates.
func FromRational(num, den uint64) Fixed {
	if den == 0 {
		return MaxFixed
	}
	hi, lo := bits.Mul64(num, scale)
	if hi >= den {
		return MaxFixed
	}
	quo, _ := bits.Div64(hi, lo, den)
	return Fixed(quo)
}

// Add returns f + o, saturating at MaxFixed.
func (f Fixed) Add(o Fixed) Fixed {
	sum, carry := bits.Add64(uint64(f), uint64(o), 0)
	if carry != 0 {
		return MaxFixed
	}
	return Fixed(sum)
}

// Mul returns f * o, saturating at MaxFixed.
func (f Fixed) Mul(o Fixed) Fixed {
	hi, lo := bits.Mul64(uint64(f), uint64(o))
	if hi >= scale {
		return MaxFixed
	}
	quo, _ := bits.Div64(hi, lo, scale)
	return Fixed(quo)
}

// Div returns f / o, saturating at MaxFixed. A zero divisor saturates.
func (f Fixed) Div(o Fixed) Fixed {
	if o == 0 {
		return MaxFixed
	}
	hi, lo := bits.Mul64(uint64(f), scale)
	if hi >= uint64(o) {
		return MaxFixed
	}
	quo, _ := bits.Div64(hi, lo, uint64(o))
	return Fixed(quo)
}

func (f Fixed) String() string {
	return fmt.Sprintf("%d.%09d", uint64(f)/scale, uint64(f)%scale)
}
