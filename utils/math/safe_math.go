// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import "golang.org/x/exp/constraints"

func Min[T constraints.Ordered](first T, rest ...T) T {
	min := first
	for _, v := range rest {
		if v < min {
			min = v
		}
	}
	return min
}

func Max[T constraints.Ordered](first T, rest ...T) T {
	max := first
	for _, v := range rest {
		if v > max {
			max = v
		}
	}
	return max
}

// SaturatingSub returns a - b, clamped at zero.
func SaturatingSub[T constraints.Unsigned](a, b T) T {
	if b > a {
		return 0
	}
	return a - b
}
