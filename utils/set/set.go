// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import "golang.org/x/exp/maps"

const minSetSize = 16

// Set is an unordered collection of unique elements.
type Set[T comparable] map[T]struct{}

// NewSet returns a set with capacity [size].
func NewSet[T comparable](size int) Set[T] {
	if size < 0 {
		size = 0
	}
	return make(map[T]struct{}, size)
}

// Of returns a set initialized with [elts].
func Of[T comparable](elts ...T) Set[T] {
	s := NewSet[T](len(elts))
	s.Add(elts...)
	return s
}

func (s *Set[T]) resize(size int) {
	if *s == nil {
		if minSetSize > size {
			size = minSetSize
		}
		*s = make(map[T]struct{}, size)
	}
}

// Add all the elements to this set. If the element is already in the set, nothing happens.
func (s *Set[T]) Add(elts ...T) {
	s.resize(2 * len(elts))
	for _, elt := range elts {
		(*s)[elt] = struct{}{}
	}
}

// Contains returns true iff the set contains this element.
func (s Set[T]) Contains(elt T) bool {
	_, contains := s[elt]
	return contains
}

// Remove all the given elements from this set. If an element isn't in the
// set, it's ignored.
func (s Set[T]) Remove(elts ...T) {
	for _, elt := range elts {
		delete(s, elt)
	}
}

// Len returns the number of elements in this set.
func (s Set[T]) Len() int {
	return len(s)
}

// List converts this set into a list.
func (s Set[T]) List() []T {
	return maps.Keys(s)
}

// Clear empties this set.
func (s Set[T]) Clear() {
	maps.Clear(s)
}
