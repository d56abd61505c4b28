// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import "errors"

var (
	// ErrTooBig is returned when a fragment or signal cannot fit even a
	// fresh page.
	ErrTooBig = errors.New("message is too big")

	// ErrTooManyChannels is returned when the outbound channel registry is
	// at capacity.
	ErrTooManyChannels = errors.New("too many active outbound channels")

	// ErrNoChannel is returned when the transport knows no channel to the
	// requested peer.
	ErrNoChannel = errors.New("no channel to peer")

	// ErrBadQueueConfig is returned when a threshold update would violate
	// the config invariant. The stored config is left unchanged.
	ErrBadQueueConfig = errors.New("bad queue config")

	// ErrInconsistentFormat is returned when the active outbound page for a
	// peer carries a different format than the fragment being written. The
	// fragment is dropped rather than appended to a page it cannot share.
	ErrInconsistentFormat = errors.New("outbound page format mismatch")

	// ErrAlreadySuspended is returned when execution is suspended twice.
	ErrAlreadySuspended = errors.New("execution is already suspended")

	// ErrAlreadyResumed is returned when execution is resumed twice.
	ErrAlreadyResumed = errors.New("execution is already resumed")

	errOutOfBudget  = errors.New("out of budget")
	errBrokenStream = errors.New("undecodable fragment stream")
)
