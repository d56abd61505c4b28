// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package xcmp defines the wire format of cross-chain message pages. A page
// is a one-byte format discriminator followed by either a sequence of
// fixed-size control frames or a sequence of length-prefixed payload
// fragments. The transport is untrusted; every decode path returns an error
// instead of panicking.
package xcmp

import (
	"errors"
	"fmt"
)

const (
	// FormatSize is the encoded size of the page format discriminator.
	FormatSize = 1 // bytes

	// SignalFrameSize is the encoded size of one control frame.
	SignalFrameSize = 1 // bytes
)

var (
	ErrEmptyPage     = errors.New("empty page")
	ErrUnknownFormat = errors.New("unknown page format")
	ErrUnknownSignal = errors.New("unknown channel signal")
	ErrFragmentTooLong = errors.New("fragment length prefix exceeds page")
	ErrFragmentTooDeep = errors.New("fragment nesting exceeds depth limit")
)

// Format discriminates what a page carries.
type Format byte

const (
	// ConcatenatedPayload pages carry length-prefixed opaque fragments.
	ConcatenatedPayload Format = iota
	// UnsupportedBlob pages are recognized but not handled; they are dropped
	// on receipt.
	UnsupportedBlob
	// Signals pages carry control frames managing channel backpressure.
	Signals
)

func (f Format) String() string {
	switch f {
	case ConcatenatedPayload:
		return "concatenated_payload"
	case UnsupportedBlob:
		return "unsupported_blob"
	case Signals:
		return "signals"
	default:
		return fmt.Sprintf("unknown_format_%d", byte(f))
	}
}

// DecodeFormat splits the format discriminator off the front of [page] and
// returns it along with the page body.
func DecodeFormat(page []byte) (Format, []byte, error) {
	if len(page) < FormatSize {
		return 0, nil, ErrEmptyPage
	}
	f := Format(page[0])
	switch f {
	case ConcatenatedPayload, UnsupportedBlob, Signals:
		return f, page[FormatSize:], nil
	default:
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownFormat, page[0])
	}
}

// Signal is a control frame asking the receiving side to change how it sends
// to us.
type Signal byte

const (
	// Suspend asks the peer to stop sending data pages.
	Suspend Signal = iota
	// Resume tells the peer it may send data pages again.
	Resume
)

func (s Signal) String() string {
	switch s {
	case Suspend:
		return "suspend"
	case Resume:
		return "resume"
	default:
		return fmt.Sprintf("unknown_signal_%d", byte(s))
	}
}

// DecodeSignal splits one control frame off the front of [data].
func DecodeSignal(data []byte) (Signal, []byte, error) {
	if len(data) < SignalFrameSize {
		return 0, nil, ErrEmptyPage
	}
	s := Signal(data[0])
	switch s {
	case Suspend, Resume:
		return s, data[SignalFrameSize:], nil
	default:
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownSignal, data[0])
	}
}

// EncodeSignalPage returns a complete one-page signal message. Repeated
// signals for the same peer overwrite each other, so a signal page always
// holds exactly one frame.
func EncodeSignalPage(s Signal) []byte {
	return []byte{byte(Signals), byte(s)}
}
