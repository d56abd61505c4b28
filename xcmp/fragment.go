// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xcmp

import (
	"github.com/crossmesh/xcmpq/utils/wrappers"
)

const (
	// FragmentOverhead is the number of bytes the length prefix adds to a
	// fragment on the wire.
	FragmentOverhead = wrappers.IntLen

	// MaxFragmentDepth bounds how many layers of envelope wrapping a
	// fragment may carry. Deeper fragments are rejected rather than decoded,
	// which keeps decode cost linear for untrusted input.
	MaxFragmentDepth = 8
)

// EncodedFragmentSize returns the on-wire size of [fragment] once length
// prefixed.
func EncodedFragmentSize(fragment []byte) int {
	return FragmentOverhead + len(fragment)
}

// AppendFragment appends the length-prefixed encoding of [fragment] to
// [page] and returns the result.
func AppendFragment(page []byte, fragment []byte) []byte {
	p := wrappers.Packer{
		MaxSize: len(page) + EncodedFragmentSize(fragment),
		Bytes:   page,
		Offset:  len(page),
	}
	p.PackBytes(fragment)
	return p.Bytes
}

// TakeFragment splits one length-prefixed fragment off the front of [data],
// returning its canonical re-encoding and the remaining bytes. The
// re-encoded bytes are what get forwarded downstream, so a malformed prefix
// can never propagate past this point.
func TakeFragment(data []byte) (encoded []byte, rest []byte, err error) {
	p := wrappers.Packer{
		Bytes: data,
	}
	fragment := p.UnpackBytes()
	if p.Errored() {
		return nil, nil, ErrFragmentTooLong
	}
	if err := checkNesting(fragment, MaxFragmentDepth); err != nil {
		return nil, nil, err
	}
	return AppendFragment(nil, fragment), data[p.Offset:], nil
}

// checkNesting walks envelope wrappings. A body that is exactly one
// well-formed length-prefixed fragment is treated as a wrapper around that
// fragment; anything else is a terminal opaque blob. At most [depth] layers
// are allowed.
func checkNesting(body []byte, depth int) error {
	for len(body) >= FragmentOverhead {
		p := wrappers.Packer{
			Bytes: body,
		}
		inner := p.UnpackBytes()
		if p.Errored() || p.Offset != len(body) {
			// Not a single well-formed envelope; terminal blob.
			return nil
		}
		if depth == 0 {
			return ErrFragmentTooDeep
		}
		depth--
		body = inner
	}
	return nil
}
