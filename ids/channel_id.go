// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/crossmesh/xcmpq/utils"
)

const (
	ChannelIDPrefix = "Channel-"
	ChannelIDLen    = 4 // bytes
)

var (
	EmptyChannelID = ChannelID(0)

	errWrongChannelIDSize = errors.New("wrong ChannelID size")

	_ utils.Sortable[ChannelID] = ChannelID(0)
)

// ChannelID identifies a remote peer chain with which pages are exchanged.
type ChannelID uint32

// ToChannelID attempts to convert a byte slice into a channel id.
func ToChannelID(b []byte) (ChannelID, error) {
	if len(b) != ChannelIDLen {
		return EmptyChannelID, fmt.Errorf("%w: expected %d bytes but got %d", errWrongChannelIDSize, ChannelIDLen, len(b))
	}
	return ChannelID(binary.BigEndian.Uint32(b)), nil
}

// Bytes returns the big-endian encoding of [id]. This is the encoding used
// for database keys so that iteration order matches numeric order.
func (id ChannelID) Bytes() []byte {
	b := make([]byte, ChannelIDLen)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func (id ChannelID) String() string {
	return fmt.Sprintf("%s%d", ChannelIDPrefix, uint32(id))
}

func (id ChannelID) Less(other ChannelID) bool {
	return id < other
}

var offset uint32

// GenerateTestChannelID returns a new channel id that should only be used for
// testing.
func GenerateTestChannelID() ChannelID {
	return ChannelID(2000 + atomic.AddUint32(&offset, 1))
}
