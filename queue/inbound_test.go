// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/xcmp"
)

func TestHandleMessagesRoundTrip(t *testing.T) {
	require := require.New(t)

	q, _, downstream := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	a := []byte{0xaa, 0xaa}
	b := []byte{0xbb}
	consumed := q.HandleMessages([]InboundPage{{Peer: peer, Bytes: payloadPage(a, b)}}, 100)

	// First touch plus decode and enqueue per message.
	require.Equal(uint64(8+2+2), consumed)
	require.Equal([][]byte{canonical(a), canonical(b)}, downstream.received[peer])
}

func TestHandleMessagesSignals(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	consumed := q.HandleMessages([]InboundPage{{Peer: peer, Bytes: signalsPage(xcmp.Suspend)}}, 100)
	require.Equal(uint64(1), consumed)
	state, _, found := q.OutboundChannelState(peer)
	require.True(found)
	require.Equal(Suspended, state)

	// Resuming a drained, signal-free channel removes its record.
	q.HandleMessages([]InboundPage{{Peer: peer, Bytes: signalsPage(xcmp.Resume)}}, 100)
	_, _, found = q.OutboundChannelState(peer)
	require.False(found)
}

func TestHandleMessagesMalformedPages(t *testing.T) {
	require := require.New(t)

	q, _, downstream := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	pages := []InboundPage{
		{Peer: peer, Bytes: nil},       // empty
		{Peer: peer, Bytes: []byte{9}}, // unknown format
		{Peer: peer, Bytes: []byte{byte(xcmp.UnsupportedBlob), 1, 2, 3}},
	}
	consumed := q.HandleMessages(pages, 100)
	require.Zero(consumed)
	require.Empty(downstream.received)
}

func TestHandleMessagesBadSignalFrame(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	// A valid frame applies before the bad one stops the page.
	page := append(signalsPage(xcmp.Suspend), 9)
	consumed := q.HandleMessages([]InboundPage{{Peer: peer, Bytes: page}}, 100)
	require.Equal(uint64(2), consumed)
	state, _, found := q.OutboundChannelState(peer)
	require.True(found)
	require.Equal(Suspended, state)
}

func TestHandleMessagesBudgetExhaustion(t *testing.T) {
	require := require.New(t)

	params := DefaultParams()
	params.FirstTouchCost = 0
	params.FragmentDecodeCost = 1
	params.EnqueueItemCost = 0
	q, _, downstream := newTestQueue(t, params)
	peer := ids.GenerateTestChannelID()

	a := []byte{0xaa}
	b := []byte{0xbb}
	c := []byte{0xcc}
	pages := []InboundPage{
		{Peer: peer, Bytes: payloadPage(a, b, c)},
		{Peer: peer, Bytes: signalsPage(xcmp.Suspend)},
	}

	// Budget for two decodes. The partial batch is still forwarded, then
	// everything after the exhaustion point is dropped, signals included.
	consumed := q.HandleMessages(pages, 2)
	require.Equal(uint64(2), consumed)
	require.Equal([][]byte{canonical(a), canonical(b)}, downstream.received[peer])
	_, _, found := q.OutboundChannelState(peer)
	require.False(found)
}

func TestHandleMessagesFirstTouchExhaustion(t *testing.T) {
	require := require.New(t)

	q, _, downstream := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	// Cheaper than one first touch.
	consumed := q.HandleMessages([]InboundPage{{Peer: peer, Bytes: payloadPage([]byte{0xaa})}}, 7)
	require.Zero(consumed)
	require.Empty(downstream.received)
}

func TestHandleMessagesSignalBudgetExhaustion(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()

	consumed := q.HandleMessages([]InboundPage{{Peer: peer, Bytes: signalsPage(xcmp.Suspend)}}, 0)
	require.Zero(consumed)
	_, _, found := q.OutboundChannelState(peer)
	require.False(found)
}

func TestHandleMessagesFirstTouchPerSender(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())
	peer1 := ids.GenerateTestChannelID()
	peer2 := ids.GenerateTestChannelID()

	// Two pages from one sender pay one first touch.
	pages := []InboundPage{
		{Peer: peer1, Bytes: payloadPage([]byte{0xaa})},
		{Peer: peer1, Bytes: payloadPage([]byte{0xbb})},
	}
	require.Equal(uint64(8+2+2), q.HandleMessages(pages, 100))

	// Distinct senders each pay it.
	pages = []InboundPage{
		{Peer: peer1, Bytes: payloadPage([]byte{0xaa})},
		{Peer: peer2, Bytes: payloadPage([]byte{0xbb})},
	}
	require.Equal(uint64(8+2+8+2), q.HandleMessages(pages, 100))
}

func TestHandleMessagesTruncation(t *testing.T) {
	require := require.New(t)

	q, _, downstream := newTestQueue(t, DefaultParams())
	peer1 := ids.GenerateTestChannelID()
	peer2 := ids.GenerateTestChannelID()

	a := []byte{0xaa}
	b := []byte{0xbb}
	// A valid fragment followed by a length prefix pointing past the page.
	broken := append(payloadPage(a), 0xff, 0xff, 0xff, 0xff)
	pages := []InboundPage{
		{Peer: peer1, Bytes: broken},
		{Peer: peer2, Bytes: payloadPage(b)},
	}

	q.HandleMessages(pages, 100)
	require.Equal([][]byte{canonical(a)}, downstream.received[peer1])
	require.Equal([][]byte{canonical(b)}, downstream.received[peer2])
}

func TestHandleMessagesStoppedSender(t *testing.T) {
	require := require.New(t)

	q, _, downstream := newTestQueue(t, DefaultParams())
	downstream.limit = 1
	peer1 := ids.GenerateTestChannelID()
	peer2 := ids.GenerateTestChannelID()

	a := []byte{0xaa}
	b := []byte{0xbb}
	c := []byte{0xcc}
	d := []byte{0xdd}
	pages := []InboundPage{
		{Peer: peer1, Bytes: payloadPage(a, b)}, // only a accepted
		{Peer: peer1, Bytes: payloadPage(c)},    // sender stopped; dropped
		{Peer: peer2, Bytes: payloadPage(d)},    // unaffected
	}

	q.HandleMessages(pages, 1000)
	require.Equal([][]byte{canonical(a)}, downstream.received[peer1])
	require.Equal([][]byte{canonical(d)}, downstream.received[peer2])
}
