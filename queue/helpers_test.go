// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/crossmesh/xcmpq/database"
	"github.com/crossmesh/xcmpq/database/memdb"
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils/logging"
	"github.com/crossmesh/xcmpq/xcmp"
)

type testChannelInfo struct {
	states     map[ids.ChannelID]ChannelState
	capacities map[ids.ChannelID]ChannelCapacity
}

func newTestChannelInfo() *testChannelInfo {
	return &testChannelInfo{
		states:     make(map[ids.ChannelID]ChannelState),
		capacities: make(map[ids.ChannelID]ChannelCapacity),
	}
}

// open registers a Ready channel to [peer] accepting pages strictly smaller
// than [maxMessageSize].
func (c *testChannelInfo) open(peer ids.ChannelID, maxMessageSize, maxTotalSize uint32) {
	c.states[peer] = ChannelState{
		Status:      Ready,
		MaxSizeNow:  maxMessageSize,
		MaxSizeEver: maxMessageSize,
	}
	c.capacities[peer] = ChannelCapacity{
		MaxMessageSize: maxMessageSize,
		MaxTotalSize:   maxTotalSize,
	}
}

func (c *testChannelInfo) ChannelStatus(peer ids.ChannelID) ChannelState {
	if state, ok := c.states[peer]; ok {
		return state
	}
	return ChannelState{Status: Closed}
}

func (c *testChannelInfo) ChannelCapacity(peer ids.ChannelID) (ChannelCapacity, bool) {
	capacity, ok := c.capacities[peer]
	return capacity, ok
}

type testEnqueuer struct {
	// limit caps how many messages one Enqueue call accepts; <0 accepts all.
	limit    int
	received map[ids.ChannelID][][]byte
}

func newTestEnqueuer() *testEnqueuer {
	return &testEnqueuer{
		limit:    -1,
		received: make(map[ids.ChannelID][][]byte),
	}
}

func (e *testEnqueuer) Enqueue(peer ids.ChannelID, msgs [][]byte) int {
	n := len(msgs)
	if e.limit >= 0 && n > e.limit {
		n = e.limit
	}
	e.received[peer] = append(e.received[peer], msgs[:n]...)
	return n
}

func newTestQueue(t *testing.T, params Params) (*Queue, *testChannelInfo, *testEnqueuer) {
	return newTestQueueWithDB(t, params, memdb.New())
}

func newTestQueueWithDB(t *testing.T, params Params, db database.Database) (*Queue, *testChannelInfo, *testEnqueuer) {
	channels := newTestChannelInfo()
	downstream := newTestEnqueuer()
	q, err := New(params, db, channels, downstream, logging.NoLog{}, "test", prometheus.NewRegistry())
	require.NoError(t, err)
	return q, channels, downstream
}

func newQueueOver(db database.Database, channels *testChannelInfo, params Params) (*Queue, error) {
	return New(params, db, channels, newTestEnqueuer(), logging.NoLog{}, "test", prometheus.NewRegistry())
}

// payloadPage builds an inbound payload page holding [fragments].
func payloadPage(fragments ...[]byte) []byte {
	page := []byte{byte(xcmp.ConcatenatedPayload)}
	for _, fragment := range fragments {
		page = xcmp.AppendFragment(page, fragment)
	}
	return page
}

// signalsPage builds an inbound signal page holding [signals] in order.
func signalsPage(signals ...xcmp.Signal) []byte {
	page := []byte{byte(xcmp.Signals)}
	for _, signal := range signals {
		page = append(page, byte(signal))
	}
	return page
}

// canonical is the encoding a fragment has once forwarded downstream.
func canonical(fragment []byte) []byte {
	return xcmp.AppendFragment(nil, fragment)
}
