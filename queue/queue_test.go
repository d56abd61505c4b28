// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossmesh/xcmpq/database/memdb"
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/xcmp"
)

func TestNewInvalidParams(t *testing.T) {
	require := require.New(t)

	params := DefaultParams()
	params.MaxPageSize = 0
	_, _, err := tryNewQueue(params)
	require.Error(err)

	params = DefaultParams()
	params.BatchSize = 0
	_, _, err = tryNewQueue(params)
	require.Error(err)
}

func tryNewQueue(params Params) (*Queue, *testChannelInfo, error) {
	channels := newTestChannelInfo()
	q, err := newQueueOver(memdb.New(), channels, params)
	return q, channels, err
}

func TestConfigUpdates(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())
	require.Equal(DefaultQueueConfig(), q.Config())

	require.NoError(q.UpdateSuspendThreshold(40))
	require.Equal(uint32(40), q.Config().SuspendThreshold)

	// Resume must stay strictly below suspend.
	require.ErrorIs(q.UpdateResumeThreshold(40), ErrBadQueueConfig)
	require.ErrorIs(q.UpdateResumeThreshold(0), ErrBadQueueConfig)

	// Drop must stay at or above suspend.
	require.ErrorIs(q.UpdateDropThreshold(39), ErrBadQueueConfig)
	require.NoError(q.UpdateDropThreshold(40))

	// Failed updates left everything else untouched.
	require.Equal(QueueConfig{
		SuspendThreshold: 40,
		DropThreshold:    40,
		ResumeThreshold:  DefaultQueueConfig().ResumeThreshold,
	}, q.Config())
}

func TestQueuedAndClearMessages(t *testing.T) {
	require := require.New(t)

	q, channels, _ := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()
	channels.open(peer, 100, 1000)

	a := []byte{0xaa}
	b := []byte{0xbb, 0xbb}
	for _, fragment := range [][]byte{a, b} {
		_, err := q.SendFragment(peer, xcmp.ConcatenatedPayload, fragment)
		require.NoError(err)
	}
	require.NoError(q.SendSignal(peer, xcmp.Suspend))

	require.Equal(map[ids.ChannelID][][]byte{
		peer: {canonical(a), canonical(b)},
	}, q.QueuedMessages())

	// Clearing drops data pages but keeps the pending signal.
	q.ClearMessages()
	require.Empty(q.QueuedMessages())
	taken := q.TakeOutboundMessages(10)
	require.Len(taken, 1)
	require.Equal(xcmp.EncodeSignalPage(xcmp.Suspend), taken[0].Bytes)
}

func TestPersistence(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	q1, channels, _ := newTestQueueWithDB(t, DefaultParams(), db)

	peer := ids.GenerateTestChannelID()
	channels.open(peer, 500, 1000)

	// Queue pages until the fee factor escalates, suspend an inbound
	// channel, pause execution and change a threshold.
	for i := 0; i < 2; i++ {
		_, err := q1.SendFragment(peer, xcmp.ConcatenatedPayload, make([]byte, 300))
		require.NoError(err)
	}
	q1.OnQueueChanged(peer, q1.Config().SuspendThreshold)
	require.NoError(q1.SuspendExecution())
	require.NoError(q1.UpdateSuspendThreshold(40))

	factor := q1.FeeFactor(peer)
	_, queued, found := q1.OutboundChannelState(peer)
	require.True(found)

	// A second engine over the same database sees identical state.
	channels2 := newTestChannelInfo()
	channels2.open(peer, 500, 1000)
	q2, err := newQueueOver(db, channels2, DefaultParams())
	require.NoError(err)

	require.Equal(q1.Config(), q2.Config())
	require.True(q2.IsExecutionPaused())
	require.True(q2.IsInboundSuspended(peer))
	require.Equal(factor, q2.FeeFactor(peer))
	state2, queued2, found2 := q2.OutboundChannelState(peer)
	require.True(found2)
	require.Equal(Ok, state2)
	require.Equal(queued, queued2)
	require.Equal(q1.QueuedMessages(), q2.QueuedMessages())

	// The pending suspend signal survives too and is extracted first.
	taken := q2.TakeOutboundMessages(10)
	require.Len(taken, 1)
	require.Equal(xcmp.EncodeSignalPage(xcmp.Suspend), taken[0].Bytes)
}
