// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/xcmp"
)

func TestOnQueueChangedSuspendResume(t *testing.T) {
	require := require.New(t)

	q, channels, _ := newTestQueue(t, DefaultParams())
	peer := ids.GenerateTestChannelID()
	channels.open(peer, 100, 1000)

	cfg := q.Config()

	q.OnQueueChanged(peer, cfg.SuspendThreshold-1)
	require.False(q.IsInboundSuspended(peer))
	require.Empty(q.TakeOutboundMessages(10))

	q.OnQueueChanged(peer, cfg.SuspendThreshold)
	require.True(q.IsInboundSuspended(peer))
	taken := q.TakeOutboundMessages(10)
	require.Len(taken, 1)
	require.Equal(xcmp.EncodeSignalPage(xcmp.Suspend), taken[0].Bytes)

	// Still above the resume threshold.
	q.OnQueueChanged(peer, cfg.ResumeThreshold+1)
	require.True(q.IsInboundSuspended(peer))

	q.OnQueueChanged(peer, cfg.ResumeThreshold)
	require.False(q.IsInboundSuspended(peer))
	taken = q.TakeOutboundMessages(10)
	require.Len(taken, 1)
	require.Equal(xcmp.EncodeSignalPage(xcmp.Resume), taken[0].Bytes)
}

func TestOnQueueChangedSignalFailure(t *testing.T) {
	require := require.New(t)

	params := DefaultParams()
	params.MaxActiveOutboundChannels = 1
	q, channels, _ := newTestQueue(t, params)

	blocker := ids.GenerateTestChannelID()
	channels.open(blocker, 100, 1000)
	_, err := q.SendFragment(blocker, xcmp.ConcatenatedPayload, []byte{1})
	require.NoError(err)

	// The suspend signal cannot be queued, so the peer is not tracked and
	// the transition will retry on the next change.
	peer := ids.GenerateTestChannelID()
	q.OnQueueChanged(peer, q.Config().SuspendThreshold)
	require.False(q.IsInboundSuspended(peer))
}

func TestOnQueueChangedTrackingCapacity(t *testing.T) {
	require := require.New(t)

	params := DefaultParams()
	params.MaxInboundSuspended = 1
	q, channels, _ := newTestQueue(t, params)

	peer1 := ids.GenerateTestChannelID()
	peer2 := ids.GenerateTestChannelID()
	channels.open(peer1, 100, 1000)
	channels.open(peer2, 100, 1000)

	threshold := q.Config().SuspendThreshold
	q.OnQueueChanged(peer1, threshold)
	require.True(q.IsInboundSuspended(peer1))

	// The signal still goes out; we just cannot remember to resume.
	q.OnQueueChanged(peer2, threshold)
	require.False(q.IsInboundSuspended(peer2))
	taken := q.TakeOutboundMessages(10)
	require.Len(taken, 2)
	for _, msg := range taken {
		require.Equal(xcmp.EncodeSignalPage(xcmp.Suspend), msg.Bytes)
	}
}

func TestExecutionPause(t *testing.T) {
	require := require.New(t)

	q, _, _ := newTestQueue(t, DefaultParams())

	require.False(q.IsExecutionPaused())
	require.NoError(q.SuspendExecution())
	require.True(q.IsExecutionPaused())
	require.ErrorIs(q.SuspendExecution(), ErrAlreadySuspended)

	require.NoError(q.ResumeExecution())
	require.False(q.IsExecutionPaused())
	require.ErrorIs(q.ResumeExecution(), ErrAlreadyResumed)
}
