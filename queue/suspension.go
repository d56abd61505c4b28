// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/xcmp"

	"go.uber.org/zap"
)

// OnQueueChanged reacts to a change in the downstream queue depth for [peer].
// Crossing the suspend threshold sends the peer a Suspend signal; dropping
// back to the resume threshold while suspended sends a Resume. Both
// transitions are best effort: a signal that cannot be queued leaves the
// tracked state unchanged so the transition retries on the next change.
func (q *Queue) OnQueueChanged(peer ids.ChannelID, readyPages uint32) {
	suspended := q.inboundSuspended.Contains(peer)
	switch {
	case suspended && readyPages <= q.config.ResumeThreshold:
		if err := q.SendSignal(peer, xcmp.Resume); err != nil {
			q.log.Error("failed to send resume signal; channel remains suspended",
				zap.Stringer("peer", peer),
				zap.Error(err),
			)
			return
		}
		q.inboundSuspended.Remove(peer)
		q.storeSuspended()
		q.metrics.inboundSuspended.Set(float64(q.inboundSuspended.Len()))
	case !suspended && readyPages >= q.config.SuspendThreshold:
		q.log.Warn("inbound queue depth crossed the suspend threshold",
			zap.Stringer("peer", peer),
			zap.Uint32("readyPages", readyPages),
		)
		if err := q.SendSignal(peer, xcmp.Suspend); err != nil {
			q.log.Error("failed to send suspend signal; future messages may be dropped",
				zap.Stringer("peer", peer),
				zap.Error(err),
			)
			return
		}
		if q.inboundSuspended.Len() >= q.params.MaxInboundSuspended {
			// The signal was still sent; we just cannot remember to resume.
			q.log.Error("too many inbound channels suspended",
				zap.Stringer("peer", peer),
			)
			return
		}
		q.inboundSuspended.Add(peer)
		q.storeSuspended()
		q.metrics.inboundSuspended.Set(float64(q.inboundSuspended.Len()))
	}
}

// IsInboundSuspended reports whether [peer] has been told to stop sending.
func (q *Queue) IsInboundSuspended(peer ids.ChannelID) bool {
	return q.inboundSuspended.Contains(peer)
}

// SuspendExecution pauses downstream execution of already-enqueued messages.
// Inbound pages keep being decoded and enqueued; the pause is advisory state
// the downstream consults.
func (q *Queue) SuspendExecution() error {
	if q.executionPaused {
		return ErrAlreadySuspended
	}
	if err := q.storePaused(true); err != nil {
		return err
	}
	q.executionPaused = true
	q.log.Info("execution suspended")
	return nil
}

// ResumeExecution lifts the pause set by [SuspendExecution].
func (q *Queue) ResumeExecution() error {
	if !q.executionPaused {
		return ErrAlreadyResumed
	}
	if err := q.storePaused(false); err != nil {
		return err
	}
	q.executionPaused = false
	q.log.Info("execution resumed")
	return nil
}

// IsExecutionPaused reports whether downstream execution is paused.
func (q *Queue) IsExecutionPaused() bool {
	return q.executionPaused
}
