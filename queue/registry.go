// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/crossmesh/xcmpq/ids"

	"go.uber.org/zap"
)

// OutboundState is the suspension state of an outbound channel.
type OutboundState byte

const (
	// Ok means data pages may be extracted for the peer.
	Ok OutboundState = iota
	// Suspended means the peer asked us to stop sending data pages. Signals
	// are exempt.
	Suspended
)

func (s OutboundState) String() string {
	switch s {
	case Ok:
		return "ok"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// channelRecord tracks one outbound channel. The queued data pages are the
// index range [firstIndex, lastIndex) over the page store; the two indices
// are equal iff no data pages are queued. Queues are assumed to grow no
// greater than 65535 pages, and the indices reset to zero whenever the range
// drains, so the counters cannot wrap in practice.
type channelRecord struct {
	peer         ids.ChannelID
	state        OutboundState
	signalsExist bool
	firstIndex   uint16
	lastIndex    uint16
}

func (r *channelRecord) queuedPages() uint16 {
	return r.lastIndex - r.firstIndex
}

// findRecord returns the registry index of [peer]'s record.
func (q *Queue) findRecord(peer ids.ChannelID) (int, bool) {
	for i := range q.registry {
		if q.registry[i].peer == peer {
			return i, true
		}
	}
	return 0, false
}

// suspendChannel handles an inbound Suspend frame from [peer]: it pauses
// extraction of our data pages toward them.
func (q *Queue) suspendChannel(peer ids.ChannelID) {
	if i, found := q.findRecord(peer); found {
		if q.registry[i].state != Ok {
			q.log.Warn("attempt to suspend channel that was not ok",
				zap.Stringer("peer", peer),
			)
		}
		q.registry[i].state = Suspended
	} else {
		if len(q.registry) >= q.params.MaxActiveOutboundChannels {
			q.log.Error("cannot pause channel; too many outbound channels",
				zap.Stringer("peer", peer),
			)
			return
		}
		q.registry = append(q.registry, channelRecord{
			peer:  peer,
			state: Suspended,
		})
		q.metrics.outboundChannels.Set(float64(len(q.registry)))
	}
	if err := q.storeRegistry(); err != nil {
		q.log.Error("failed to persist registry",
			zap.Error(err),
		)
	}
}

// resumeChannel handles an inbound Resume frame from [peer]. A record that
// is drained and signal-free is removed outright instead of being flipped
// back to Ok.
func (q *Queue) resumeChannel(peer ids.ChannelID) {
	i, found := q.findRecord(peer)
	if !found {
		q.log.Warn("attempt to resume channel that was not suspended",
			zap.Stringer("peer", peer),
		)
		return
	}
	rec := &q.registry[i]
	if rec.state != Suspended {
		q.log.Warn("attempt to resume channel that was not suspended",
			zap.Stringer("peer", peer),
		)
	}
	if rec.firstIndex == rec.lastIndex && !rec.signalsExist {
		q.registry = append(q.registry[:i], q.registry[i+1:]...)
		q.metrics.outboundChannels.Set(float64(len(q.registry)))
	} else {
		rec.state = Ok
	}
	if err := q.storeRegistry(); err != nil {
		q.log.Error("failed to persist registry",
			zap.Error(err),
		)
	}
}

// rotateRegistryLeft rotates the registry left by [n] so the peers just
// served move to the back of the visitation order.
func (q *Queue) rotateRegistryLeft(n int) {
	size := len(q.registry)
	if size == 0 {
		return
	}
	n %= size
	if n == 0 {
		return
	}
	rotated := make([]channelRecord, 0, size)
	rotated = append(rotated, q.registry[n:]...)
	rotated = append(rotated, q.registry[:n]...)
	q.registry = rotated
}
