// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"errors"

	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils/set"
	"github.com/crossmesh/xcmpq/xcmp"

	"go.uber.org/zap"
)

// HandleMessages processes transport-delivered [pages] under [budget] and
// returns the budget actually consumed. Pages are handled in the given order;
// the transport is expected to deliver each peer's pages in sending order.
//
// Malformed pages are dropped without charge beyond what their decoding
// consumed. Running out of budget halts processing for the block entirely,
// including signal pages; the unprocessed remainder is dropped.
func (q *Queue) HandleMessages(pages []InboundPage, budget uint64) uint64 {
	meter := NewMeter(budget)
	var (
		knownSenders set.Set[ids.ChannelID]
		stopped      set.Set[ids.ChannelID]
	)
	for _, page := range pages {
		format, data, err := xcmp.DecodeFormat(page.Bytes)
		if err != nil {
			q.log.Debug("dropping undecodable inbound page",
				zap.Stringer("sender", page.Peer),
				zap.Error(err),
			)
			continue
		}
		switch format {
		case xcmp.Signals:
			if !q.handleSignalPage(page.Peer, data, meter) {
				q.metrics.budgetExhausted.Inc()
				return meter.Consumed()
			}
		case xcmp.ConcatenatedPayload:
			if stopped.Contains(page.Peer) {
				q.log.Debug("dropping page from stopped sender",
					zap.Stringer("sender", page.Peer),
				)
				continue
			}
			if !knownSenders.Contains(page.Peer) {
				// The first page from a sender pays for the cold state loads
				// that its later pages reuse.
				if !meter.TryConsume(q.params.FirstTouchCost) {
					q.metrics.budgetExhausted.Inc()
					return meter.Consumed()
				}
				knownSenders.Add(page.Peer)
			}
			senderStopped, exhausted := q.handlePayloadPage(page.Peer, data, meter)
			if senderStopped {
				stopped.Add(page.Peer)
			}
			if exhausted {
				q.metrics.budgetExhausted.Inc()
				return meter.Consumed()
			}
		case xcmp.UnsupportedBlob:
			q.log.Debug("dropping unsupported blob page",
				zap.Stringer("sender", page.Peer),
			)
		}
	}
	return meter.Consumed()
}

// handleSignalPage dispatches the control frames on one signal page. It
// returns false iff the budget ran out, in which case unprocessed frames are
// dropped with the rest of the block's pages.
func (q *Queue) handleSignalPage(sender ids.ChannelID, data []byte, meter *Meter) bool {
	for len(data) > 0 {
		if !meter.TryConsume(q.params.SignalCost) {
			return false
		}
		signal, rest, err := xcmp.DecodeSignal(data)
		if err != nil {
			q.log.Debug("dropping undecodable signal frame",
				zap.Stringer("sender", sender),
				zap.Error(err),
			)
			return true
		}
		switch signal {
		case xcmp.Suspend:
			q.suspendChannel(sender)
		case xcmp.Resume:
			q.resumeChannel(sender)
		}
		data = rest
	}
	return true
}

// handlePayloadPage decodes one payload page into batches and forwards them
// downstream. [senderStopped] reports that the downstream refused messages
// and the sender's remaining pages this block should be dropped; [exhausted]
// reports that the budget ran out.
func (q *Queue) handlePayloadPage(sender ids.ChannelID, data []byte, meter *Meter) (senderStopped bool, exhausted bool) {
	for len(data) > 0 {
		batch, rest, err := q.takeFragments(data, meter)
		if len(batch) > 0 && !q.enqueueMessages(sender, batch, meter) {
			q.log.Debug("downstream refused messages; dropping the sender's remaining pages",
				zap.Stringer("sender", sender),
			)
			return true, false
		}
		if errors.Is(err, errOutOfBudget) {
			return false, true
		}
		if err != nil {
			q.log.Debug("truncating inbound page at undecodable fragment",
				zap.Stringer("sender", sender),
				zap.Error(err),
			)
			return false, false
		}
		data = rest
	}
	return false, false
}

// takeFragments splits up to BatchSize fragments off the front of [data],
// charging decode cost per fragment. On error the fragments decoded so far
// are still returned; the caller forwards them before acting on the error.
func (q *Queue) takeFragments(data []byte, meter *Meter) ([][]byte, []byte, error) {
	var batch [][]byte
	for len(data) > 0 && len(batch) < q.params.BatchSize {
		if !meter.TryConsume(q.params.FragmentDecodeCost) {
			return batch, data, errOutOfBudget
		}
		fragment, rest, err := xcmp.TakeFragment(data)
		if err != nil {
			return batch, data, errBrokenStream
		}
		batch = append(batch, fragment)
		data = rest
	}
	return batch, data, nil
}

// enqueueMessages offers [batch] to the downstream consumer, charging enqueue
// cost per message offered. The offer shrinks to what the budget can still
// pay for; unoffered and refused messages count as dropped. Returns whether
// the whole batch was accepted.
func (q *Queue) enqueueMessages(sender ids.ChannelID, batch [][]byte, meter *Meter) bool {
	n := len(batch)
	if q.params.EnqueueItemCost > 0 {
		if affordable := meter.Remaining() / q.params.EnqueueItemCost; uint64(n) > affordable {
			n = int(affordable)
		}
	}
	meter.Consume(uint64(n) * q.params.EnqueueItemCost)

	accepted := 0
	if n > 0 {
		accepted = q.downstream.Enqueue(sender, batch[:n])
		if accepted < 0 {
			accepted = 0
		} else if accepted > n {
			accepted = n
		}
	}
	q.metrics.messagesEnqueued.Add(float64(accepted))
	if dropped := len(batch) - accepted; dropped > 0 {
		q.metrics.messagesDropped.Add(float64(dropped))
	}
	return accepted == len(batch)
}
