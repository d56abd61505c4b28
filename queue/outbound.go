// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"fmt"
	"math"

	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils"
	safemath "github.com/crossmesh/xcmpq/utils/math"
	"github.com/crossmesh/xcmpq/xcmp"

	"go.uber.org/zap"
)

// SendFragment queues [fragment] for delivery to [peer], appending it to the
// newest queued page when that page carries the same format and has room, and
// opening a new page otherwise. It returns the number of pages queued for
// [peer] after the write.
//
// A fragment whose format disagrees with the page it would extend is dropped
// with [ErrInconsistentFormat]; mixing formats within a peer's queue would
// let a single stray fragment corrupt every later page.
func (q *Queue) SendFragment(peer ids.ChannelID, format xcmp.Format, fragment []byte) (uint32, error) {
	capacity, ok := q.channels.ChannelCapacity(peer)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoChannel, peer)
	}
	maxPageSize := safemath.Min(capacity.MaxMessageSize, q.params.MaxPageSize)
	encodedSize := xcmp.FormatSize + xcmp.EncodedFragmentSize(fragment)
	if encodedSize > int(maxPageSize) {
		return 0, fmt.Errorf("%w: %d > %d byte page limit", ErrTooBig, encodedSize, maxPageSize)
	}

	i, found := q.findRecord(peer)
	if !found {
		if len(q.registry) >= q.params.MaxActiveOutboundChannels {
			return 0, ErrTooManyChannels
		}
		q.registry = append(q.registry, channelRecord{peer: peer})
		i = len(q.registry) - 1
		q.metrics.outboundChannels.Set(float64(len(q.registry)))
	}
	rec := &q.registry[i]

	appended := false
	lastPageSize := 0
	if rec.lastIndex > rec.firstIndex {
		index := rec.lastIndex - 1
		page, err := q.getPage(peer, index)
		if err != nil {
			q.log.Error("missing newest queued page; starting a new one",
				zap.Stringer("peer", peer),
				zap.Uint16("index", index),
				zap.Error(err),
			)
		} else {
			pageFormat, _, err := xcmp.DecodeFormat(page)
			switch {
			case err != nil:
				q.log.Error("undecodable newest queued page; starting a new one",
					zap.Stringer("peer", peer),
					zap.Uint16("index", index),
					zap.Error(err),
				)
			case pageFormat != format:
				q.log.Warn("dropping fragment with mismatched format",
					zap.Stringer("peer", peer),
					zap.Stringer("pageFormat", pageFormat),
					zap.Stringer("format", format),
				)
				return 0, fmt.Errorf("%w: page holds %s, fragment is %s", ErrInconsistentFormat, pageFormat, format)
			case len(page)+xcmp.EncodedFragmentSize(fragment) <= int(maxPageSize):
				page = xcmp.AppendFragment(page, fragment)
				if err := q.putPage(peer, index, page); err != nil {
					return 0, err
				}
				appended = true
				lastPageSize = len(page)
			}
		}
	}
	if !appended {
		page := xcmp.AppendFragment([]byte{byte(format)}, fragment)
		if err := q.putPage(peer, rec.lastIndex, page); err != nil {
			return 0, err
		}
		rec.lastIndex++
		lastPageSize = len(page)
	}
	if err := q.storeRegistry(); err != nil {
		return 0, err
	}

	// The occupancy estimate assumes every page but the newest is full. It
	// overestimates, so fee escalation can only trigger early, never late.
	pages := uint32(rec.queuedPages())
	occupancy := (pages-1)*maxPageSize + uint32(lastPageSize)
	if occupancy > capacity.MaxTotalSize/ThresholdFactor {
		q.increaseFeeFactor(peer, len(fragment))
	}

	q.metrics.queuedPages.Set(float64(q.totalQueuedPages()))
	return pages, nil
}

// SendSignal queues a control frame for delivery to [peer]. Signals overwrite
// each other: at most one signal page per peer is ever queued, and it is
// extracted ahead of data pages regardless of suspension.
func (q *Queue) SendSignal(peer ids.ChannelID, signal xcmp.Signal) error {
	i, found := q.findRecord(peer)
	if !found {
		if len(q.registry) >= q.params.MaxActiveOutboundChannels {
			return ErrTooManyChannels
		}
		q.registry = append(q.registry, channelRecord{peer: peer})
		i = len(q.registry) - 1
		q.metrics.outboundChannels.Set(float64(len(q.registry)))
	}
	if err := q.putSignal(peer, xcmp.EncodeSignalPage(signal)); err != nil {
		return err
	}
	q.registry[i].signalsExist = true
	q.log.Debug("queued outbound signal",
		zap.Stringer("peer", peer),
		zap.Stringer("signal", signal),
	)
	return q.storeRegistry()
}

// TakeOutboundMessages extracts at most one page for each of at most
// [maxChannels] peers, in registry order. Pending signals go first and ignore
// suspension; data pages go only to unsuspended peers whose channel can take
// them this block. Served peers rotate to the back of the registry so no peer
// can be starved by earlier entries.
//
// The result is sorted by peer so output order is deterministic regardless of
// registry order.
func (q *Queue) TakeOutboundMessages(maxChannels int) []OutboundMessage {
	maxMessageCount := safemath.Min(len(q.registry), safemath.Max(maxChannels, 0))
	result := make([]OutboundMessage, 0, maxMessageCount)
	for i := range q.registry {
		rec := &q.registry[i]
		status := q.channels.ChannelStatus(rec.peer)
		switch status.Status {
		case Closed:
			// The channel no longer exists. Drop whatever was queued for it
			// and reset the record so the prune below removes it; a stale
			// Suspended state must not survive into a reopened channel.
			for index := rec.firstIndex; index < rec.lastIndex; index++ {
				q.deletePage(rec.peer, index)
			}
			rec.firstIndex = 0
			rec.lastIndex = 0
			rec.state = Ok
			if rec.signalsExist {
				q.deleteSignal(rec.peer)
				rec.signalsExist = false
			}
			continue
		case Full:
			continue
		}
		if len(result) == maxMessageCount {
			break
		}

		switch {
		case rec.signalsExist:
			page, err := q.getSignal(rec.peer)
			switch {
			case err != nil:
				q.log.Error("missing queued signal page",
					zap.Stringer("peer", rec.peer),
					zap.Error(err),
				)
				rec.signalsExist = false
			case len(page) < int(status.MaxSizeNow):
				q.deleteSignal(rec.peer)
				rec.signalsExist = false
				result = append(result, OutboundMessage{Peer: rec.peer, Bytes: page})
				q.metrics.signalsSent.Inc()
			}
		case rec.state != Ok:
			// The peer suspended us. Data pages wait for a resume.
		case rec.lastIndex > rec.firstIndex:
			page, err := q.getPage(rec.peer, rec.firstIndex)
			switch {
			case err != nil:
				q.log.Error("missing queued page",
					zap.Stringer("peer", rec.peer),
					zap.Uint16("index", rec.firstIndex),
					zap.Error(err),
				)
				rec.firstIndex++
			case len(page) < int(status.MaxSizeNow):
				q.deletePage(rec.peer, rec.firstIndex)
				rec.firstIndex++
				result = append(result, OutboundMessage{Peer: rec.peer, Bytes: page})
				q.metrics.pagesSent.Inc()
			case len(page) > int(status.MaxSizeEver):
				// The channel will never accept a page this large. Keeping it
				// would wedge the queue behind it forever.
				q.log.Warn("dropping undeliverable oversize page",
					zap.Stringer("peer", rec.peer),
					zap.Uint16("index", rec.firstIndex),
					zap.Int("pageSize", len(page)),
					zap.Uint32("maxSizeEver", status.MaxSizeEver),
				)
				q.deletePage(rec.peer, rec.firstIndex)
				rec.firstIndex++
				q.metrics.pagesDropped.Inc()
			}
			if rec.firstIndex == rec.lastIndex {
				rec.firstIndex = 0
				rec.lastIndex = 0
			}
		}

		remaining := 0
		for index := rec.firstIndex; index < rec.lastIndex; index++ {
			remaining += q.pageLen(rec.peer, index)
		}
		maxTotalSize := uint32(math.MaxUint32)
		if capacity, ok := q.channels.ChannelCapacity(rec.peer); ok {
			maxTotalSize = capacity.MaxTotalSize
		} else {
			q.log.Warn("channel has queued pages but no capacity info",
				zap.Stringer("peer", rec.peer),
			)
		}
		if remaining <= int(maxTotalSize/ThresholdFactor) {
			q.decreaseFeeFactor(rec.peer)
		}
	}

	utils.Sort(result)

	// Drop registry records that no longer track anything.
	pruned := 0
	kept := q.registry[:0]
	for i := range q.registry {
		rec := q.registry[i]
		if rec.firstIndex == rec.lastIndex && !rec.signalsExist && rec.state == Ok {
			pruned++
			continue
		}
		kept = append(kept, rec)
	}
	q.registry = kept
	q.rotateRegistryLeft(int(safemath.SaturatingSub(uint64(len(result)), uint64(pruned))))

	if err := q.storeRegistry(); err != nil {
		q.log.Error("failed to persist registry",
			zap.Error(err),
		)
	}
	q.metrics.outboundChannels.Set(float64(len(q.registry)))
	q.metrics.queuedPages.Set(float64(q.totalQueuedPages()))
	return result
}
