// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package queue implements a cross-chain message queue engine: outbound
// fragments are packed into size-bounded pages per peer, an extraction
// scheduler hands at most one page per peer per block to the transport, and
// inbound pages are decoded under an explicit processing budget. Two-way
// suspend/resume signaling and an exponential delivery fee factor provide
// backpressure in both directions.
//
// Execution is single-threaded and block-synchronous: exactly one
// HandleMessages and one TakeOutboundMessages invocation occur per block and
// nothing else mutates the engine in between. No method on the hot path may
// panic; malformed input is logged and dropped.
package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crossmesh/xcmpq/database"
	"github.com/crossmesh/xcmpq/database/prefixdb"
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils"
	"github.com/crossmesh/xcmpq/utils/fixedpoint"
	"github.com/crossmesh/xcmpq/utils/logging"
	"github.com/crossmesh/xcmpq/utils/set"
	"github.com/crossmesh/xcmpq/xcmp"

	"go.uber.org/zap"
)

// Status reports what the transport can currently do with a channel.
type Status uint8

const (
	// Ready means pages up to the reported size limits are accepted.
	Ready Status = iota
	// Full means the channel cannot accept a page this block.
	Full
	// Closed means the channel no longer exists; queued state for it must be
	// discarded.
	Closed
)

// ChannelState is the transport's per-block report for one channel.
type ChannelState struct {
	Status Status
	// MaxSizeNow is the page size limit currently in force.
	MaxSizeNow uint32
	// MaxSizeEver is the largest page size the channel has ever accepted. A
	// queued page above it can never be delivered.
	MaxSizeEver uint32
}

// ChannelCapacity is the transport's static sizing for one channel.
type ChannelCapacity struct {
	// MaxMessageSize is the largest page the channel accepts.
	MaxMessageSize uint32
	// MaxTotalSize is the total queued bytes the channel tolerates; the fee
	// escalation threshold derives from it.
	MaxTotalSize uint32
}

// ChannelInfo is the transport boundary the engine consumes.
type ChannelInfo interface {
	ChannelStatus(ids.ChannelID) ChannelState
	ChannelCapacity(ids.ChannelID) (ChannelCapacity, bool)
}

// Enqueuer is the downstream consumer boundary. Enqueue returns how many of
// the given messages were accepted; the consumer may accept fewer than
// offered under its own resource limits.
type Enqueuer interface {
	Enqueue(peer ids.ChannelID, msgs [][]byte) int
}

// InboundPage is one transport-delivered page awaiting processing.
type InboundPage struct {
	Peer  ids.ChannelID
	Bytes []byte
}

// OutboundMessage is one page ready for the transport to carry.
type OutboundMessage struct {
	Peer  ids.ChannelID
	Bytes []byte
}

func (m OutboundMessage) Less(other OutboundMessage) bool {
	return m.Peer.Less(other.Peer)
}

var _ utils.Sortable[OutboundMessage] = OutboundMessage{}

// Queue is the engine. All state lives in the provided database; the
// in-memory fields are write-through caches valid for the lifetime of the
// instance.
type Queue struct {
	log        logging.Logger
	params     Params
	channels   ChannelInfo
	downstream Enqueuer
	metrics    metrics

	pageDB   database.Database
	signalDB database.Database
	metaDB   database.Database

	registry         []channelRecord
	config           QueueConfig
	feeFactors       map[ids.ChannelID]fixedpoint.Fixed
	inboundSuspended set.Set[ids.ChannelID]
	executionPaused  bool
}

// New returns an engine persisting through [db]. Previously persisted state
// is loaded; a fresh database yields an empty registry and the default
// config.
func New(
	params Params,
	db database.Database,
	channels ChannelInfo,
	downstream Enqueuer,
	log logging.Logger,
	namespace string,
	registerer prometheus.Registerer,
) (*Queue, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	q := &Queue{
		log:        log,
		params:     params,
		channels:   channels,
		downstream: downstream,
		pageDB:     prefixdb.New([]byte{pagePrefix}, db),
		signalDB:   prefixdb.New([]byte{signalPrefix}, db),
		metaDB:     prefixdb.New([]byte{metaPrefix}, db),
		feeFactors: make(map[ids.ChannelID]fixedpoint.Fixed),
	}
	if err := q.loadState(); err != nil {
		return nil, err
	}
	if err := q.metrics.initialize(namespace, registerer); err != nil {
		return nil, err
	}
	q.metrics.outboundChannels.Set(float64(len(q.registry)))
	q.metrics.inboundSuspended.Set(float64(q.inboundSuspended.Len()))
	q.metrics.queuedPages.Set(float64(q.totalQueuedPages()))
	return q, nil
}

// Config returns the active backpressure thresholds.
func (q *Queue) Config() QueueConfig {
	return q.config
}

// UpdateSuspendThreshold overwrites the number of ready pages which must be
// queued for the other side to be told to suspend its sending.
func (q *Queue) UpdateSuspendThreshold(new uint32) error {
	cfg := q.config
	cfg.SuspendThreshold = new
	return q.updateConfig(cfg)
}

// UpdateDropThreshold overwrites the number of ready pages after which
// further messages from a peer may be dropped.
func (q *Queue) UpdateDropThreshold(new uint32) error {
	cfg := q.config
	cfg.DropThreshold = new
	return q.updateConfig(cfg)
}

// UpdateResumeThreshold overwrites the number of ready pages the queue must
// be reduced to before a suspended peer is told to resume.
func (q *Queue) UpdateResumeThreshold(new uint32) error {
	cfg := q.config
	cfg.ResumeThreshold = new
	return q.updateConfig(cfg)
}

// updateConfig validates and persists [cfg] atomically: on any error the
// stored config is unchanged.
func (q *Queue) updateConfig(cfg QueueConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := q.storeConfig(cfg); err != nil {
		return err
	}
	q.config = cfg
	return nil
}

// OutboundChannelState returns the suspension state and queued page count of
// the outbound channel to [peer], if the registry holds a record for it.
func (q *Queue) OutboundChannelState(peer ids.ChannelID) (OutboundState, uint16, bool) {
	i, found := q.findRecord(peer)
	if !found {
		return Ok, 0, false
	}
	rec := &q.registry[i]
	return rec.state, rec.queuedPages(), true
}

// QueuedMessages decodes every queued outbound page back into its fragments,
// keyed by peer. Intended for operator inspection, not for the hot path.
func (q *Queue) QueuedMessages() map[ids.ChannelID][][]byte {
	result := make(map[ids.ChannelID][][]byte)
	for i := range q.registry {
		rec := &q.registry[i]
		for index := rec.firstIndex; index < rec.lastIndex; index++ {
			page, err := q.getPage(rec.peer, index)
			if err != nil {
				q.log.Error("missing queued page",
					zap.Stringer("peer", rec.peer),
					zap.Uint16("index", index),
					zap.Error(err),
				)
				continue
			}
			format, data, err := xcmp.DecodeFormat(page)
			if err != nil || format != xcmp.ConcatenatedPayload {
				q.log.Error("queued page is not a payload page",
					zap.Stringer("peer", rec.peer),
					zap.Uint16("index", index),
				)
				continue
			}
			for len(data) > 0 {
				fragment, rest, err := xcmp.TakeFragment(data)
				if err != nil {
					q.log.Error("undecodable queued fragment",
						zap.Stringer("peer", rec.peer),
						zap.Uint16("index", index),
						zap.Error(err),
					)
					break
				}
				result[rec.peer] = append(result[rec.peer], fragment)
				data = rest
			}
		}
	}
	return result
}

// ClearMessages drops every queued outbound data page, best effort. Pending
// signals and suspension states are kept.
func (q *Queue) ClearMessages() {
	for i := range q.registry {
		rec := &q.registry[i]
		for index := rec.firstIndex; index < rec.lastIndex; index++ {
			q.deletePage(rec.peer, index)
		}
		rec.firstIndex = 0
		rec.lastIndex = 0
	}
	if err := q.storeRegistry(); err != nil {
		q.log.Error("failed to persist cleared registry",
			zap.Error(err),
		)
	}
	q.metrics.queuedPages.Set(0)
}

func (q *Queue) totalQueuedPages() int {
	total := 0
	for i := range q.registry {
		total += int(q.registry[i].queuedPages())
	}
	return total
}
