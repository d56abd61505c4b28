// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"errors"
	"fmt"

	"github.com/crossmesh/xcmpq/database"
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils/fixedpoint"
	"github.com/crossmesh/xcmpq/utils/wrappers"

	"go.uber.org/zap"
)

// Bucket prefixes partitioning the physical database.
const (
	pagePrefix byte = iota
	signalPrefix
	metaPrefix
)

var (
	registryKey  = []byte("registry")
	configKey    = []byte("config")
	pausedKey    = []byte("paused")
	suspendedKey = []byte("inbound_suspended")
	feeKeyPrefix = []byte("fee")

	errCorruptState = errors.New("corrupt persisted state")
)

// pageKey keys a page by (peer, index). Big-endian so that numeric order and
// byte order agree.
func pageKey(peer ids.ChannelID, index uint16) []byte {
	key := make([]byte, 0, ids.ChannelIDLen+wrappers.ShortLen)
	key = append(key, peer.Bytes()...)
	return append(key, database.PackUInt16(index)...)
}

func feeKey(peer ids.ChannelID) []byte {
	key := make([]byte, 0, len(feeKeyPrefix)+ids.ChannelIDLen)
	key = append(key, feeKeyPrefix...)
	return append(key, peer.Bytes()...)
}

func (q *Queue) getPage(peer ids.ChannelID, index uint16) ([]byte, error) {
	return q.pageDB.Get(pageKey(peer, index))
}

func (q *Queue) putPage(peer ids.ChannelID, index uint16, page []byte) error {
	return q.pageDB.Put(pageKey(peer, index), page)
}

// deletePage removes a page, logging rather than failing: nothing on the
// block-processing path may abort.
func (q *Queue) deletePage(peer ids.ChannelID, index uint16) {
	if err := q.pageDB.Delete(pageKey(peer, index)); err != nil {
		q.log.Error("failed to delete outbound page",
			zap.Stringer("peer", peer),
			zap.Uint16("index", index),
			zap.Error(err),
		)
	}
}

// pageLen returns the stored size of a page, or 0 if it is missing.
func (q *Queue) pageLen(peer ids.ChannelID, index uint16) int {
	page, err := q.getPage(peer, index)
	if err != nil {
		return 0
	}
	return len(page)
}

func (q *Queue) getSignal(peer ids.ChannelID) ([]byte, error) {
	return q.signalDB.Get(peer.Bytes())
}

func (q *Queue) putSignal(peer ids.ChannelID, page []byte) error {
	return q.signalDB.Put(peer.Bytes(), page)
}

func (q *Queue) deleteSignal(peer ids.ChannelID) {
	if err := q.signalDB.Delete(peer.Bytes()); err != nil {
		q.log.Error("failed to delete signal page",
			zap.Stringer("peer", peer),
			zap.Error(err),
		)
	}
}

// loadState populates the in-memory caches from the database at
// construction.
func (q *Queue) loadState() error {
	if err := q.loadRegistry(); err != nil {
		return err
	}
	if err := q.loadConfig(); err != nil {
		return err
	}
	if err := q.loadSuspended(); err != nil {
		return err
	}
	paused, err := database.WithDefault(database.GetBool, q.metaDB, pausedKey, false)
	if err != nil {
		return err
	}
	q.executionPaused = paused
	return nil
}

func (q *Queue) loadRegistry() error {
	blob, err := q.metaDB.Get(registryKey)
	if errors.Is(err, database.ErrNotFound) {
		q.registry = nil
		return nil
	}
	if err != nil {
		return err
	}
	p := wrappers.Packer{Bytes: blob}
	count := p.UnpackInt()
	recordLen := wrappers.IntLen + wrappers.ByteLen + wrappers.BoolLen + 2*wrappers.ShortLen
	if int(count) > len(blob)/recordLen {
		return fmt.Errorf("%w: registry claims %d records in %d bytes", errCorruptState, count, len(blob))
	}
	records := make([]channelRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		records = append(records, channelRecord{
			peer:         ids.ChannelID(p.UnpackInt()),
			state:        OutboundState(p.UnpackByte()),
			signalsExist: p.UnpackBool(),
			firstIndex:   p.UnpackShort(),
			lastIndex:    p.UnpackShort(),
		})
	}
	if p.Errored() {
		return fmt.Errorf("%w: registry: %v", errCorruptState, p.Err)
	}
	q.registry = records
	return nil
}

func (q *Queue) storeRegistry() error {
	p := wrappers.Packer{
		MaxSize: wrappers.IntLen + len(q.registry)*(wrappers.IntLen+wrappers.ByteLen+wrappers.BoolLen+2*wrappers.ShortLen),
	}
	p.PackInt(uint32(len(q.registry)))
	for i := range q.registry {
		rec := &q.registry[i]
		p.PackInt(uint32(rec.peer))
		p.PackByte(byte(rec.state))
		p.PackBool(rec.signalsExist)
		p.PackShort(rec.firstIndex)
		p.PackShort(rec.lastIndex)
	}
	if p.Errored() {
		return p.Err
	}
	return q.metaDB.Put(registryKey, p.Bytes)
}

func (q *Queue) loadConfig() error {
	blob, err := q.metaDB.Get(configKey)
	if errors.Is(err, database.ErrNotFound) {
		q.config = DefaultQueueConfig()
		return nil
	}
	if err != nil {
		return err
	}
	p := wrappers.Packer{Bytes: blob}
	cfg := QueueConfig{
		SuspendThreshold: p.UnpackInt(),
		DropThreshold:    p.UnpackInt(),
		ResumeThreshold:  p.UnpackInt(),
	}
	if p.Errored() {
		return fmt.Errorf("%w: config: %v", errCorruptState, p.Err)
	}
	q.config = cfg
	return nil
}

func (q *Queue) storeConfig(cfg QueueConfig) error {
	p := wrappers.Packer{MaxSize: 3 * wrappers.IntLen}
	p.PackInt(cfg.SuspendThreshold)
	p.PackInt(cfg.DropThreshold)
	p.PackInt(cfg.ResumeThreshold)
	if p.Errored() {
		return p.Err
	}
	return q.metaDB.Put(configKey, p.Bytes)
}

func (q *Queue) loadSuspended() error {
	blob, err := q.metaDB.Get(suspendedKey)
	if errors.Is(err, database.ErrNotFound) {
		q.inboundSuspended = nil
		return nil
	}
	if err != nil {
		return err
	}
	p := wrappers.Packer{Bytes: blob}
	count := p.UnpackInt()
	if int(count) > len(blob)/wrappers.IntLen {
		return fmt.Errorf("%w: suspended set claims %d entries in %d bytes", errCorruptState, count, len(blob))
	}
	for i := uint32(0); i < count; i++ {
		q.inboundSuspended.Add(ids.ChannelID(p.UnpackInt()))
	}
	if p.Errored() {
		return fmt.Errorf("%w: suspended set: %v", errCorruptState, p.Err)
	}
	return nil
}

func (q *Queue) storeSuspended() {
	p := wrappers.Packer{MaxSize: wrappers.IntLen * (1 + q.inboundSuspended.Len())}
	p.PackInt(uint32(q.inboundSuspended.Len()))
	for _, peer := range q.inboundSuspended.List() {
		p.PackInt(uint32(peer))
	}
	err := p.Err
	if err == nil {
		err = q.metaDB.Put(suspendedKey, p.Bytes)
	}
	if err != nil {
		q.log.Error("failed to persist inbound suspended set",
			zap.Error(err),
		)
	}
}

func (q *Queue) storePaused(paused bool) error {
	return database.PutBool(q.metaDB, pausedKey, paused)
}

// loadFeeFactor reads through the in-memory cache; an unset factor is the
// configured floor.
func (q *Queue) loadFeeFactor(peer ids.ChannelID) fixedpoint.Fixed {
	if factor, ok := q.feeFactors[peer]; ok {
		return factor
	}
	raw, err := database.WithDefault(database.GetUInt64, q.metaDB, feeKey(peer), uint64(q.params.MinFeeFactor))
	if err != nil {
		q.log.Error("failed to load fee factor; using floor",
			zap.Stringer("peer", peer),
			zap.Error(err),
		)
		raw = uint64(q.params.MinFeeFactor)
	}
	factor := fixedpoint.Fixed(raw)
	q.feeFactors[peer] = factor
	return factor
}

func (q *Queue) storeFeeFactor(peer ids.ChannelID, factor fixedpoint.Fixed) {
	q.feeFactors[peer] = factor
	if err := database.PutUInt64(q.metaDB, feeKey(peer), uint64(factor)); err != nil {
		q.log.Error("failed to persist fee factor",
			zap.Stringer("peer", peer),
			zap.Error(err),
		)
	}
}
