// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"errors"
	"fmt"

	"github.com/crossmesh/xcmpq/utils/fixedpoint"
	"github.com/crossmesh/xcmpq/utils/units"
)

// QueueConfig controls the dynamics of inbound backpressure.
type QueueConfig struct {
	// The number of ready pages which must be in a peer's inbound queue for
	// the peer to be told to suspend its sending.
	SuspendThreshold uint32
	// The number of ready pages after which further messages from the peer
	// may be dropped. This should normally not be reached since
	// SuspendThreshold triggers first.
	DropThreshold uint32
	// The number of ready pages the queue must shrink to before the peer is
	// told that sending may recommence.
	ResumeThreshold uint32
}

// DefaultQueueConfig gives a rough idea of what to set these values to; it
// is in no way a requirement.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		DropThreshold:    48, // 64KiB * 48 = 3MiB
		SuspendThreshold: 32, // 64KiB * 32 = 2MiB
		ResumeThreshold:  8,  // 64KiB * 8 = 512KiB
	}
}

// Validate should be called prior to accepting this as the new config.
func (c QueueConfig) Validate() error {
	if c.ResumeThreshold < c.SuspendThreshold &&
		c.SuspendThreshold <= c.DropThreshold &&
		c.ResumeThreshold > 0 {
		return nil
	}
	return ErrBadQueueConfig
}

// Params are the static capacity and pricing knobs of the engine. Unlike
// QueueConfig they cannot change after construction.
type Params struct {
	// MaxPageSize is the hard limit on the size of one outbound page. A
	// lower limit can apply dynamically per channel via the transport.
	MaxPageSize uint32

	// MaxActiveOutboundChannels bounds how many outbound channels can have
	// pages or signals queued at the same time. If this is reached, no
	// further messages can be sent on channels without a queued record, and
	// the congestion control protocol degrades to best effort.
	MaxActiveOutboundChannels int

	// MaxInboundSuspended bounds how many inbound channels can be tracked as
	// suspended simultaneously. Further suspensions are best effort only and
	// messages may get dropped without notice.
	MaxInboundSuspended int

	// BatchSize is how many decoded fragments are handed downstream at once.
	BatchSize int

	// Budget costs of the inbound processing steps.
	SignalCost         uint64
	FragmentDecodeCost uint64
	EnqueueItemCost    uint64
	// FirstTouchCost is charged once per sender per block on its first
	// payload page, covering the cold state accesses that later pages reuse.
	FirstTouchCost uint64

	// MinFeeFactor is the floor the delivery fee factor decays toward.
	MinFeeFactor fixedpoint.Fixed
}

const defaultBatchSize = 250

func DefaultParams() Params {
	return Params{
		MaxPageSize:               64 * units.KiB,
		MaxActiveOutboundChannels: 128,
		MaxInboundSuspended:       1000,
		BatchSize:                 defaultBatchSize,
		SignalCost:                1,
		FragmentDecodeCost:        1,
		EnqueueItemCost:           1,
		FirstTouchCost:            8,
		MinFeeFactor:              fixedpoint.One,
	}
}

func (p Params) Validate() error {
	errs := []error(nil)
	if p.MaxPageSize == 0 {
		errs = append(errs, errors.New("MaxPageSize must be positive"))
	}
	if p.MaxActiveOutboundChannels <= 0 {
		errs = append(errs, errors.New("MaxActiveOutboundChannels must be positive"))
	}
	if p.MaxInboundSuspended <= 0 {
		errs = append(errs, errors.New("MaxInboundSuspended must be positive"))
	}
	if p.BatchSize <= 0 {
		errs = append(errs, errors.New("BatchSize must be positive"))
	}
	if p.MinFeeFactor == 0 {
		errs = append(errs, errors.New("MinFeeFactor must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid params: %w", errors.Join(errs...))
	}
	return nil
}
