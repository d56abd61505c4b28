// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/utils/fixedpoint"
	"github.com/crossmesh/xcmpq/utils/units"

	"go.uber.org/zap"
)

// ThresholdFactor declares which fraction of a channel's max total size is
// the fee escalation threshold. With 2 the fee factor starts increasing when
// the channel is half full.
const ThresholdFactor = 2

var (
	// exponentialFeeBase is the multiplicative step the fee factor grows and
	// decays by.
	exponentialFeeBase = fixedpoint.FromRational(105, 100) // 1.05
	// messageSizeFeeBase scales the extra growth charged per KiB of the
	// message that crossed the threshold.
	messageSizeFeeBase = fixedpoint.FromRational(1, 1000) // 0.001
)

// FeeFactor returns the delivery fee multiplier currently in force for
// [peer]. External pricing multiplies base delivery fees by it.
func (q *Queue) FeeFactor(peer ids.ChannelID) fixedpoint.Fixed {
	return q.loadFeeFactor(peer)
}

// increaseFeeFactor grows [peer]'s fee factor by the exponential base plus a
// size-proportional component. Growth is monotonic and unbounded above
// (saturating only at the fixed-point ceiling).
func (q *Queue) increaseFeeFactor(peer ids.ChannelID, messageSize int) {
	sizeFactor := fixedpoint.FromUint64(uint64(messageSize) / units.KiB).Mul(messageSizeFeeBase)
	factor := q.loadFeeFactor(peer).Mul(exponentialFeeBase.Add(sizeFactor))
	q.storeFeeFactor(peer, factor)
	q.metrics.feeEscalations.Inc()
	q.log.Debug("escalated delivery fee factor",
		zap.Stringer("peer", peer),
		zap.Stringer("factor", factor),
	)
}

// decreaseFeeFactor decays [peer]'s fee factor by the exponential base,
// never dropping below the configured floor.
func (q *Queue) decreaseFeeFactor(peer ids.ChannelID) {
	factor := q.loadFeeFactor(peer)
	if factor <= q.params.MinFeeFactor {
		return
	}
	factor = factor.Div(exponentialFeeBase)
	if factor < q.params.MinFeeFactor {
		factor = q.params.MinFeeFactor
	}
	q.storeFeeFactor(peer, factor)
	q.metrics.feeDecays.Inc()
}
