// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

// Meter tracks consumption of a per-invocation processing budget. It is the
// only bound on how much decoding and enqueueing work one block may perform;
// there is no timeout or cancellation beyond it.
type Meter struct {
	limit    uint64
	consumed uint64
}

// NewMeter returns a meter with [limit] budget available.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// TryConsume consumes [n] budget and returns true, or consumes nothing and
// returns false if [n] exceeds the remaining budget.
func (m *Meter) TryConsume(n uint64) bool {
	if n > m.limit-m.consumed {
		return false
	}
	m.consumed += n
	return true
}

// Consume consumes [n] budget, saturating at the limit.
func (m *Meter) Consume(n uint64) {
	if remaining := m.limit - m.consumed; n > remaining {
		n = remaining
	}
	m.consumed += n
}

// Consumed returns how much budget has been consumed.
func (m *Meter) Consumed() uint64 {
	return m.consumed
}

// Remaining returns how much budget is left.
func (m *Meter) Remaining() uint64 {
	return m.limit - m.consumed
}
