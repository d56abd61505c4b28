// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crossmesh/xcmpq/utils/wrappers"
)

type metrics struct {
	pagesSent        prometheus.Counter
	signalsSent      prometheus.Counter
	pagesDropped     prometheus.Counter
	messagesEnqueued prometheus.Counter
	messagesDropped  prometheus.Counter
	feeEscalations   prometheus.Counter
	feeDecays        prometheus.Counter
	budgetExhausted  prometheus.Counter

	outboundChannels prometheus.Gauge
	inboundSuspended prometheus.Gauge
	queuedPages      prometheus.Gauge
}

func (m *metrics) initialize(namespace string, registerer prometheus.Registerer) error {
	m.pagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_sent",
		Help:      "Outbound pages handed to the transport",
	})
	m.signalsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_sent",
		Help:      "Outbound signal pages handed to the transport",
	})
	m.pagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_dropped",
		Help:      "Outbound pages dropped as undeliverable",
	})
	m.messagesEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_enqueued",
		Help:      "Inbound messages accepted by the downstream consumer",
	})
	m.messagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dropped",
		Help:      "Inbound messages dropped before reaching the downstream consumer",
	})
	m.feeEscalations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fee_escalations",
		Help:      "Delivery fee factor increases",
	})
	m.feeDecays = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fee_decays",
		Help:      "Delivery fee factor decreases",
	})
	m.budgetExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "budget_exhausted",
		Help:      "Blocks whose inbound processing halted on budget exhaustion",
	})
	m.outboundChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbound_channels",
		Help:      "Outbound channels with queued pages or signals",
	})
	m.inboundSuspended = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inbound_suspended",
		Help:      "Inbound channels currently tracked as suspended",
	})
	m.queuedPages = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queued_pages",
		Help:      "Outbound data pages awaiting extraction",
	})

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.pagesSent),
		registerer.Register(m.signalsSent),
		registerer.Register(m.pagesDropped),
		registerer.Register(m.messagesEnqueued),
		registerer.Register(m.messagesDropped),
		registerer.Register(m.feeEscalations),
		registerer.Register(m.feeDecays),
		registerer.Register(m.budgetExhausted),
		registerer.Register(m.outboundChannels),
		registerer.Register(m.inboundSuspended),
		registerer.Register(m.queuedPages),
	)
	return errs.Err
}
