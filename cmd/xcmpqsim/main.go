// Copyright (C) 2024-2026, Crossmesh, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// xcmpqsim drives the queue engine with synthetic traffic: every simulated
// block it queues random outbound fragments, feeds random inbound pages
// through the budgeted handler, reports downstream queue depths back for
// backpressure and extracts the block's outbound pages. It prints the
// engine's metrics when done.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crossmesh/xcmpq/database"
	"github.com/crossmesh/xcmpq/database/leveldb"
	"github.com/crossmesh/xcmpq/database/memdb"
	"github.com/crossmesh/xcmpq/ids"
	"github.com/crossmesh/xcmpq/queue"
	"github.com/crossmesh/xcmpq/utils/logging"
	"github.com/crossmesh/xcmpq/utils/units"
	"github.com/crossmesh/xcmpq/xcmp"
)

const (
	dataDirKey      = "data-dir"
	blocksKey       = "blocks"
	peersKey        = "peers"
	budgetKey       = "budget"
	maxChannelsKey  = "max-channels"
	logLevelKey     = "log-level"
	seedKey         = "seed"
	fragmentSizeKey = "fragment-size"

	envPrefix = "XCMPQSIM"

	// drainRate is how many downstream messages each peer executes per block.
	drainRate = 4
)

func buildViper(args []string) (*viper.Viper, error) {
	fs := pflag.NewFlagSet("xcmpqsim", pflag.ContinueOnError)
	fs.String(dataDirKey, "", "directory for the leveldb store; empty runs in memory")
	fs.Uint64(blocksKey, 64, "number of blocks to simulate")
	fs.Int(peersKey, 8, "number of peer channels")
	fs.Uint64(budgetKey, 1024, "inbound processing budget per block")
	fs.Int(maxChannelsKey, 4, "outbound channels served per block")
	fs.String(logLevelKey, "info", "log level")
	fs.Int64(seedKey, 1, "seed for the traffic generator")
	fs.Int(fragmentSizeKey, 128, "maximum fragment size in bytes")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v, nil
}

// simChannels reports every peer as an open channel with fixed sizing.
type simChannels struct {
	maxMessageSize uint32
	maxTotalSize   uint32
}

func (c *simChannels) ChannelStatus(ids.ChannelID) queue.ChannelState {
	return queue.ChannelState{
		Status:      queue.Ready,
		MaxSizeNow:  c.maxMessageSize,
		MaxSizeEver: c.maxMessageSize,
	}
}

func (c *simChannels) ChannelCapacity(ids.ChannelID) (queue.ChannelCapacity, bool) {
	return queue.ChannelCapacity{
		MaxMessageSize: c.maxMessageSize,
		MaxTotalSize:   c.maxTotalSize,
	}, true
}

// simEnqueuer accepts everything and tracks per-peer queue depths.
type simEnqueuer struct {
	depths map[ids.ChannelID]uint32
}

func (e *simEnqueuer) Enqueue(peer ids.ChannelID, msgs [][]byte) int {
	e.depths[peer] += uint32(len(msgs))
	return len(msgs)
}

func run(v *viper.Viper) error {
	level, err := logging.ToLevel(v.GetString(logLevelKey))
	if err != nil {
		return err
	}
	log := logging.NewLogger("xcmpqsim", level, os.Stdout)
	defer log.Stop()

	var db database.Database
	if dir := v.GetString(dataDirKey); dir != "" {
		db, err = leveldb.New(dir, log)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
	} else {
		db = memdb.New()
	}
	defer func() {
		_ = db.Close()
	}()

	registry := prometheus.NewRegistry()
	downstream := &simEnqueuer{depths: make(map[ids.ChannelID]uint32)}
	channels := &simChannels{
		maxMessageSize: 4 * units.KiB,
		maxTotalSize:   64 * units.KiB,
	}
	q, err := queue.New(queue.DefaultParams(), db, channels, downstream, log, "xcmpq", registry)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(v.GetInt64(seedKey)))
	peers := make([]ids.ChannelID, v.GetInt(peersKey))
	for i := range peers {
		peers[i] = ids.ChannelID(1000 + i)
	}

	var (
		blocks       = v.GetUint64(blocksKey)
		budget       = v.GetUint64(budgetKey)
		maxChannels  = v.GetInt(maxChannelsKey)
		maxFragment  = v.GetInt(fragmentSizeKey)
		sentPages    int
		handledPages int
	)
	randomFragment := func() []byte {
		fragment := make([]byte, 1+rng.Intn(maxFragment))
		rng.Read(fragment)
		return fragment
	}

	for block := uint64(0); block < blocks; block++ {
		for _, peer := range peers {
			for n := rng.Intn(3); n > 0; n-- {
				if _, err := q.SendFragment(peer, xcmp.ConcatenatedPayload, randomFragment()); err != nil {
					log.Warn("outbound send rejected",
						zap.Stringer("peer", peer),
						zap.Error(err),
					)
				}
			}
		}

		var inbound []queue.InboundPage
		for _, peer := range peers {
			if rng.Intn(4) == 0 {
				continue
			}
			page := []byte{byte(xcmp.ConcatenatedPayload)}
			for n := 1 + rng.Intn(4); n > 0; n-- {
				page = xcmp.AppendFragment(page, randomFragment())
			}
			inbound = append(inbound, queue.InboundPage{Peer: peer, Bytes: page})
		}
		consumed := q.HandleMessages(inbound, budget)
		handledPages += len(inbound)

		// Execute a slice of each downstream queue and report the new depths
		// so suspend/resume signaling kicks in under load.
		for peer, depth := range downstream.depths {
			if !q.IsExecutionPaused() {
				if depth > drainRate {
					depth -= drainRate
				} else {
					depth = 0
				}
				downstream.depths[peer] = depth
			}
			q.OnQueueChanged(peer, depth)
		}

		outbound := q.TakeOutboundMessages(maxChannels)
		sentPages += len(outbound)
		log.Debug("processed block",
			zap.Uint64("height", block),
			zap.Int("inboundPages", len(inbound)),
			zap.Uint64("budgetConsumed", consumed),
			zap.Int("outboundPages", len(outbound)),
		)
	}

	log.Info("simulation complete",
		zap.Uint64("blocks", blocks),
		zap.Int("inboundPages", handledPages),
		zap.Int("outboundPages", sentPages),
	)

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				fmt.Printf("%s %v\n", family.GetName(), metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				fmt.Printf("%s %v\n", family.GetName(), metric.GetGauge().GetValue())
			}
		}
	}
	return nil
}

func main() {
	v, err := buildViper(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
