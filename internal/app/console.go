// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/node"
	"github.com/relabs-tech/osdk_bridge/internal/osdk/sim"
)

// RunSimConsole runs the node against the simulated aircraft on an in-process bus and
// prints attitude and position at 10 Hz. No broker is needed.
func RunSimConsole(ctx context.Context, cfg *config.Config) error {
	vehicle := sim.New()
	defer vehicle.Close()
	mem := bus.NewMemory()
	defer mem.Close()

	n, err := node.New(cfg, vehicle, mem)
	if err != nil {
		return err
	}
	if err := n.Init(ctx); err != nil {
		return err
	}
	defer n.Close(context.Background())

	t := NewTelemetry()
	if err := t.FeedFromMemory(mem); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v := t.Snapshot()
			for _, topic := range []string{node.TopicAttitude, node.TopicGPSPosition} {
				if line := FormatTopic(topic, v); line != "" {
					fmt.Println(line)
				}
			}
		}
	}
}
