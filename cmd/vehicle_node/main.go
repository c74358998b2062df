// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/osdk_bridge/internal/app"
	"github.com/relabs-tech/osdk_bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "vehicle_node.conf", "Path to configuration file")
	simulate := flag.Bool("sim", false, "Use the simulated aircraft regardless of VEHICLE_BACKEND")
	flag.Parse()

	log.Println("starting osdk vehicle node")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if *simulate {
		cfg.VehicleBackend = config.BackendSim
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunVehicleNode(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
