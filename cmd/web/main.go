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
	staticDir := flag.String("static", "", "Directory served at /, empty to disable")
	flag.Parse()

	log.Println("starting osdk web monitor (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunWeb(ctx, config.Get(), *staticDir); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
