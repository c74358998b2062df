// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/relabs-tech/osdk_bridge/internal/app"
	"github.com/relabs-tech/osdk_bridge/internal/config"
)

func main() {
	log.Println("starting osdk vehicle node (sim console)")

	cfg := config.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunSimConsole(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
