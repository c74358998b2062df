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
	flag.Parse()

	log.Println("starting osdk status display (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDisplay(ctx, config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
