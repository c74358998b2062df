// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus"
	"github.com/relabs-tech/osdk_bridge/internal/bus/rosbus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/metrics"
	"github.com/relabs-tech/osdk_bridge/internal/node"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/osdk/mavlink"
	"github.com/relabs-tech/osdk_bridge/internal/osdk/sim"
)

const shutdownTimeout = 5 * time.Second

// OpenVehicle connects the backend selected by VEHICLE_BACKEND.
func OpenVehicle(cfg *config.Config) (osdk.Vehicle, error) {
	switch cfg.VehicleBackend {
	case config.BackendSim:
		log.Println("vehicle: using simulated aircraft")
		return sim.New(), nil
	case config.BackendMAVLink:
		v, err := mavlink.Open(mavlink.Config{
			Device:   cfg.Device,
			Baud:     cfg.BaudRate,
			SystemID: cfg.MAVLinkSysID,
			NMEAPort: cfg.NMEASerialPort,
			NMEABaud: cfg.NMEABaudRate,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("vehicle: MAVLink autopilot on %s at %d baud", cfg.Device, cfg.BaudRate)
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vehicle backend %q", cfg.VehicleBackend)
	}
}

// OpenBus connects MQTT and, when enabled, ROS.
func OpenBus(cfg *config.Config) (bus.Bus, error) {
	client, err := mqttbus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDNode)
	if err != nil {
		return nil, err
	}
	buses := bus.Multi{mqttbus.New(client, cfg.TopicPrefix)}

	if cfg.ROSEnabled {
		rb, err := rosbus.New(rosbus.Config{
			NodeName:      cfg.ROSNodeName,
			MasterAddress: cfg.ROSMaster,
			Namespace:     cfg.TopicPrefix,
		})
		if err != nil {
			buses.Close()
			return nil, err
		}
		buses = append(buses, rb)
	}
	return buses, nil
}

// RunVehicleNode serves the vehicle node until ctx is cancelled.
func RunVehicleNode(ctx context.Context, cfg *config.Config) error {
	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.Printf("metrics: server stopped: %v", err)
		}
	}()

	vehicle, err := OpenVehicle(cfg)
	if err != nil {
		return fmt.Errorf("open vehicle: %w", err)
	}
	defer vehicle.Close()

	b, err := OpenBus(cfg)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer b.Close()

	return serveNode(ctx, cfg, vehicle, b, node.WithMetrics(m))
}

// serveNode initializes the node on vehicle and b and tears it down when ctx ends.
func serveNode(ctx context.Context, cfg *config.Config, vehicle osdk.Vehicle, b bus.Bus, opts ...node.Option) error {
	n, err := node.New(cfg, vehicle, b, opts...)
	if err != nil {
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ServiceTimeoutMs)*time.Millisecond)
	err = n.Init(initCtx)
	cancel()
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(err, n.Close(closeCtx))
	}
	log.Printf("vehicle node running (rtk=%v)", n.RTKSupport())

	<-ctx.Done()
	log.Println("vehicle node shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return n.Close(closeCtx)
}
