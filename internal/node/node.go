// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package node is the vehicle node: it turns flight-controller telemetry packages into
// bus messages and serves the flight, gimbal, camera and MFIO services.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/metrics"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/timealign"
)

// ErrNoGPSReference is logged when a local position reference is requested without a
// healthy GPS fix.
var ErrNoGPSReference = errors.New("node: gps health too low to set a local position reference")

// Telemetry package layout.
const (
	Package5Hz   = 0
	Package50Hz  = 1
	Package100Hz = 2
	Package400Hz = 3
)

// Go-home altitude limits in metres.
const (
	MinGoHomeAltitude = 20
	MaxGoHomeAltitude = 500
)

var rtkTopics = []osdk.Topic{
	osdk.TopicRTKPosition,
	osdk.TopicRTKVelocity,
	osdk.TopicRTKYaw,
	osdk.TopicRTKPositionInfo,
	osdk.TopicRTKYawInfo,
	osdk.TopicRTKConnectStatus,
}

// Packages returns the four telemetry packages, with the RTK set added to the 5 Hz one
// when rtk is true.
func Packages(rtk bool) []osdk.Package {
	slow := []osdk.Topic{
		osdk.TopicBatteryInfo,
		osdk.TopicGPSDate,
		osdk.TopicGPSTime,
		osdk.TopicGPSPosition,
		osdk.TopicGPSVelocity,
		osdk.TopicGPSDetails,
	}
	if rtk {
		slow = append(slow, rtkTopics...)
	}
	return []osdk.Package{
		{Index: Package5Hz, FreqHz: 5, Topics: slow},
		{Index: Package50Hz, FreqHz: 50, Topics: []osdk.Topic{
			osdk.TopicGPSFused,
			osdk.TopicGPSSignalLevel,
			osdk.TopicHeightFusion,
			osdk.TopicStatusFlight,
			osdk.TopicStatusDisplayMode,
			osdk.TopicVelocity,
			osdk.TopicGimbalAngles,
			osdk.TopicRCWithFlagData,
			osdk.TopicPositionVO,
			osdk.TopicFlightAnomaly,
		}},
		{Index: Package100Hz, FreqHz: 100, Topics: []osdk.Topic{
			osdk.TopicQuaternion,
			osdk.TopicAccelerationGround,
			osdk.TopicAngularRateFusioned,
		}},
		{Index: Package400Hz, FreqHz: 400, Topics: []osdk.Topic{osdk.TopicHardSync}},
	}
}

// GPSPoint is a position in degrees and metres.
type GPSPoint struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Node bridges one vehicle to one bus.
type Node struct {
	cfg     *config.Config
	vehicle osdk.Vehicle
	bus     bus.Bus
	metrics *metrics.Node
	now     func() time.Time
	aligner *timealign.Aligner
	timeout time.Duration

	mu            sync.Mutex
	localRef      GPSPoint
	localRefSet   bool
	currentGPS    GPSPoint
	gpsHealth     uint8
	rtkSupport    bool
	subscribed    []int
	gimbalEnabled bool
	failedTopics  map[string]bool
}

// Option configures a Node.
type Option func(*Node)

// WithMetrics records into m instead of a private registry.
func WithMetrics(m *metrics.Node) Option {
	return func(n *Node) { n.metrics = m }
}

// WithClock replaces time.Now for message stamps.
func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// New wires a node; nothing is subscribed or advertised until Init.
func New(cfg *config.Config, vehicle osdk.Vehicle, b bus.Bus, opts ...Option) (*Node, error) {
	n := &Node{
		cfg:          cfg,
		vehicle:      vehicle,
		bus:          b,
		now:          time.Now,
		aligner:      timealign.New(),
		timeout:      time.Duration(cfg.ServiceTimeoutMs) * time.Millisecond,
		failedTopics: make(map[string]bool),
	}
	for _, o := range opts {
		o(n)
	}
	if n.metrics == nil {
		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("node: metrics: %w", err)
		}
		n.metrics = m
	}
	return n, nil
}

// Init advertises the topics, provides the services and starts the telemetry stream.
func (n *Node) Init(ctx context.Context) error {
	if err := n.initTopic(); err != nil {
		return fmt.Errorf("node: init topics: %w", err)
	}
	if err := n.initService(); err != nil {
		return fmt.Errorf("node: init services: %w", err)
	}
	if err := n.initDataSubscribeFromFC(ctx); err != nil {
		return fmt.Errorf("node: subscribe telemetry: %w", err)
	}
	if err := n.initCameraModule(ctx); err != nil {
		return fmt.Errorf("node: init camera module: %w", err)
	}
	log.Println("node: vehicle node initialized")
	return nil
}

func (n *Node) initTopic() error {
	for _, d := range topicDefs {
		if err := n.bus.Advertise(d.name, d.proto, d.latch); err != nil {
			return err
		}
	}
	log.Printf("node: advertised %d topics", len(topicDefs))
	return nil
}

func (n *Node) initDataSubscribeFromFC(ctx context.Context) error {
	if n.cfg.UseBroadcast {
		log.Println("node: broadcast telemetry is not available on this link, using package subscription")
	}

	rtk := n.cfg.RTKSupport
	for _, pkg := range Packages(rtk) {
		cb := n.packageHandler(pkg.Index)
		err := n.vehicle.SubscribePackage(ctx, pkg, cb)
		if err != nil && pkg.Index == Package5Hz && rtk {
			log.Printf("node: RTK topics rejected (%v), subscribing 5 Hz package without them", err)
			rtk = false
			pkg = Packages(false)[Package5Hz]
			err = n.vehicle.SubscribePackage(ctx, pkg, cb)
		}
		if err != nil {
			return fmt.Errorf("package %d at %d Hz: %w", pkg.Index, pkg.FreqHz, err)
		}
		n.mu.Lock()
		n.subscribed = append(n.subscribed, pkg.Index)
		n.mu.Unlock()
	}

	n.mu.Lock()
	n.rtkSupport = rtk
	n.mu.Unlock()

	if err := n.vehicle.SubscribeTimeSync(ctx, n.timeSyncHandlers()); err != nil {
		if !errors.Is(err, osdk.ErrNotSupported) {
			return fmt.Errorf("time sync: %w", err)
		}
		log.Println("node: time sync not supported by this vehicle")
	}
	n.vehicle.SetMobileDataHandler(n.onMobileData)
	n.vehicle.SetPayloadDataHandler(n.onPayloadData)
	return nil
}

func (n *Node) packageHandler(index int) osdk.PackageCallback {
	switch index {
	case Package5Hz:
		return n.on5Hz
	case Package50Hz:
		return n.on50Hz
	case Package100Hz:
		return n.on100Hz
	default:
		return n.on400Hz
	}
}

func (n *Node) initCameraModule(ctx context.Context) error {
	if err := n.vehicle.SubscribeGimbalData(ctx); err != nil {
		if errors.Is(err, osdk.ErrNotSupported) {
			log.Println("node: gimbal data not supported by this vehicle")
			return nil
		}
		return err
	}
	n.mu.Lock()
	n.gimbalEnabled = true
	n.mu.Unlock()
	return nil
}

func (n *Node) cleanUpSubscribeFromFC(ctx context.Context) error {
	n.mu.Lock()
	indexes := n.subscribed
	n.subscribed = nil
	n.mu.Unlock()

	var errs []error
	for _, idx := range indexes {
		if err := n.vehicle.RemovePackage(ctx, idx); err != nil {
			errs = append(errs, fmt.Errorf("remove package %d: %w", idx, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops the telemetry packages and gimbal data. The bus and vehicle stay open.
func (n *Node) Close(ctx context.Context) error {
	err := n.cleanUpSubscribeFromFC(ctx)

	n.mu.Lock()
	gimbal := n.gimbalEnabled
	n.gimbalEnabled = false
	n.mu.Unlock()
	if gimbal {
		if uerr := n.vehicle.UnsubscribeGimbalData(ctx); uerr != nil {
			err = errors.Join(err, fmt.Errorf("unsubscribe gimbal data: %w", uerr))
		}
	}
	log.Println("node: vehicle node closed")
	return err
}

// RTKSupport reports whether the RTK topics are part of the 5 Hz package.
func (n *Node) RTKSupport() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rtkSupport
}

// LocalPositionReference returns the reference and whether it has been set.
func (n *Node) LocalPositionReference() (GPSPoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.localRef, n.localRefSet
}

// Alignment exposes the flight-controller time alignment.
func (n *Node) Alignment() *timealign.Aligner {
	return n.aligner
}

// publish sends msg and counts it. The first failure per topic is logged.
func (n *Node) publish(topic string, msg any) {
	if err := n.bus.Publish(topic, msg); err != nil {
		n.metrics.PublishFailed(topic)
		n.mu.Lock()
		first := !n.failedTopics[topic]
		n.failedTopics[topic] = true
		n.mu.Unlock()
		if first {
			log.Printf("node: publish %s: %v", topic, err)
		}
		return
	}
	n.metrics.Published(topic)
}

// callContext bounds one SDK call made on behalf of a service request.
func (n *Node) callContext(extra time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), n.timeout+extra)
}
